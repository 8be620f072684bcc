package sales

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-console/internal/payments"
	"github.com/odyssey-erp/odyssey-console/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-console/internal/rbac"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
	"github.com/odyssey-erp/odyssey-console/internal/workflow"
)

// Handler wires sales HTTP routes.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler creates a new sales handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSaleView))
		r.Get("/", h.listSales)
		r.Get("/{id}", h.getSale)
		r.Get("/{id}/actions", h.saleActions)
	})
	r.Post("/quote", h.quote)
	r.Post("/", h.checkout)
	r.Post("/{id}/payments", h.addPayment)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if !shared.IsValidation(err) {
		h.logger.Warn(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func principal(r *http.Request) workflow.Principal {
	return rbac.PrincipalFromContext(r.Context())
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListSales(r.Context(), httpx.ListFilter(r))
	if err != nil {
		h.fail(w, "list sales", err)
		return
	}
	httpx.Data(w, http.StatusOK, page)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		h.fail(w, "get sale", err)
		return
	}
	httpx.Data(w, http.StatusOK, sale)
}

func (h *Handler) saleActions(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, actions, err := h.service.SaleActions(r.Context(), principal(r), id)
	if err != nil {
		h.fail(w, "sale actions", err)
		return
	}
	httpx.Data(w, http.StatusOK, map[string]any{"entity": sale, "actions": actions})
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	var input CheckoutInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	quote, err := h.service.Quote(input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, quote)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var input CheckoutInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, err := h.service.Checkout(r.Context(), principal(r), input)
	if err != nil {
		h.fail(w, "checkout", err)
		return
	}
	httpx.Data(w, http.StatusCreated, sale)
}

func (h *Handler) addPayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input payments.ProposalInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	proposal, err := input.Proposal()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	paid, err := h.service.AddPayment(r.Context(), principal(r), id, proposal)
	if err != nil {
		h.fail(w, "add sale payment", err)
		return
	}
	httpx.Data(w, http.StatusCreated, paid)
}
