package accounts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-console/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-console/internal/rbac"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// Handler exposes the chart of accounts and the balance mutations.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds the accounts handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers account routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermAccountView)).Get("/", h.list)
	r.With(h.rbac.RequireAny(shared.PermAccountView)).Get("/{code}", h.find)
	r.With(h.rbac.RequireAny(shared.PermAccountAddCash)).Post("/cash", h.addCash)
	r.With(h.rbac.RequireAny(shared.PermAccountAddBank)).Post("/bank", h.addBank)
	r.With(h.rbac.RequireAny(shared.PermAccountTransfer)).Post("/transfer", h.transfer)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Warn("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, list)
}

func (h *Handler) find(w http.ResponseWriter, r *http.Request) {
	acc, err := h.service.Find(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, acc)
}

func (h *Handler) addCash(w http.ResponseWriter, r *http.Request) {
	var input AddCashInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.AddCash(r.Context(), input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addBank(w http.ResponseWriter, r *http.Request) {
	var input AddBankBalanceInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.AddBankBalance(r.Context(), input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var input FundTransferInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.FundTransfer(r.Context(), input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
