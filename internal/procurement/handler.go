package procurement

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

// Handler manages procurement endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers purchase routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPurchaseView))
		r.Get("/", h.listPurchases)
		r.Get("/{id}", h.getPurchase)
		r.Get("/{id}/actions", h.purchaseActions)
	})
	r.Post("/", h.createPurchase)
	r.Patch("/{id}", h.updatePurchase)
	r.Post("/{id}/receive", h.receivePurchase)
	r.Patch("/{id}/cancel", h.cancelPurchase)
	r.Post("/{id}/payments", h.payPurchase)
}

// MountReturnRoutes registers purchase return routes.
func (h *Handler) MountReturnRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPurchaseReturnView))
		r.Get("/", h.listReturns)
		r.Get("/{id}", h.getReturn)
		r.Get("/{id}/actions", h.returnActions)
		r.Get("/{id}/refunds", h.refundHistory)
	})
	r.Post("/", h.createReturn)
	r.Patch("/{id}/approve", h.approveReturn)
	r.Patch("/{id}/process", h.processReturn)
	r.Patch("/{id}/cancel", h.cancelReturn)
	r.Post("/{id}/refund", h.refundReturn)
}

func principal(r *http.Request) workflow.Principal {
	return rbac.PrincipalFromContext(r.Context())
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if !shared.IsValidation(err) {
		h.logger.Warn(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

type actionsResponse[T any] struct {
	Entity  T                     `json:"entity"`
	Actions []workflow.ActionView `json:"actions"`
}

func (h *Handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListPurchases(r.Context(), httpx.ListFilter(r))
	if err != nil {
		h.fail(w, "list purchases", err)
		return
	}
	httpx.Data(w, http.StatusOK, page)
}

func (h *Handler) getPurchase(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	purchase, err := h.service.GetPurchase(r.Context(), id)
	if err != nil {
		h.fail(w, "get purchase", err)
		return
	}
	httpx.Data(w, http.StatusOK, purchase)
}

func (h *Handler) purchaseActions(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	purchase, actions, err := h.service.PurchaseActions(r.Context(), principal(r), id)
	if err != nil {
		h.fail(w, "purchase actions", err)
		return
	}
	httpx.Data(w, http.StatusOK, actionsResponse[Purchase]{Entity: purchase, Actions: actions})
}

func (h *Handler) createPurchase(w http.ResponseWriter, r *http.Request) {
	var input CreatePurchaseInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	purchase, err := h.service.CreatePurchase(r.Context(), principal(r), input)
	if err != nil {
		h.fail(w, "create purchase", err)
		return
	}
	httpx.Data(w, http.StatusCreated, purchase)
}

// transition decodes the body into input and runs fn for the {id} in the path.
func transition[I, O any](h *Handler, op string, fn func(r *http.Request, id int64, input I) (O, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		var input I
		if r.ContentLength != 0 {
			if err := httpx.DecodeJSON(r, &input); err != nil {
				httpx.RespondError(w, err)
				return
			}
		}
		out, err := fn(r, id, input)
		if err != nil {
			h.fail(w, op, err)
			return
		}
		httpx.Data(w, http.StatusOK, out)
	}
}

func (h *Handler) updatePurchase(w http.ResponseWriter, r *http.Request) {
	transition(h, "update purchase", func(r *http.Request, id int64, in UpdatePurchaseInput) (workflow.Outcome, error) {
		return h.service.UpdatePurchase(r.Context(), principal(r), id, in)
	})(w, r)
}

func (h *Handler) receivePurchase(w http.ResponseWriter, r *http.Request) {
	transition(h, "receive purchase", func(r *http.Request, id int64, in ReceiveInput) (workflow.Outcome, error) {
		return h.service.ReceivePurchase(r.Context(), principal(r), id, in)
	})(w, r)
}

func (h *Handler) cancelPurchase(w http.ResponseWriter, r *http.Request) {
	transition(h, "cancel purchase", func(r *http.Request, id int64, in CancelInput) (workflow.Outcome, error) {
		return h.service.CancelPurchase(r.Context(), principal(r), id, in)
	})(w, r)
}

func (h *Handler) payPurchase(w http.ResponseWriter, r *http.Request) {
	transition(h, "pay purchase", func(r *http.Request, id int64, in payments.ProposalInput) (payments.Payment, error) {
		proposal, err := in.Proposal()
		if err != nil {
			return payments.Payment{}, err
		}
		return h.service.PayPurchase(r.Context(), principal(r), id, proposal)
	})(w, r)
}

func (h *Handler) listReturns(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListReturns(r.Context(), httpx.ListFilter(r))
	if err != nil {
		h.fail(w, "list purchase returns", err)
		return
	}
	httpx.Data(w, http.StatusOK, page)
}

func (h *Handler) getReturn(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ret, err := h.service.GetReturn(r.Context(), id)
	if err != nil {
		h.fail(w, "get purchase return", err)
		return
	}
	httpx.Data(w, http.StatusOK, ret)
}

func (h *Handler) returnActions(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ret, actions, err := h.service.ReturnActions(r.Context(), principal(r), id)
	if err != nil {
		h.fail(w, "purchase return actions", err)
		return
	}
	httpx.Data(w, http.StatusOK, actionsResponse[PurchaseReturn]{Entity: ret, Actions: actions})
}

func (h *Handler) refundHistory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	refunds, err := h.service.RefundHistory(r.Context(), id)
	if err != nil {
		h.fail(w, "refund history", err)
		return
	}
	httpx.Data(w, http.StatusOK, refunds)
}

func (h *Handler) createReturn(w http.ResponseWriter, r *http.Request) {
	var input CreateReturnInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ret, err := h.service.CreateReturn(r.Context(), principal(r), input)
	if err != nil {
		h.fail(w, "create purchase return", err)
		return
	}
	httpx.Data(w, http.StatusCreated, ret)
}

func (h *Handler) approveReturn(w http.ResponseWriter, r *http.Request) {
	transition(h, "approve purchase return", func(r *http.Request, id int64, in ApproveInput) (workflow.Outcome, error) {
		return h.service.ApproveReturn(r.Context(), principal(r), id, in)
	})(w, r)
}

func (h *Handler) processReturn(w http.ResponseWriter, r *http.Request) {
	transition(h, "process purchase return", func(r *http.Request, id int64, in ProcessInput) (workflow.Outcome, error) {
		return h.service.ProcessReturn(r.Context(), principal(r), id, in)
	})(w, r)
}

func (h *Handler) cancelReturn(w http.ResponseWriter, r *http.Request) {
	transition(h, "cancel purchase return", func(r *http.Request, id int64, in CancelInput) (workflow.Outcome, error) {
		return h.service.CancelReturn(r.Context(), principal(r), id, in)
	})(w, r)
}

func (h *Handler) refundReturn(w http.ResponseWriter, r *http.Request) {
	transition(h, "refund purchase return", func(r *http.Request, id int64, in RefundInput) (Refund, error) {
		return h.service.RefundReturn(r.Context(), principal(r), id, in)
	})(w, r)
}
