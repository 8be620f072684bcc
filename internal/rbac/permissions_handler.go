package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-console/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// PermissionsHandler exposes the caller's principal and the console scopes it holds.
type PermissionsHandler struct {
	logger *slog.Logger
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger) *PermissionsHandler {
	return &PermissionsHandler{logger: logger}
}

// MountRoutes registers permission routes. They expect Authenticate upstream.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.me)
	r.Get("/permissions", h.permissions)
}

type meResponse struct {
	Principal *Principal `json:"principal"`
	Granted   []string   `json:"granted"`
}

func (h *PermissionsHandler) me(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	if p == nil {
		httpx.RespondError(w, ErrUnauthenticated)
		return
	}
	httpx.Data(w, http.StatusOK, meResponse{Principal: p, Granted: p.Granted(shared.ConsoleScopes())})
}

func (h *PermissionsHandler) permissions(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	scopes := shared.ConsoleScopes()
	out := make(map[string]bool, len(scopes))
	for _, scope := range scopes {
		out[scope] = p.Can(scope)
	}
	httpx.Data(w, http.StatusOK, out)
}
