package rbac

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-console/internal/remote"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

type stubLoader struct {
	calls     int
	principal Principal
	err       error
	tokens    []string
}

func (s *stubLoader) Me(ctx context.Context) (Principal, error) {
	s.calls++
	s.tokens = append(s.tokens, remote.TokenFromContext(ctx))
	return s.principal, s.err
}

func TestPrincipalCan(t *testing.T) {
	p := &Principal{Role: "clerk", Permissions: []string{"Purchases.Receive", "payments.supplier.create"}}
	require.True(t, p.Can("purchases.receive"))
	require.False(t, p.Can("purchase_returns.process"))
	require.Equal(t, []string{shared.PermPurchaseReceive, shared.PermSupplierPaymentCreate}, p.Granted(shared.ConsoleScopes()))

	admin := &Principal{Role: "SUPER_ADMIN"}
	require.True(t, admin.Can("anything.at.all"))

	var nobody *Principal
	require.False(t, nobody.Can(shared.PermPurchaseView))
}

func TestServiceMemoisesPerToken(t *testing.T) {
	loader := &stubLoader{principal: Principal{UserID: 4, Role: "clerk"}}
	svc := NewService(loader, time.Minute)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return now }

	ctx := remote.ContextWithToken(context.Background(), "tok-a")
	p, err := svc.Resolve(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 4, p.UserID)
	_, err = svc.Resolve(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, loader.calls)

	_, err = svc.Resolve(remote.ContextWithToken(context.Background(), "tok-b"))
	require.NoError(t, err)
	require.Equal(t, 2, loader.calls)

	now = now.Add(2 * time.Minute)
	_, err = svc.Resolve(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, loader.calls)

	svc.Forget(ctx)
	_, err = svc.Resolve(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, loader.calls)
	require.Equal(t, []string{"tok-a", "tok-b", "tok-a", "tok-a"}, loader.tokens)
}

func TestServiceMapsRejectedToken(t *testing.T) {
	svc := NewService(&stubLoader{err: &remote.RemoteRejection{StatusCode: 401, Message: "Token expired"}}, time.Minute)
	_, err := svc.Resolve(remote.ContextWithToken(context.Background(), "old"))
	require.ErrorIs(t, err, ErrUnauthenticated)
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = svc.Resolve(context.Background())
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func newRouter(loader Loader) http.Handler {
	mw := Middleware{Service: NewService(loader, time.Minute)}
	r := chi.NewRouter()
	r.Use(mw.Authenticate)
	r.With(mw.RequireAny(shared.PermPurchaseReturnApprove, shared.PermPurchaseReturnProcess)).Get("/any", func(w http.ResponseWriter, r *http.Request) {
		if remote.TokenFromContext(r.Context()) != "tok" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	r.With(mw.RequireAll(shared.PermPurchaseReturnApprove, shared.PermPurchaseReturnProcess)).Get("/all", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Route("/me", NewPermissionsHandler(nil).MountRoutes)
	return r
}

func do(h http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareGates(t *testing.T) {
	h := newRouter(&stubLoader{principal: Principal{UserID: 1, Role: "manager", Permissions: []string{shared.PermPurchaseReturnApprove}}})

	require.Equal(t, http.StatusUnauthorized, do(h, "/any", "").Code)
	require.Equal(t, http.StatusNoContent, do(h, "/any", "tok").Code)
	require.Equal(t, http.StatusForbidden, do(h, "/all", "tok").Code)

	rec := do(h, "/me", "tok")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data meResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, []string{shared.PermPurchaseReturnApprove}, body.Data.Granted)
}

func TestMiddlewareSurfacesNetworkFailure(t *testing.T) {
	h := newRouter(&stubLoader{err: &remote.NetworkFailure{}})
	require.Equal(t, http.StatusBadGateway, do(h, "/any", "tok").Code)
}
