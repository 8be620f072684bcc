package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-console/internal/cache"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

type fakeAPI struct {
	mu      sync.Mutex
	returns map[string]string
	calls   map[string]int
}

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"statusCode": status, "data": data}
	if status >= 400 {
		body["message"] = data
		delete(body, "data")
	}
	_ = json.NewEncoder(w).Encode(body)
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{returns: map[string]string{"7": "draft", "8": "approved"}, calls: map[string]int{}}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer good" {
				writeEnvelope(w, http.StatusUnauthorized, "invalid token")
				return
			}
			api.mu.Lock()
			api.calls[r.Method+" "+r.URL.Path]++
			api.mu.Unlock()
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{"id": 1, "name": "Rina", "role": "manager", "permissions": shared.ConsoleScopes()})
	})
	r.Get("/purchase-returns/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		api.mu.Lock()
		status := api.returns[id]
		api.mu.Unlock()
		writeEnvelope(w, http.StatusOK, map[string]any{"id": json.Number(id), "return_no": "RET-" + id, "status": status, "total": "150.00"})
	})
	r.Patch("/purchase-returns/{id}/process", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		api.mu.Lock()
		api.returns[id] = "processed"
		api.mu.Unlock()
		writeEnvelope(w, http.StatusOK, map[string]any{"id": json.Number(id), "status": "processed"})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *fakeAPI) count(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[key]
}

func newTestConsole(t *testing.T, baseURL string) *Console {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cfg := &Config{
		AppEnv:            "test",
		AppRequestTimeout: 5 * time.Second,
		APIBaseURL:        baseURL,
		APITimeout:        2 * time.Second,
		CacheTTL:          time.Minute,
		PrincipalTTL:      time.Minute,
		Currency:          "IDR",
		RateLimitPerMin:   1000,
	}
	console, err := NewConsole(context.Background(), cfg, nil, Options{Redis: rdb})
	require.NoError(t, err)
	t.Cleanup(func() { _ = console.Close() })
	return console
}

func do(handler http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRouterAuthenticatesAgainstRemote(t *testing.T) {
	_, srv := newFakeAPI(t)
	handler := NewServerRouter(newTestConsole(t, srv.URL), nil)

	require.Equal(t, http.StatusOK, do(handler, http.MethodGet, "/healthz", "").Code)
	require.Equal(t, http.StatusUnauthorized, do(handler, http.MethodGet, "/auth/me", "").Code)
	require.Equal(t, http.StatusUnauthorized, do(handler, http.MethodGet, "/auth/me", "bad").Code)

	rec := do(handler, http.MethodGet, "/auth/me", "good")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"role":"manager"`)
	require.Contains(t, rec.Body.String(), shared.PermPurchaseReturnProcess)
}

func TestRouterProcessReturnEndToEnd(t *testing.T) {
	api, srv := newFakeAPI(t)
	console := newTestConsole(t, srv.URL)
	handler := NewServerRouter(console, nil)

	rec := do(handler, http.MethodPatch, "/purchase-returns/7/process", "good")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Zero(t, api.count("PATCH /purchase-returns/7/process"))

	rec = do(handler, http.MethodGet, "/purchase-returns/8", "good")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"approved"`)
	require.Equal(t, 1, api.count("GET /purchase-returns/8"))

	rec = do(handler, http.MethodPatch, "/purchase-returns/8/process", "good")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"to":"processed"`)

	// the process mutation bumped PurchaseReturns, so the next read goes back to the API
	ver, err := console.Store.Version(context.Background(), cache.TagPurchaseReturns)
	require.NoError(t, err)
	require.Positive(t, ver)
	rec = do(handler, http.MethodGet, "/purchase-returns/8", "good")
	require.Contains(t, rec.Body.String(), `"status":"processed"`)

	metrics := do(handler, http.MethodGet, "/metrics", "")
	require.Contains(t, metrics.Body.String(), `odyssey_workflow_mutations_total{action="process",entity="purchase_return",outcome="settled"} 1`)
	require.Contains(t, metrics.Body.String(), `odyssey_cache_invalidations_total{mutation="purchase_return.process",tag="Accounts"} 1`)
}

func TestWorkflowGraphEndpoint(t *testing.T) {
	_, srv := newFakeAPI(t)
	handler := NewServerRouter(newTestConsole(t, srv.URL), nil)

	rec := do(handler, http.MethodGet, "/workflow/graph", "good")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data WorkflowGraph `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Machines, 3)
	require.Equal(t, "purchase", body.Data.Machines[0].Entity)
	require.Len(t, body.Data.Invalidation, len(cache.Graph()))
}

func TestConsoleWarmersCoverListViews(t *testing.T) {
	_, srv := newFakeAPI(t)
	warmers := newTestConsole(t, srv.URL).Warmers()
	for _, tag := range []cache.Tag{cache.TagPurchases, cache.TagPurchaseReturns, cache.TagSales, cache.TagProducts, cache.TagAccounts} {
		require.Contains(t, warmers, tag)
	}
}

func TestLoadConfigReadsDotenv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "console.env")
	require.NoError(t, os.WriteFile(envFile, []byte("API_BASE_URL=https://api.example.test/v1\nCURRENCY=USD\n"), 0o600))
	t.Setenv("API_BASE_URL", "")
	require.NoError(t, os.Unsetenv("API_BASE_URL"))
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CACHE_WARMUP_CRON", "@every 15m")

	cfg, err := LoadConfig(envFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "https://api.example.test/v1", cfg.APIBaseURL)
	require.Equal(t, "USD", cfg.Currency)
	require.Equal(t, 5*time.Minute, cfg.CacheTTL)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "@every 15m", cfg.CacheWarmupCron)
}

func TestConfigValidateRejectsRelativeBaseURL(t *testing.T) {
	for _, raw := range []string{"", "/api", "ftp://files.example.test", "localhost:3000"} {
		cfg := &Config{APIBaseURL: raw, Currency: "IDR"}
		err := cfg.Validate()
		require.Error(t, err, raw)
		require.True(t, strings.Contains(err.Error(), "absolute"), raw)
	}
	require.NoError(t, (&Config{APIBaseURL: "http://127.0.0.1:3000", Currency: "IDR"}).Validate())
}
