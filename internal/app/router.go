package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-console/internal/accounts"
	"github.com/odyssey-erp/odyssey-console/internal/cache"
	"github.com/odyssey-erp/odyssey-console/internal/catalog"
	"github.com/odyssey-erp/odyssey-console/internal/observability"
	"github.com/odyssey-erp/odyssey-console/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-console/internal/procurement"
	"github.com/odyssey-erp/odyssey-console/internal/rbac"
	"github.com/odyssey-erp/odyssey-console/internal/sales"
	"github.com/odyssey-erp/odyssey-console/internal/workflow"
	"github.com/odyssey-erp/odyssey-console/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	RBACMiddleware     rbac.Middleware
	PermissionsHandler *rbac.PermissionsHandler
	ProcurementHandler *procurement.Handler
	SalesHandler       *sales.Handler
	CatalogHandler     *catalog.Handler
	AccountsHandler    *accounts.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with console defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(params.RBACMiddleware.Authenticate)

		if params.PermissionsHandler != nil {
			r.Route("/auth/me", params.PermissionsHandler.MountRoutes)
		}
		r.Get("/workflow/graph", workflowGraph)
		if params.ProcurementHandler != nil {
			r.Route("/purchases", params.ProcurementHandler.MountRoutes)
			r.Route("/purchase-returns", params.ProcurementHandler.MountReturnRoutes)
		}
		if params.SalesHandler != nil {
			r.Route("/sales", params.SalesHandler.MountRoutes)
		}
		if params.CatalogHandler != nil {
			r.Route("/products", params.CatalogHandler.MountRoutes)
		}
		if params.AccountsHandler != nil {
			r.Route("/accounts", params.AccountsHandler.MountRoutes)
		}
	})

	return r
}

// WorkflowGraph is the audit dump of every transition table and the invalidation graph.
type WorkflowGraph struct {
	Machines     []workflow.Table   `json:"machines"`
	Invalidation []cache.GraphEntry `json:"invalidation"`
}

// Graph collects the console's transition tables and invalidation graph.
func Graph() WorkflowGraph {
	machines := []workflow.Describer{procurement.PurchaseMachine, procurement.ReturnMachine, sales.SaleMachine}
	out := WorkflowGraph{Invalidation: cache.Graph()}
	for _, m := range machines {
		out.Machines = append(out.Machines, m.Describe())
	}
	return out
}

func workflowGraph(w http.ResponseWriter, r *http.Request) {
	httpx.Data(w, http.StatusOK, Graph())
}

// NewServerRouter builds handlers over a wired Console and returns the router.
func NewServerRouter(c *Console, jobHandler *jobs.Handler) http.Handler {
	mw := rbac.Middleware{Service: c.RBAC, Logger: c.Logger}
	return NewRouter(RouterParams{
		Logger:             c.Logger,
		Config:             c.Config,
		RBACMiddleware:     mw,
		PermissionsHandler: rbac.NewPermissionsHandler(c.Logger),
		ProcurementHandler: procurement.NewHandler(c.Logger, c.Procurement, mw),
		SalesHandler:       sales.NewHandler(c.Logger, c.Sales, mw),
		CatalogHandler:     catalog.NewHandler(c.Logger, c.Catalog, mw),
		AccountsHandler:    accounts.NewHandler(c.Logger, c.Accounts, mw),
		JobHandler:         jobHandler,
		Metrics:            c.Metrics,
	})
}
