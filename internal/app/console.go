package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-console/internal/accounts"
	"github.com/odyssey-erp/odyssey-console/internal/cache"
	"github.com/odyssey-erp/odyssey-console/internal/catalog"
	"github.com/odyssey-erp/odyssey-console/internal/observability"
	"github.com/odyssey-erp/odyssey-console/internal/payments"
	platformcache "github.com/odyssey-erp/odyssey-console/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-console/internal/procurement"
	"github.com/odyssey-erp/odyssey-console/internal/rbac"
	"github.com/odyssey-erp/odyssey-console/internal/remote"
	"github.com/odyssey-erp/odyssey-console/internal/sales"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
	"github.com/odyssey-erp/odyssey-console/internal/workflow"
	"github.com/odyssey-erp/odyssey-console/jobs"
)

// Console holds the wired services shared by the HTTP server, the worker and the CLI.
type Console struct {
	Config     *Config
	Logger     *slog.Logger
	Remote     *remote.Client
	Redis      *redis.Client
	Store      *cache.Store
	Dispatcher *cache.Dispatcher
	Metrics    *observability.Metrics
	Jobs       *jobs.Client

	RBAC        *rbac.Service
	Accounts    *accounts.Service
	Payments    *payments.Service
	Procurement *procurement.Service
	Sales       *sales.Service
	Catalog     *catalog.Service

	closers []func() error
}

// Options tweaks NewConsole.
type Options struct {
	// Redis overrides the client dialled from REDIS_ADDR. Tests pass a miniredis client.
	Redis *redis.Client
	// DisableRedis runs without a cache; every read goes to the API.
	DisableRedis bool
}

// NewConsole dials collaborators and wires every service. An unreachable Redis is logged and
// the console runs uncached.
func NewConsole(ctx context.Context, cfg *Config, logger *slog.Logger, opts Options) (*Console, error) {
	if cfg == nil {
		return nil, errors.New("app: config required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Console{Config: cfg, Logger: logger, Metrics: observability.NewMetrics()}

	client, err := remote.NewClient(remote.Config{BaseURL: cfg.APIBaseURL, Token: cfg.APIToken, Timeout: cfg.APITimeout}, logger)
	if err != nil {
		return nil, err
	}
	c.Remote = client

	switch {
	case opts.Redis != nil:
		c.Redis = opts.Redis
	case opts.DisableRedis || cfg.RedisAddr == "":
	default:
		rdb, err := platformcache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, running without cache", slog.Any("error", err))
		} else {
			c.Redis = rdb
			c.closers = append(c.closers, rdb.Close)
		}
	}
	c.Store = cache.NewStore(c.Redis, cfg.CacheTTL)

	observers := []cache.Observer{c.Metrics}
	if cfg.CacheWarmup && c.Redis != nil {
		jc, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		if err != nil {
			return nil, err
		}
		c.Jobs = jc
		c.closers = append(c.closers, jc.Close)
		observers = append(observers, jobs.NewWarmupScheduler(jc, logger))
	}
	c.Dispatcher = cache.NewDispatcher(c.Store, logger, observers...)
	orch := workflow.NewOrchestrator(c.Dispatcher, c.Metrics, logger)

	c.RBAC = rbac.NewService(rbac.NewRemoteLoader(client), cfg.PrincipalTTL)
	c.Accounts = accounts.NewService(accounts.NewRemoteGateway(client), c.Store, c.Dispatcher, logger)
	c.Payments = payments.NewService(payments.NewRemoteGateway(client), c.Dispatcher, logger)
	c.Procurement = procurement.NewService(procurement.NewRemoteGateway(client), c.Store, orch, c.Dispatcher, c.Payments, c.Accounts, logger)
	c.Sales = sales.NewService(sales.NewRemoteGateway(client), c.Store, orch, c.Dispatcher, c.Payments, c.Accounts, cfg.Currency, logger)
	c.Catalog = catalog.NewService(catalog.NewRemoteGateway(client), c.Store, c.Dispatcher, logger)
	return c, nil
}

// ListenForInvalidation forwards invalidations broadcast by other console instances into the
// local listeners until ctx is done.
func (c *Console) ListenForInvalidation(ctx context.Context) {
	c.Store.OnInvalidate(func(tags []cache.Tag) {
		c.Logger.Debug("cache tags bumped", slog.Any("tags", tags))
	})
	if err := c.Store.ListenForInvalidation(ctx); err != nil {
		c.Logger.Warn("cache invalidation listener", slog.Any("error", err))
	}
}

// Warmers returns the list views refetched by the cache warmup job, keyed by the tag they are
// cached under. Only first pages are warmed.
func (c *Console) Warmers() map[cache.Tag]jobs.Warmer {
	first := shared.FirstPage()
	return map[cache.Tag]jobs.Warmer{
		cache.TagPurchases: func(ctx context.Context) error {
			_, err := c.Procurement.ListPurchases(ctx, first)
			return err
		},
		cache.TagPurchaseReturns: func(ctx context.Context) error {
			_, err := c.Procurement.ListReturns(ctx, first)
			return err
		},
		cache.TagSales: func(ctx context.Context) error {
			_, err := c.Sales.ListSales(ctx, first)
			return err
		},
		cache.TagProducts: func(ctx context.Context) error {
			_, err := c.Catalog.List(ctx, first)
			return err
		},
		cache.TagAccounts: func(ctx context.Context) error {
			_, err := c.Accounts.List(ctx)
			return err
		},
	}
}

// Close releases the connections opened by NewConsole.
func (c *Console) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
