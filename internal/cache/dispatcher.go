package cache

import (
	"context"
	"log/slog"
	"time"
)

// SettleTimeout bounds the invalidation run after a committed write.
const SettleTimeout = 5 * time.Second

// Invalidator marks tags stale so the next read refetches them.
type Invalidator interface {
	Invalidate(ctx context.Context, tags ...Tag) error
}

// Observer is told about every successful dispatch.
type Observer interface {
	Invalidated(ctx context.Context, mutation Mutation, tags []Tag)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, mutation Mutation, tags []Tag)

// Invalidated implements Observer.
func (f ObserverFunc) Invalidated(ctx context.Context, mutation Mutation, tags []Tag) {
	f(ctx, mutation, tags)
}

// Dispatcher turns a settled mutation into invalidations using the graph.
type Dispatcher struct {
	invalidator Invalidator
	observers   []Observer
	logger      *slog.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(invalidator Invalidator, logger *slog.Logger, observers ...Observer) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{invalidator: invalidator, observers: observers, logger: logger}
}

// Dispatch invalidates every tag mapped to mutation and returns them. It runs synchronously so
// the invalidation lands before the caller's success path returns.
func (d *Dispatcher) Dispatch(ctx context.Context, mutation Mutation) ([]Tag, error) {
	tags, err := TagsFor(mutation)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return tags, nil
	}
	if d.invalidator != nil {
		if err := d.invalidator.Invalidate(ctx, tags...); err != nil {
			d.logger.Error("invalidate tags",
				slog.String("mutation", string(mutation)),
				slog.Any("tags", tags),
				slog.Any("error", err))
			return tags, err
		}
	}
	d.logger.Debug("tags invalidated", slog.String("mutation", string(mutation)), slog.Any("tags", tags))
	for _, obs := range d.observers {
		obs.Invalidated(ctx, mutation, tags)
	}
	return tags, nil
}

// Settle dispatches mutation after the remote write committed. The invalidation runs detached
// from ctx's cancellation so a timed-out or disconnected request still bumps its tags. An
// invalidation failure is logged by Dispatch and not returned, since the write itself succeeded.
func (d *Dispatcher) Settle(ctx context.Context, mutation Mutation) []Tag {
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SettleTimeout)
	defer cancel()
	tags, _ := d.Dispatch(settleCtx, mutation)
	return tags
}
