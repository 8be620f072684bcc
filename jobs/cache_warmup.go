package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-console/internal/cache"
	jobmetrics "github.com/odyssey-erp/odyssey-console/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Warmer refetches the first page of one cached collection.
type Warmer func(ctx context.Context) error

// CacheWarmupJob refetches list views whose tags were just invalidated, so the next console
// read hits a populated cache.
type CacheWarmupJob struct {
	Warmers map[cache.Tag]Warmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
}

// NewCacheWarmupJob wires dependencies for the warmup handler.
func NewCacheWarmupJob(warmers map[cache.Tag]Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *CacheWarmupJob {
	return &CacheWarmupJob{Warmers: warmers, Logger: logger, Metrics: metrics, Timeout: 20 * time.Second}
}

// Handle processes cache warmup tasks.
func (j *CacheWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("cache warmup: handler not configured")
	}
	var payload CacheWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("cache warmup: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskCacheWarmup)
	logger := j.logger().With(slog.String("mutation", payload.Mutation))

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	group, groupCtx := errgroup.WithContext(runCtx)
	warmed := 0
	for _, name := range payload.Tags {
		tag := cache.Tag(name)
		warm, ok := j.Warmers[tag]
		if !ok {
			continue
		}
		warmed++
		group.Go(func() error {
			if err := warm(groupCtx); err != nil {
				return fmt.Errorf("warm %s: %w", tag, err)
			}
			j.metrics().AddWarmed(string(tag))
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		logger.Warn("cache warmup failed", slog.Any("tags", payload.Tags), slog.Any("error", err))
		return tracker.End(err)
	}
	logger.Debug("cache warmup completed", slog.Int("views", warmed))
	return tracker.End(nil)
}

func (j *CacheWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCacheWarmup))
	}
	return slog.Default().With(slog.String("job", TaskCacheWarmup))
}

func (j *CacheWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

// Enqueuer is the part of asynq.Client the scheduler needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// WarmupScheduler enqueues a warmup task for every settled invalidation. It is registered as a
// cache.Observer on the dispatcher.
type WarmupScheduler struct {
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewWarmupScheduler constructs the scheduler.
func NewWarmupScheduler(enqueuer Enqueuer, logger *slog.Logger) *WarmupScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WarmupScheduler{enqueuer: enqueuer, logger: logger}
}

// Invalidated implements cache.Observer. Enqueue failures are logged; the mutation already
// settled and the cache is merely cold.
func (s *WarmupScheduler) Invalidated(ctx context.Context, mutation cache.Mutation, tags []cache.Tag) {
	if s == nil || s.enqueuer == nil || len(tags) == 0 {
		return
	}
	task, err := NewCacheWarmupTask(mutation, tags)
	if err != nil {
		s.logger.Warn("build warmup task", slog.String("mutation", string(mutation)), slog.Any("error", err))
		return
	}
	if _, err := s.enqueuer.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(2), asynq.Timeout(time.Minute)); err != nil {
		s.logger.Warn("enqueue warmup", slog.String("mutation", string(mutation)), slog.Any("error", err))
	}
}
