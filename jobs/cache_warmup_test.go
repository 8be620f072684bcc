package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-console/internal/cache"
	jobmetrics "github.com/odyssey-erp/odyssey-console/internal/jobs"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (e *recordingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{Type: task.Type(), Queue: QueueDefault}, nil
}

func TestWarmupSchedulerEnqueuesInvalidatedTags(t *testing.T) {
	enq := &recordingEnqueuer{}
	dispatcher := cache.NewDispatcher(nil, nil, NewWarmupScheduler(enq, nil))

	dispatcher.Settle(context.Background(), cache.MutationReturnProcess)

	require.Len(t, enq.tasks, 1)
	require.Equal(t, TaskCacheWarmup, enq.tasks[0].Type())
	var payload CacheWarmupPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	require.Equal(t, "purchase_return.process", payload.Mutation)
	require.Subset(t, payload.Tags, []string{"PurchaseReturns", "Purchases", "Inventory", "Accounts"})
}

func TestWarmupSchedulerSwallowsEnqueueErrors(t *testing.T) {
	enq := &recordingEnqueuer{err: errors.New("redis down")}
	dispatcher := cache.NewDispatcher(nil, nil, NewWarmupScheduler(enq, nil))

	tags, err := dispatcher.Dispatch(context.Background(), cache.MutationSaleCreate)
	require.NoError(t, err)
	require.Contains(t, tags, cache.TagSales)
}

func TestCacheWarmupJobRunsKnownWarmers(t *testing.T) {
	var mu sync.Mutex
	var warmed []cache.Tag
	warmer := func(tag cache.Tag) Warmer {
		return func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			warmed = append(warmed, tag)
			return nil
		}
	}
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	job := NewCacheWarmupJob(map[cache.Tag]Warmer{
		cache.TagPurchases:       warmer(cache.TagPurchases),
		cache.TagPurchaseReturns: warmer(cache.TagPurchaseReturns),
		cache.TagSales:           warmer(cache.TagSales),
	}, nil, metrics)

	task, err := NewCacheWarmupTask(cache.MutationReturnCancel, []cache.Tag{cache.TagPurchases, cache.TagInventory, cache.TagPurchaseReturns})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.ElementsMatch(t, []cache.Tag{cache.TagPurchases, cache.TagPurchaseReturns}, warmed)
}

func TestCacheWarmupJobReportsFailure(t *testing.T) {
	job := NewCacheWarmupJob(map[cache.Tag]Warmer{
		cache.TagSales: func(ctx context.Context) error { return errors.New("api unavailable") },
	}, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewCacheWarmupTask(cache.MutationSaleCreate, []cache.Tag{cache.TagSales})
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.ErrorContains(t, err, "warm Sales")

	err = job.Handle(context.Background(), asynq.NewTask(TaskCacheWarmup, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestJobMetricsTrackWarmup(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	job := NewCacheWarmupJob(map[cache.Tag]Warmer{
		cache.TagProducts: func(ctx context.Context) error { return nil },
	}, nil, metrics)

	task, err := NewCacheWarmupTask(cache.MutationProductCreate, []cache.Tag{cache.TagProducts, cache.TagSuppliers})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	families, err := registry.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if counter := metric.GetCounter(); counter != nil {
				values[family.GetName()] += counter.GetValue()
			}
		}
	}
	require.Equal(t, 1.0, values["odyssey_jobs_total"])
	require.Equal(t, 1.0, values["odyssey_cache_warmed_views_total"])
	require.Zero(t, values["odyssey_jobs_failures_total"])
}

type staticInspector struct{ info *asynq.QueueInfo }

func (s staticInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, nil
}

func TestHandlerHealth(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(staticInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, nil).MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":3}`, rec.Body.String())
}

func TestWarmupCronRegistersPeriodicWarmup(t *testing.T) {
	regs, err := WarmupCron("", []cache.Tag{cache.TagSales})
	require.NoError(t, err)
	require.Empty(t, regs)

	regs, err = WarmupCron("@every 10m", []cache.Tag{cache.TagSales, cache.TagAccounts})
	require.NoError(t, err)
	require.Len(t, regs, 1)
	require.Equal(t, "@every 10m", regs[0].Spec)
	require.Equal(t, TaskCacheWarmup, regs[0].Task.Type())

	var payload CacheWarmupPayload
	require.NoError(t, json.Unmarshal(regs[0].Task.Payload(), &payload))
	require.Equal(t, []string{"Accounts", "Sales"}, payload.Tags)
	require.Empty(t, payload.Mutation)

	redisOpts := asynq.RedisClientOpt{Addr: miniredis.RunT(t).Addr()}
	worker, err := NewWorker(WorkerConfig{RedisOpts: redisOpts, Cron: regs})
	require.NoError(t, err)
	require.NotNil(t, worker.scheduler)

	_, err = NewWorker(WorkerConfig{RedisOpts: redisOpts, Cron: []CronRegistration{{Spec: "not a cron", Task: regs[0].Task}}})
	require.Error(t, err)

	worker, err = NewWorker(WorkerConfig{RedisOpts: redisOpts})
	require.NoError(t, err)
	require.Nil(t, worker.scheduler)
}
