package jobs

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-console/internal/cache"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCacheWarmup refetches list views after their tags were invalidated.
	TaskCacheWarmup = "cache:warmup"
)

// CacheWarmupPayload names the invalidated tags to warm.
type CacheWarmupPayload struct {
	Mutation string   `json:"mutation,omitempty"`
	Tags     []string `json:"tags"`
}

// NewCacheWarmupTask constructs the warmup task for tags. Tags are sorted so identical
// invalidations produce identical payloads.
func NewCacheWarmupTask(mutation cache.Mutation, tags []cache.Tag) (*asynq.Task, error) {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, string(tag))
	}
	sort.Strings(names)
	data, err := json.Marshal(CacheWarmupPayload{Mutation: string(mutation), Tags: names})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheWarmup, data), nil
}

// WarmupCron schedules a periodic warmup of tags. An empty spec schedules nothing.
func WarmupCron(spec string, tags []cache.Tag) ([]CronRegistration, error) {
	if spec == "" || len(tags) == 0 {
		return nil, nil
	}
	task, err := NewCacheWarmupTask("", tags)
	if err != nil {
		return nil, err
	}
	return []CronRegistration{{
		Spec:    spec,
		Task:    task,
		Options: []asynq.Option{asynq.Queue(QueueDefault), asynq.MaxRetry(0), asynq.Timeout(time.Minute)},
	}}, nil
}
