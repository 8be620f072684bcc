package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-console/internal/app"
	"github.com/odyssey-erp/odyssey-console/internal/cache"
	"github.com/odyssey-erp/odyssey-console/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client, err := jobs.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &JobsCLI{client: client, inspector: asynq.NewInspector(opts)}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Warmup enqueues a cache warmup for the named tags.
func (c *JobsCLI) Warmup(ctx context.Context, names []string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	tags, err := parseTags(names)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueCacheWarmup(ctx, tags)
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue() (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
	}
	return stats, nil
}

func parseTags(names []string) ([]cache.Tag, error) {
	known := make(map[cache.Tag]struct{})
	for _, entry := range cache.Graph() {
		for _, tag := range entry.Tags {
			known[tag] = struct{}{}
		}
	}
	tags := make([]cache.Tag, 0, len(names))
	for _, name := range names {
		tag := cache.Tag(name)
		if _, ok := known[tag]; !ok {
			return nil, fmt.Errorf("jobs cli: unknown tag %q", name)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func newJobsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}
	open := func(cmd *cobra.Command) (*JobsCLI, error) {
		envFile, _ := cmd.Flags().GetString("env-file")
		cfg, err := app.LoadConfig(envFile)
		if err != nil {
			return nil, err
		}
		return NewJobsCLI(cfg.RedisAddr)
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "warmup TAG...",
		Short: "Enqueue a cache warmup for tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jc, err := open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = jc.Close() }()
			info, err := jc.Warmup(cmd.Context(), args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s (%s) on %s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show default queue counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jc, err := open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = jc.Close() }()
			stats, err := jc.InspectQueue()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
				stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
			return nil
		},
	})
	return cmd
}
