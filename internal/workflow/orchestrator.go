package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-console/internal/cache"
	"github.com/odyssey-erp/odyssey-console/internal/remote"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// Principal is the permission gate supplied by the auth collaborator.
type Principal interface {
	Can(permission string) bool
}

// Recorder observes mutation outcomes.
type Recorder interface {
	ObserveMutation(entity string, action string, outcome string, duration time.Duration)
}

// Mutation outcomes reported to the Recorder.
const (
	OutcomeSettled  = "settled"
	OutcomeRejected = "rejected"
	OutcomeNetwork  = "network_error"
)

// ActionView describes one action button.
type ActionView struct {
	Action     Action  `json:"action"`
	Label      string  `json:"label"`
	Permission string  `json:"permission"`
	Modal      Modal   `json:"modal,omitempty"`
	Fields     []Field `json:"fields,omitempty"`
	Enabled    bool    `json:"enabled"`
	Reason     string  `json:"reason,omitempty"`
}

// Outcome is a settled transition. To is the status the server is expected to report; the
// caller refetches rather than trusting it.
type Outcome struct {
	Action Action      `json:"action"`
	From   Status      `json:"from"`
	To     Status      `json:"to"`
	Tags   []cache.Tag `json:"tags,omitempty"`
}

// Orchestrator serialises workflow mutations per entity and settles their invalidations.
type Orchestrator struct {
	dispatcher *cache.Dispatcher
	recorder   Recorder
	logger     *slog.Logger

	mu       sync.Mutex
	inflight map[string]Action
}

// NewOrchestrator constructs an Orchestrator. recorder may be nil.
func NewOrchestrator(dispatcher *cache.Dispatcher, recorder Recorder, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{dispatcher: dispatcher, recorder: recorder, logger: logger, inflight: make(map[string]Action)}
}

// Pending returns the action currently in flight for key.
func (o *Orchestrator) Pending(key string) (Action, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	action, ok := o.inflight[key]
	return action, ok
}

func (o *Orchestrator) acquire(key string, action Action) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if running, ok := o.inflight[key]; ok {
		return fmt.Errorf("%w: %s is running %s", ErrMutationInFlight, key, running)
	}
	o.inflight[key] = action
	return nil
}

func (o *Orchestrator) release(key string) {
	o.mu.Lock()
	delete(o.inflight, key)
	o.mu.Unlock()
}

// Actions lists the actions legal for subject in table order. Actions the principal may not
// see are omitted. The rest are disabled while any mutation on subject is pending or when a
// guard fails.
func Actions[S Subject](o *Orchestrator, m *Machine[S], p Principal, subject S) []ActionView {
	pending, busy := o.Pending(subject.Key())
	views := make([]ActionView, 0)
	for _, tr := range m.From(subject.CurrentStatus()) {
		if p == nil || !p.Can(tr.Permission) {
			continue
		}
		view := ActionView{
			Action:     tr.Action,
			Label:      tr.Label,
			Permission: tr.Permission,
			Modal:      tr.Modal,
			Fields:     tr.Fields,
			Enabled:    true,
		}
		switch {
		case busy:
			view.Enabled = false
			view.Reason = fmt.Sprintf("%s in progress", pending)
		case tr.Guard != nil:
			if err := tr.Guard(subject); err != nil {
				view.Enabled = false
				view.Reason = err.Error()
			}
		}
		views = append(views, view)
	}
	return views
}

// Execute runs action on subject. The transition, the permission and the guard are checked
// before submit is called, so an illegal action never reaches the network. submit runs at most
// once and is never retried. On success the transition's mutation is dispatched before Execute
// returns; on failure status is left as it was and the error is returned unchanged.
func Execute[S Subject](ctx context.Context, o *Orchestrator, m *Machine[S], p Principal, subject S, action Action, submit func(context.Context) error) (Outcome, error) {
	from := subject.CurrentStatus()
	tr, err := m.Find(from, action)
	if err != nil {
		return Outcome{}, err
	}
	if p == nil || !p.Can(tr.Permission) {
		return Outcome{}, fmt.Errorf("%w: %s requires %s", ErrForbidden, action, tr.Permission)
	}
	if tr.Guard != nil {
		if err := tr.Guard(subject); err != nil {
			return Outcome{}, err
		}
	}
	key := subject.Key()
	if err := o.acquire(key, action); err != nil {
		return Outcome{}, err
	}
	defer o.release(key)

	logger := o.logger.With(
		slog.String("entity", key),
		slog.String("action", string(action)),
		slog.String("from", string(from)),
	)
	start := time.Now()
	if err := submit(ctx); err != nil {
		outcome := OutcomeRejected
		var netErr *remote.NetworkFailure
		if errors.As(err, &netErr) {
			outcome = OutcomeNetwork
		}
		if !shared.IsValidation(err) {
			o.observe(m.Entity(), action, outcome, time.Since(start))
		}
		logger.Warn("transition failed", slog.Any("error", err))
		return Outcome{}, err
	}
	o.observe(m.Entity(), action, OutcomeSettled, time.Since(start))

	to := tr.To
	if tr.SelfLoop() {
		to = from
	}
	out := Outcome{Action: action, From: from, To: to}
	if tr.Mutation != "" {
		out.Tags = o.dispatcher.Settle(ctx, tr.Mutation)
	}
	logger.Info("transition settled", slog.String("to", string(to)))
	return out, nil
}

func (o *Orchestrator) observe(entity string, action Action, outcome string, d time.Duration) {
	if o.recorder == nil {
		return
	}
	o.recorder.ObserveMutation(entity, string(action), outcome, d)
}
