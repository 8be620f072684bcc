package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-console/internal/cache"
	"github.com/odyssey-erp/odyssey-console/internal/remote"
)

type ticket struct {
	id     int
	status Status
	open   bool
}

func (t ticket) Key() string            { return fmt.Sprintf("ticket:%d", t.id) }
func (t ticket) CurrentStatus() Status { return t.status }

var errClosed = errors.New("ticket closed for notes")

var ticketMachine = NewMachine("ticket", []Status{"new", "done", "dropped"},
	Transition[ticket]{From: "new", Action: "finish", To: "done", Permission: "tickets.finish", Modal: ModalConfirm, Mutation: cache.MutationPurchaseReceive},
	Transition[ticket]{From: "new", Action: "drop", To: "dropped", Permission: "tickets.drop", Fields: []Field{{Name: "reason", Required: true}}},
	Transition[ticket]{From: "done", Action: "note", To: "done", Permission: "tickets.note", Guard: func(t ticket) error {
		if !t.open {
			return errClosed
		}
		return nil
	}},
)

type perms map[string]bool

func (p perms) Can(permission string) bool { return p[permission] }

type recorder struct{ outcomes []string }

func (r *recorder) ObserveMutation(entity, action, outcome string, d time.Duration) {
	r.outcomes = append(r.outcomes, entity+"."+action+":"+outcome)
}

type captured struct{ tags []cache.Tag }

func (c *captured) Invalidate(ctx context.Context, tags ...cache.Tag) error {
	c.tags = append(c.tags, tags...)
	return nil
}

var everyone = perms{"tickets.finish": true, "tickets.drop": true, "tickets.note": true}

func TestMachineTable(t *testing.T) {
	require.Equal(t, "ticket", ticketMachine.Entity())
	require.Len(t, ticketMachine.From("new"), 2)
	require.False(t, ticketMachine.Terminal("new"))
	require.True(t, ticketMachine.Terminal("done"))
	require.True(t, ticketMachine.Terminal("dropped"))

	_, err := ticketMachine.Find("dropped", "finish")
	require.ErrorIs(t, err, ErrInvalidTransition)

	require.Panics(t, func() {
		NewMachine("bad", []Status{"a"}, Transition[ticket]{From: "a", Action: "x", To: "b"})
	})
	require.Panics(t, func() {
		NewMachine("dup", []Status{"a"},
			Transition[ticket]{From: "a", Action: "x", To: "a"},
			Transition[ticket]{From: "a", Action: "x", To: "a"})
	})
}

func TestActionsFilterByPermissionAndGuard(t *testing.T) {
	o := NewOrchestrator(nil, nil, nil)
	views := Actions(o, ticketMachine, perms{"tickets.drop": true}, ticket{id: 1, status: "new"})
	require.Len(t, views, 1)
	require.Equal(t, Action("drop"), views[0].Action)
	require.True(t, views[0].Enabled)
	require.Equal(t, []Field{{Name: "reason", Required: true}}, views[0].Fields)

	views = Actions(o, ticketMachine, everyone, ticket{id: 1, status: "done"})
	require.Len(t, views, 1)
	require.False(t, views[0].Enabled)
	require.Equal(t, errClosed.Error(), views[0].Reason)

	require.Empty(t, Actions(o, ticketMachine, nil, ticket{id: 1, status: "new"}))
}

func TestExecuteRejectsIllegalActionBeforeSubmit(t *testing.T) {
	o := NewOrchestrator(nil, nil, nil)
	called := false
	submit := func(context.Context) error { called = true; return nil }

	_, err := Execute(context.Background(), o, ticketMachine, everyone, ticket{id: 1, status: "dropped"}, "finish", submit)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Execute(context.Background(), o, ticketMachine, perms{}, ticket{id: 1, status: "new"}, "finish", submit)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = Execute(context.Background(), o, ticketMachine, everyone, ticket{id: 1, status: "done"}, "note", submit)
	require.ErrorIs(t, err, errClosed)
	require.False(t, called)
}

func TestExecuteDispatchesAfterSuccess(t *testing.T) {
	inv := &captured{}
	rec := &recorder{}
	o := NewOrchestrator(cache.NewDispatcher(inv, nil), rec, nil)

	out, err := Execute(context.Background(), o, ticketMachine, everyone, ticket{id: 2, status: "new"}, "finish", func(context.Context) error {
		require.Empty(t, inv.tags)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, Status("new"), out.From)
	require.Equal(t, Status("done"), out.To)
	want, err := cache.TagsFor(cache.MutationPurchaseReceive)
	require.NoError(t, err)
	require.ElementsMatch(t, want, out.Tags)
	require.ElementsMatch(t, want, inv.tags)
	require.Equal(t, []string{"ticket.finish:settled"}, rec.outcomes)

	out, err = Execute(context.Background(), o, ticketMachine, everyone, ticket{id: 2, status: "done", open: true}, "note", func(context.Context) error { return nil })
	require.NoError(t, err)
	require.Equal(t, Status("done"), out.To)
	require.Empty(t, out.Tags)
}

func TestExecuteFailureLeavesStateAndReleases(t *testing.T) {
	inv := &captured{}
	rec := &recorder{}
	o := NewOrchestrator(cache.NewDispatcher(inv, nil), rec, nil)
	subject := ticket{id: 3, status: "new"}

	rejection := &remote.RemoteRejection{StatusCode: 409, Message: "Purchase already received"}
	_, err := Execute(context.Background(), o, ticketMachine, everyone, subject, "finish", func(context.Context) error { return rejection })
	require.ErrorIs(t, err, rejection)
	require.Equal(t, "Purchase already received", err.Error())
	require.Empty(t, inv.tags)

	_, err = Execute(context.Background(), o, ticketMachine, everyone, subject, "finish", func(context.Context) error {
		return &remote.NetworkFailure{Err: errors.New("dial tcp: refused")}
	})
	require.Error(t, err)
	_, busy := o.Pending(subject.Key())
	require.False(t, busy)
	require.Equal(t, []string{"ticket.finish:rejected", "ticket.finish:network_error"}, rec.outcomes)
}

func TestExecuteRefusesConcurrentMutationOnSameEntity(t *testing.T) {
	o := NewOrchestrator(nil, nil, nil)
	subject := ticket{id: 4, status: "new"}
	started := make(chan struct{})
	finish := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_, err := Execute(context.Background(), o, ticketMachine, everyone, subject, "finish", func(context.Context) error {
			close(started)
			<-finish
			return nil
		})
		done <- err
	}()
	<-started

	_, err := Execute(context.Background(), o, ticketMachine, everyone, subject, "drop", func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrMutationInFlight)

	views := Actions(o, ticketMachine, everyone, subject)
	for _, v := range views {
		require.False(t, v.Enabled)
	}

	other := ticket{id: 5, status: "new"}
	_, err = Execute(context.Background(), o, ticketMachine, everyone, other, "drop", func(context.Context) error { return nil })
	require.NoError(t, err)

	close(finish)
	require.NoError(t, <-done)
	_, busy := o.Pending(subject.Key())
	require.False(t, busy)
}

func TestDescribeListsEdgesInOrder(t *testing.T) {
	var d Describer = ticketMachine
	table := d.Describe()
	require.Equal(t, "ticket", table.Entity)
	require.Len(t, table.Edges, 3)
	require.Equal(t, Action("finish"), table.Edges[0].Action)
	require.Equal(t, cache.MutationPurchaseReceive, table.Edges[0].Mutation)
	require.False(t, table.Edges[0].Guarded)
	require.True(t, table.Edges[2].Guarded)
}
