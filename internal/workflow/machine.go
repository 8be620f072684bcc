// Package workflow drives the action buttons of transactional entities: which transitions are
// legal from a status, who may trigger them, and how a transition is submitted.
package workflow

import (
	"fmt"

	"github.com/odyssey-erp/odyssey-console/internal/cache"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// Status is an entity's single status field as reported by the remote API.
type Status string

// AnyStatus matches every status. It is used by entities whose status is owned by the server
// and carries no transition table.
const AnyStatus Status = "*"

// Action names a transition.
type Action string

// Modal is the interaction required before submitting an action.
type Modal string

const (
	ModalNone    Modal = ""
	ModalConfirm Modal = "confirm"
	ModalForm    Modal = "form"
	ModalPayment Modal = "payment"
)

var (
	// ErrInvalidTransition occurs when an action is not legal from the current status.
	ErrInvalidTransition = shared.Conflict("workflow: invalid state transition")
	// ErrForbidden occurs when the principal lacks the action's permission.
	ErrForbidden = shared.Forbidden("workflow: forbidden")
	// ErrMutationInFlight occurs when another mutation on the same entity has not settled.
	ErrMutationInFlight = shared.Conflict("workflow: mutation already in flight")
)

// Subject is an entity moving through a Machine.
type Subject interface {
	// Key identifies the entity across the whole console, e.g. "purchase:12".
	Key() string
	CurrentStatus() Status
}

// Field is an input collected by the action's modal.
type Field struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

// Transition is one edge of a Machine. A transition whose To equals From records a side
// effect without changing status.
type Transition[S Subject] struct {
	From       Status
	Action     Action
	To         Status
	Label      string
	Permission string
	Modal      Modal
	Fields     []Field
	// Mutation is dispatched through the invalidation graph once the submission succeeds.
	// Empty when the submit function settles its own invalidation.
	Mutation cache.Mutation
	// Guard blocks an otherwise legal transition, e.g. paying with nothing due.
	Guard func(S) error
}

// SelfLoop reports whether the transition leaves status unchanged.
func (t Transition[S]) SelfLoop() bool {
	return t.To == t.From || t.To == AnyStatus
}

func (t Transition[S]) matches(status Status) bool {
	return t.From == AnyStatus || t.From == status
}

// Machine is an ordered transition table for one entity kind.
type Machine[S Subject] struct {
	entity      string
	statuses    map[Status]struct{}
	transitions []Transition[S]
}

// NewMachine builds a machine. Every From and To must be a declared status, AnyStatus, or for
// To, equal to From. It panics on a malformed table since tables are package-level values.
func NewMachine[S Subject](entity string, statuses []Status, transitions ...Transition[S]) *Machine[S] {
	known := make(map[Status]struct{}, len(statuses))
	for _, st := range statuses {
		known[st] = struct{}{}
	}
	seen := make(map[string]struct{}, len(transitions))
	for _, tr := range transitions {
		if _, ok := known[tr.From]; !ok && tr.From != AnyStatus {
			panic(fmt.Sprintf("workflow: %s: unknown status %q", entity, tr.From))
		}
		if _, ok := known[tr.To]; !ok && tr.To != AnyStatus {
			panic(fmt.Sprintf("workflow: %s: unknown status %q", entity, tr.To))
		}
		edge := string(tr.From) + "/" + string(tr.Action)
		if _, dup := seen[edge]; dup {
			panic(fmt.Sprintf("workflow: %s: duplicate transition %s", entity, edge))
		}
		seen[edge] = struct{}{}
	}
	return &Machine[S]{entity: entity, statuses: known, transitions: transitions}
}

// Entity names the machine's entity kind.
func (m *Machine[S]) Entity() string { return m.entity }

// Transitions returns the full table in declaration order.
func (m *Machine[S]) Transitions() []Transition[S] {
	out := make([]Transition[S], len(m.transitions))
	copy(out, m.transitions)
	return out
}

// From returns the transitions legal from status, in declaration order.
func (m *Machine[S]) From(status Status) []Transition[S] {
	var out []Transition[S]
	for _, tr := range m.transitions {
		if tr.matches(status) {
			out = append(out, tr)
		}
	}
	return out
}

// Find returns the transition for action from status.
func (m *Machine[S]) Find(status Status, action Action) (Transition[S], error) {
	for _, tr := range m.transitions {
		if tr.Action == action && tr.matches(status) {
			return tr, nil
		}
	}
	return Transition[S]{}, fmt.Errorf("%w: %s cannot %s from %q", ErrInvalidTransition, m.entity, action, status)
}

// Terminal reports whether status has no outgoing status change. Self-loop side effects such
// as refunds do not count.
func (m *Machine[S]) Terminal(status Status) bool {
	for _, tr := range m.From(status) {
		if !tr.SelfLoop() {
			return false
		}
	}
	return true
}

// Edge is the printable form of a Transition.
type Edge struct {
	From       Status         `json:"from"`
	Action     Action         `json:"action"`
	To         Status         `json:"to"`
	Label      string         `json:"label"`
	Permission string         `json:"permission"`
	Modal      Modal          `json:"modal,omitempty"`
	Mutation   cache.Mutation `json:"mutation,omitempty"`
	Guarded    bool           `json:"guarded,omitempty"`
}

// Table is the printable form of a Machine.
type Table struct {
	Entity string `json:"entity"`
	Edges  []Edge `json:"edges"`
}

// Describer is implemented by every Machine regardless of its subject type.
type Describer interface {
	Describe() Table
}

// Describe renders the transition table for audit output.
func (m *Machine[S]) Describe() Table {
	edges := make([]Edge, 0, len(m.transitions))
	for _, tr := range m.transitions {
		edges = append(edges, Edge{
			From:       tr.From,
			Action:     tr.Action,
			To:         tr.To,
			Label:      tr.Label,
			Permission: tr.Permission,
			Modal:      tr.Modal,
			Mutation:   tr.Mutation,
			Guarded:    tr.Guard != nil,
		})
	}
	return Table{Entity: m.entity, Edges: edges}
}
