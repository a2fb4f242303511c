package fsm

import "fmt"

// Machine is a table-driven state machine over a context of type C.
// A Machine is not safe for concurrent use; it belongs to one agent.
type Machine[C any] struct {
	name         string
	current      State[C]
	table        Table[C]
	ctx          C
	onTransition func(C)
	observer     func(from, to State[C])
}

// Option configures a Machine.
type Option[C any] func(*Machine[C])

// WithTransitionHook runs fn after the outgoing state's Exit and before the
// incoming state's Enter on every transition.
func WithTransitionHook[C any](fn func(C)) Option[C] {
	return func(m *Machine[C]) { m.onTransition = fn }
}

// WithObserver reports every transition once it completed.
func WithObserver[C any](fn func(from, to State[C])) Option[C] {
	return func(m *Machine[C]) { m.observer = fn }
}

// WithName labels the machine for logs and status output.
func WithName[C any](name string) Option[C] {
	return func(m *Machine[C]) { m.name = name }
}

// NewMachine validates the table and returns a machine resting in initial.
// The initial state's Enter is not called; see Start.
func NewMachine[C any](initial State[C], table Table[C], ctx C, opts ...Option[C]) (*Machine[C], error) {
	if initial == nil {
		return nil, fmt.Errorf("initial state: %w", ErrNilState)
	}
	for i, t := range table {
		if t.To == nil {
			return nil, fmt.Errorf("row %d: target: %w", i, ErrNilState)
		}
	}
	m := &Machine[C]{
		current: initial,
		table:   table,
		ctx:     ctx,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start runs the initial state's Enter hook.
func (m *Machine[C]) Start() {
	m.current.Enter(m.ctx)
}

// Update evaluates the table once. It performs at most one transition and
// reports whether one fired. When nothing fires the current state's Update
// hook runs; a freshly entered state is not updated in the same call.
// A panicking condition or hook propagates to the caller.
func (m *Machine[C]) Update() bool {
	for _, t := range m.table {
		if t.From != nil && t.From != m.current {
			continue
		}
		if t.When != nil && !t.When(m.ctx) {
			continue
		}
		m.Enforce(t.To)
		return true
	}
	m.current.Update(m.ctx)
	return false
}

// Enforce transitions to next without consulting the table.
func (m *Machine[C]) Enforce(next State[C]) {
	prev := m.current
	prev.Exit(m.ctx)
	if m.onTransition != nil {
		m.onTransition(m.ctx)
	}
	m.current = next
	next.Enter(m.ctx)
	if m.observer != nil {
		m.observer(prev, next)
	}
}

// Current returns the active state. It is never nil.
func (m *Machine[C]) Current() State[C] { return m.current }

// CurrentName returns the active state's name.
func (m *Machine[C]) CurrentName() string { return m.current.Name() }

// Context returns the shared context.
func (m *Machine[C]) Context() C { return m.ctx }

// Name returns the label given with WithName.
func (m *Machine[C]) Name() string { return m.name }

// Table returns the transition table in evaluation order.
func (m *Machine[C]) Table() Table[C] { return m.table }
