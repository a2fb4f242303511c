// Package fsm implements a table-driven finite state machine.
//
// A Machine owns a current State, an ordered transition Table and a context
// value shared by every state and condition. Update is called once per tick:
// the first row whose source matches the current state and whose condition
// holds fires, otherwise the current state's Update hook runs.
package fsm

import "errors"

// ErrNilState is returned when a machine is built with a nil initial state
// or a row without a target.
var ErrNilState = errors.New("fsm: nil state")

// State is a behaviour mode. States are compared by identity, so they should
// be stateless values; per-machine data belongs in the context.
type State[C any] interface {
	Name() string
	Enter(ctx C)
	Update(ctx C)
	Exit(ctx C)
}

// Nop provides empty hooks for states that only need some of them.
type Nop[C any] struct{}

func (Nop[C]) Enter(C)  {}
func (Nop[C]) Update(C) {}
func (Nop[C]) Exit(C)   {}

// Funcs adapts plain functions to State. Nil hooks are skipped.
// Use a pointer so that identity comparison works.
type Funcs[C any] struct {
	Label   string
	OnEnter func(C)
	OnTick  func(C)
	OnExit  func(C)
}

func (f *Funcs[C]) Name() string { return f.Label }

func (f *Funcs[C]) Enter(ctx C) {
	if f.OnEnter != nil {
		f.OnEnter(ctx)
	}
}

func (f *Funcs[C]) Update(ctx C) {
	if f.OnTick != nil {
		f.OnTick(ctx)
	}
}

func (f *Funcs[C]) Exit(ctx C) {
	if f.OnExit != nil {
		f.OnExit(ctx)
	}
}

// Transition is one row of a table. A nil From matches any state and a nil
// When always holds.
type Transition[C any] struct {
	From State[C]
	When Condition[C]
	To   State[C]
}

// Table is an ordered transition list; earlier rows take precedence.
type Table[C any] []Transition[C]

// Row is shorthand for building a Transition.
func Row[C any](from State[C], when Condition[C], to State[C]) Transition[C] {
	return Transition[C]{From: from, When: when, To: to}
}
