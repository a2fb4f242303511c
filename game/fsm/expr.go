package fsm

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ConditionError wraps a runtime failure of a compiled condition.
type ConditionError struct {
	Source string
	Err    error
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("fsm: condition %q: %v", e.Source, e.Err)
}

func (e *ConditionError) Unwrap() error { return e.Err }

// CompileCondition compiles src as a boolean expr-lang expression against the
// environment type E. env builds the environment from the context on every
// evaluation, so methods of E can read and write the context.
//
// A runtime failure panics with *ConditionError, aborting the tick the same
// way a failing hand-written condition would.
func CompileCondition[C, E any](src string, env func(C) E) (Condition[C], error) {
	var zero E
	prog, err := expr.Compile(src, expr.Env(zero), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile condition %q: %w", src, err)
	}
	return compiled(prog, src, env), nil
}

func compiled[C, E any](prog *vm.Program, src string, env func(C) E) Condition[C] {
	return func(ctx C) bool {
		out, err := vm.Run(prog, env(ctx))
		if err != nil {
			panic(&ConditionError{Source: src, Err: err})
		}
		match, _ := out.(bool)
		return match
	}
}
