// Package script evaluates JavaScript rule conditions in a pool of goja
// runtimes with dangerous globals removed and a per-run time limit.
package script

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// ErrTimeout is returned when a script exceeds the execution time limit.
var ErrTimeout = errors.New("script: execution timed out")

// ErrPanic is returned when the runtime panics while running a script.
var ErrPanic = errors.New("script: runtime panic")

// DefaultTimeout bounds one run when the pool is given no timeout.
const DefaultTimeout = 50 * time.Millisecond

// Bindings are the globals installed for one run. Go funcs become callable
// JS functions.
type Bindings map[string]any

// Pool is a thread-safe pool of prepared runtimes.
type Pool struct {
	pool    chan *goja.Runtime
	timeout time.Duration
	logger  *zap.Logger
}

// NewPool creates a Pool of size runtimes.
func NewPool(size int, timeout time.Duration, logger *zap.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	p := &Pool{
		pool:    make(chan *goja.Runtime, size),
		timeout: timeout,
		logger:  logger,
	}
	for i := 0; i < size; i++ {
		p.pool <- newSafeVM()
	}
	return p
}

// Compile parses src once for repeated runs.
func Compile(src string) (*goja.Program, error) {
	prog, err := goja.Compile("rule", src, true)
	if err != nil {
		return nil, fmt.Errorf("compile script %q: %w", src, err)
	}
	return prog, nil
}

// Run executes prog with b installed as globals and returns the exported
// value of the last expression.
func (p *Pool) Run(ctx context.Context, prog *goja.Program, b Bindings) (any, error) {
	select {
	case vm := <-p.pool:
		keep := true
		defer func() {
			if keep {
				p.pool <- vm
			}
		}()
		v, err := p.runVM(vm, prog, b, &keep)
		if err != nil || v == nil {
			return nil, err
		}
		return v.Export(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Eval compiles and runs src.
func (p *Pool) Eval(ctx context.Context, src string, b Bindings) (any, error) {
	prog, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, prog, b)
}

// Truthy runs prog and converts its result with JS truthiness.
func (p *Pool) Truthy(ctx context.Context, prog *goja.Program, b Bindings) (bool, error) {
	select {
	case vm := <-p.pool:
		keep := true
		defer func() {
			if keep {
				p.pool <- vm
			}
		}()
		v, err := p.runVM(vm, prog, b, &keep)
		if err != nil || v == nil {
			return false, err
		}
		return v.ToBoolean(), nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (p *Pool) runVM(vm *goja.Runtime, prog *goja.Program, b Bindings, keep *bool) (goja.Value, error) {
	for k, v := range b {
		if err := vm.Set(k, v); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}
	defer func() {
		if !*keep {
			return
		}
		for k := range b {
			_ = vm.GlobalObject().Delete(k)
		}
	}()

	timer := time.AfterFunc(p.timeout, func() { vm.Interrupt(ErrTimeout) })
	defer func() {
		timer.Stop()
		if *keep {
			vm.ClearInterrupt()
		}
	}()

	var result goja.Value
	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				runErr = fmt.Errorf("%w: %v", ErrPanic, r)
			}
		}()
		result, runErr = vm.RunProgram(prog)
	}()

	if runErr != nil {
		var interrupted *goja.InterruptedError
		if errors.As(runErr, &interrupted) {
			// An interrupted runtime is not reused.
			*keep = false
			p.pool <- newSafeVM()
			p.logger.Warn("script interrupted", zap.Duration("timeout", p.timeout))
			return nil, ErrTimeout
		}
		var ex *goja.Exception
		if errors.As(runErr, &ex) {
			return nil, errors.New(ex.Error())
		}
		return nil, runErr
	}
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return nil, nil
	}
	return result, nil
}

// newSafeVM creates a runtime without module loading, dynamic code or
// nondeterministic Math.
func newSafeVM() *goja.Runtime {
	vm := goja.New()
	for _, name := range []string{"require", "process", "fetch", "XMLHttpRequest", "eval", "Function"} {
		vm.Set(name, goja.Undefined())
	}
	m := vm.NewObject()
	_ = m.Set("floor", math.Floor)
	_ = m.Set("ceil", math.Ceil)
	_ = m.Set("round", math.Round)
	_ = m.Set("abs", math.Abs)
	_ = m.Set("sqrt", math.Sqrt)
	_ = m.Set("hypot", math.Hypot)
	_ = m.Set("max", math.Max)
	_ = m.Set("min", math.Min)
	_ = m.Set("random", func() float64 { return 0 })
	vm.Set("Math", m)
	return vm
}
