// Package agent runs one autonomous submarine: its state machines, its
// command processor and the behaviour profiles that wire them together.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"weak"

	"go.uber.org/zap"

	"github.com/kasuganosora/subwars/game/command"
	"github.com/kasuganosora/subwars/game/sim"
	"github.com/kasuganosora/subwars/hook"
)

// ErrAgentFailed is returned once an agent stopped after a fatal tick.
var ErrAgentFailed = errors.New("agent: failed")

// ErrAgentDestroyed is returned by an agent after Destroy.
var ErrAgentDestroyed = errors.New("agent: destroyed")

// Machine is a state machine polled once per tick.
type Machine interface {
	Name() string
	Update() bool
	CurrentName() string
}

// Agent owns the control state of one vessel. All access to the processor
// goes through the agent's mutex: Tick holds it for the whole tick, and
// auxiliary goroutines use Do or TryDo.
type Agent struct {
	mu        sync.Mutex
	id        string
	profile   string
	host      sim.Submarine
	processor *command.Processor
	machines  []Machine
	listeners []func(Event)
	teardown  []func()
	hooks     *hook.Center
	logger    *zap.Logger
	ticks     uint64
	err       error
}

// Option configures an Agent.
type Option func(*Agent)

// WithHooks publishes transitions, finished commands and failures on c.
func WithHooks(c *hook.Center) Option {
	return func(a *Agent) { a.hooks = c }
}

// WithLogger sets the agent logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// New creates an idle agent driving host. Profiles add machines.
func New(id, profile string, host sim.Submarine, opts ...Option) *Agent {
	a := &Agent{id: id, profile: profile, host: host, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(zap.String("agent", id), zap.String("profile", profile))
	a.processor = command.NewProcessor(a.logger, command.WithTerminateHook(a.commandDone))
	return a
}

func (a *Agent) ID() string                    { return a.id }
func (a *Agent) Profile() string               { return a.profile }
func (a *Agent) Host() sim.Submarine           { return a.host }
func (a *Agent) Logger() *zap.Logger           { return a.logger }
func (a *Agent) Processor() *command.Processor { return a.processor }
func (a *Agent) ref() weak.Pointer[Agent]      { return weak.Make(a) }

// AddMachine appends m to the machines polled every tick, in order.
func (a *Agent) AddMachine(m Machine) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.machines = append(a.machines, m)
}

// OnEvent registers a handler for Notify.
func (a *Agent) OnEvent(fn func(Event)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// OnDestroy registers a teardown step run by Destroy.
func (a *Agent) OnDestroy(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.teardown = append(a.teardown, fn)
}

// Tick runs one control step: every machine evaluates in registration
// order, then the processor advances its current command. A panic during
// the tick marks the agent failed; it is not ticked again.
func (a *Agent) Tick() (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}

	defer func() {
		if r := recover(); r != nil {
			a.err = fmt.Errorf("%w: %v", ErrAgentFailed, r)
			err = a.err
			a.logger.Error("agent tick panicked", zap.Any("recover", r), zap.Uint64("tick", a.ticks))
			a.trigger(hook.OnAgentFailed, hook.AgentEvent{
				AgentID: a.id, Profile: a.profile, Detail: fmt.Sprint(r), At: a.host.Now(),
			})
		}
	}()

	for _, m := range a.machines {
		m.Update()
	}
	a.processor.Step()
	a.ticks++
	return nil
}

// Do runs fn with exclusive access to the processor.
func (a *Agent) Do(fn func(p *command.Processor)) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	fn(a.processor)
	return nil
}

// TryDo is Do without waiting; it reports whether fn ran.
func (a *Agent) TryDo(fn func(p *command.Processor)) bool {
	if !a.mu.TryLock() {
		return false
	}
	defer a.mu.Unlock()
	if a.err != nil {
		return false
	}
	fn(a.processor)
	return true
}

// Notify delivers a host event to the profile handlers.
func (a *Agent) Notify(ev Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return
	}
	for _, fn := range a.listeners {
		fn(ev)
	}
	a.trigger(hook.OnAgentNotified, hook.AgentEvent{
		AgentID: a.id, Profile: a.profile, Detail: ev.Kind.String(), At: a.host.Now(),
	})
}

// Destroy cancels every queued command, runs the teardown steps and stops
// the agent. It is safe to call more than once.
func (a *Agent) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if errors.Is(a.err, ErrAgentDestroyed) {
		return
	}
	a.processor.Cleanup()
	for a.processor.Pop() == nil {
		a.processor.Cleanup()
	}
	for _, fn := range a.teardown {
		fn()
	}
	a.teardown = nil
	a.listeners = nil
	a.machines = nil
	a.err = ErrAgentDestroyed
}

// Err returns why the agent stopped, or nil while it runs.
func (a *Agent) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Snapshot describes the agent for status output.
type Snapshot struct {
	ID       string            `json:"id"`
	Profile  string            `json:"profile"`
	Ticks    uint64            `json:"ticks"`
	Error    string            `json:"error,omitempty"`
	Position [3]float64        `json:"position"`
	Machines map[string]string `json:"machines"`
	Queue    []string          `json:"queue"`
	Depth    int               `json:"depth"`
}

// Snapshot captures the agent state under its lock.
func (a *Agent) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := Snapshot{
		ID:       a.id,
		Profile:  a.profile,
		Ticks:    a.ticks,
		Position: a.host.Position(),
		Machines: make(map[string]string, len(a.machines)),
		Queue:    a.processor.Queue(),
		Depth:    a.processor.Depth(),
	}
	if a.err != nil {
		s.Error = a.err.Error()
	}
	for _, m := range a.machines {
		s.Machines[m.Name()] = m.CurrentName()
	}
	return s
}

func (a *Agent) commandDone(c command.Command) {
	a.trigger(hook.AfterCommandDone, hook.CommandDone{
		AgentID:  a.id,
		Command:  c.Name(),
		Details:  command.Describe(c),
		Phase:    command.PhaseOf(c).String(),
		Progress: command.ProgressOf(c),
		At:       a.host.Now(),
	})
}

func (a *Agent) transition(machine, from, to string) {
	a.logger.Debug("state transition",
		zap.String("machine", machine), zap.String("from", from), zap.String("to", to))
	a.trigger(hook.AfterTransition, hook.Transition{
		AgentID: a.id, Machine: machine, From: from, To: to, At: a.host.Now(),
	})
}

func (a *Agent) trigger(event string, data any) {
	if a.hooks == nil {
		return
	}
	if _, err := a.hooks.Trigger(context.Background(), event, data); err != nil {
		a.logger.Debug("hook chain interrupted", zap.String("event", event), zap.Error(err))
	}
}
