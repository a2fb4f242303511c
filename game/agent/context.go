package agent

import (
	"time"
	"weak"

	"github.com/kasuganosora/subwars/game/command"
	"github.com/kasuganosora/subwars/game/fsm"
	"github.com/kasuganosora/subwars/game/sim"
)

// EventKind classifies host events delivered through Notify.
type EventKind int

const (
	EventHit EventKind = iota + 1
	EventCollision
	EventSupply
)

func (k EventKind) String() string {
	switch k {
	case EventHit:
		return "hit"
	case EventCollision:
		return "collision"
	case EventSupply:
		return "supply"
	}
	return "unknown"
}

// Event is a host notification with the point it happened at.
type Event struct {
	Kind     EventKind
	Position sim.Vec3
}

// Owner is the non-owning back-reference every context carries. Once the
// agent is gone or destroyed, Agent returns nil and the states do nothing.
type Owner struct {
	ref weak.Pointer[Agent]
}

// Bind points the context at a.
func (o *Owner) Bind(a *Agent) { o.ref = a.ref() }

// Release drops the back-reference.
func (o *Owner) Release() { o.ref = weak.Pointer[Agent]{} }

// Agent returns the owning agent, or nil.
func (o *Owner) Agent() *Agent { return o.ref.Value() }

// Vessel returns the owning agent's host, or nil.
func (o *Owner) Vessel() sim.Submarine {
	if a := o.Agent(); a != nil {
		return a.host
	}
	return nil
}

// Processor returns the owning agent's processor, or nil.
func (o *Owner) Processor() *command.Processor {
	if a := o.Agent(); a != nil {
		return a.processor
	}
	return nil
}

// Now returns the host time, or zero without an owner.
func (o *Owner) Now() time.Duration {
	if v := o.Vessel(); v != nil {
		return v.Now()
	}
	return 0
}

// Clocked records when its machine last changed state. It is used as the
// transition hook of every machine.
type Clocked struct {
	Owner
	StateChanged time.Duration
}

func (c *Clocked) stamp() { c.StateChanged = c.Now() }

type bindable interface {
	bind(*Agent)
	release()
	stamp()
}

func (o *Owner) bind(a *Agent) { o.Bind(a) }
func (o *Owner) release()      { o.Release() }

// attach binds ctx to a, drops the binding on Destroy and returns the
// machine options every profile uses: name, state-change stamp and
// transition reporting.
func attach[C bindable](a *Agent, ctx C, name string) []fsm.Option[C] {
	ctx.bind(a)
	a.OnDestroy(ctx.release)
	return []fsm.Option[C]{
		fsm.WithName[C](name),
		fsm.WithTransitionHook(func(c C) { c.stamp() }),
		fsm.WithObserver(func(from, to fsm.State[C]) {
			a.transition(name, from.Name(), to.Name())
		}),
	}
}
