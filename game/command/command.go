// Package command implements schedulable units of behaviour and the
// Processor that advances them once per tick.
package command

// Phase is the lifecycle phase of a command.
type Phase int

const (
	Created Phase = iota
	Initialized
	Running
	Finished
	Cancelled
)

func (p Phase) String() string {
	switch p {
	case Created:
		return "created"
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Finished:
		return "finished"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether no further step will happen.
func (p Phase) Terminal() bool { return p == Finished || p == Cancelled }

// Command is a unit of behaviour advanced by a Processor.
//
// Every implementation embeds Base, which carries the lifecycle. Step is
// expected to report progress through SetProgress and to call Finish once
// done. Clone returns a deep copy of the behaviour fields in phase Created.
type Command interface {
	Name() string
	Initialize()
	Step()
	Cleanup()
	Clone() Command

	core() *Base
}

// Detailer is implemented by commands that can describe their parameters.
type Detailer interface {
	Details() string
}

// Base carries the lifecycle shared by every command.
type Base struct {
	phase    Phase
	progress float64
	cleaned  bool
}

func (b *Base) core() *Base { return b }

// Phase returns the lifecycle phase.
func (b *Base) Phase() Phase { return b.phase }

// Progress returns the last reported progress in [0, 1].
func (b *Base) Progress() float64 { return b.progress }

// SetProgress records progress, clamped to [0, 1].
func (b *Base) SetProgress(p float64) {
	switch {
	case p < 0:
		p = 0
	case p > 1:
		p = 1
	}
	b.progress = p
}

// Finish marks the command finished. The processor removes it from the
// queue and runs Cleanup once the current Step returns.
func (b *Base) Finish() {
	if b.phase.Terminal() {
		return
	}
	b.phase = Finished
	b.progress = 1
}

// Done reports whether the command reached a terminal phase.
func (b *Base) Done() bool { return b.phase.Terminal() }

// PhaseOf returns the lifecycle phase of any command.
func PhaseOf(c Command) Phase { return c.core().phase }

// ProgressOf returns the progress of any command.
func ProgressOf(c Command) float64 { return c.core().progress }

// Describe renders a command for logs and status output.
func Describe(c Command) string {
	if d, ok := c.(Detailer); ok {
		if s := d.Details(); s != "" {
			return c.Name() + "(" + s + ")"
		}
	}
	return c.Name()
}

// begin moves a fresh command through Initialize into Running.
func begin(c Command) {
	b := c.core()
	c.Initialize()
	if b.phase == Created {
		b.phase = Initialized
	}
	if b.phase == Initialized {
		b.phase = Running
	}
}

// terminate moves c into a terminal phase, if it is not already in one,
// and runs its Cleanup exactly once.
func terminate(c Command, phase Phase) {
	b := c.core()
	if !b.phase.Terminal() {
		b.phase = phase
	}
	if b.cleaned {
		return
	}
	b.cleaned = true
	c.Cleanup()
}
