package command

import (
	"time"

	"github.com/kasuganosora/subwars/game/sim"
)

// Wait blocks its queue for a span of simulation time.
type Wait struct {
	Base
	clock    sim.Clock
	duration time.Duration
	started  time.Duration
}

// NewWait waits for d measured on clock.
func NewWait(clock sim.Clock, d time.Duration) *Wait {
	return &Wait{clock: clock, duration: d}
}

func (w *Wait) Name() string    { return "Wait" }
func (w *Wait) Details() string { return w.duration.String() }
func (w *Wait) Cleanup()        {}

func (w *Wait) Initialize() { w.started = w.clock.Now() }

func (w *Wait) Step() {
	elapsed := w.clock.Now() - w.started
	if w.duration <= 0 || elapsed >= w.duration {
		w.Finish()
		return
	}
	w.SetProgress(float64(elapsed) / float64(w.duration))
}

func (w *Wait) Clone() Command { return NewWait(w.clock, w.duration) }

// Pop restores the processor's saved queue when it is reached. It ends an
// interrupting plan that began with Push.
type Pop struct {
	Base
	processor *Processor
}

// NewPop pops p when stepped.
func NewPop(p *Processor) *Pop { return &Pop{processor: p} }

func (c *Pop) Name() string { return "Pop" }
func (c *Pop) Initialize()  {}
func (c *Pop) Cleanup()     {}

func (c *Pop) Step() {
	c.Finish()
	if err := c.processor.Pop(); err != nil {
		c.processor.logger.Warn("pop command without saved queue")
	}
}

func (c *Pop) Clone() Command { return NewPop(c.processor) }

// Func runs fn once on its first step and finishes.
type Func struct {
	Base
	name string
	fn   func()
}

// NewFunc wraps fn as a one-shot command.
func NewFunc(name string, fn func()) *Func {
	return &Func{name: name, fn: fn}
}

func (f *Func) Name() string { return f.name }
func (f *Func) Initialize()  {}
func (f *Func) Cleanup()     {}

func (f *Func) Step() {
	if f.fn != nil {
		f.fn()
	}
	f.Finish()
}

func (f *Func) Clone() Command { return NewFunc(f.name, f.fn) }

// NOP finishes on its first step. It is handy as a placeholder and for
// forcing one tick of delay.
type NOP struct {
	Base
}

func (*NOP) Name() string   { return "NOP" }
func (*NOP) Initialize()    {}
func (n *NOP) Step()        { n.Finish() }
func (*NOP) Cleanup()       {}
func (*NOP) Clone() Command { return &NOP{} }
