package command

import (
	"errors"

	"go.uber.org/zap"
)

// ErrStackEmpty is returned by Pop when no queue was pushed.
var ErrStackEmpty = errors.New("command: stack is empty")

// maxExpansions bounds how many macro slots one Step may unfold before it
// yields to the next tick.
const maxExpansions = 64

// Processor owns the active command queue and a stack of saved queues.
// The head of the active queue is advanced once per Step.
//
// A Processor is not safe for concurrent use; the owning agent serializes
// access.
type Processor struct {
	logger      *zap.Logger
	queue       []Command
	stack       [][]Command
	stepping    Command
	onTerminate func(Command)
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithTerminateHook reports every command that left the processor, after
// its Cleanup ran.
func WithTerminateHook(fn func(Command)) ProcessorOption {
	return func(p *Processor) { p.onTerminate = fn }
}

// NewProcessor creates an idle processor.
func NewProcessor(logger *zap.Logger, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Processor{logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute appends cmd to the tail of the active queue. It starts on the
// next Step that finds it at the head. A command that already terminated
// runs again as a fresh Clone.
func (p *Processor) Execute(cmd Command) {
	p.queue = append(p.queue, cmd)
	p.logger.Debug("command queued",
		zap.String("command", Describe(cmd)),
		zap.Int("queue", len(p.queue)))
}

// Step advances the head of the active queue by one tick.
func (p *Processor) Step() {
	for range maxExpansions {
		if len(p.queue) == 0 {
			return
		}
		head := p.queue[0]
		if head.core().cleaned {
			// An instance that already ran is queued again; run a copy.
			head = head.Clone()
			p.queue[0] = head
		}
		if e, ok := head.(expander); ok {
			p.unfold(head, e)
			continue
		}

		p.advance(head)

		if head.core().Done() || !p.queued(head) {
			p.finalize(head, Cancelled)
		}
		return
	}
}

// advance starts head if needed and steps it. A panic in Step leaves head
// queued and running, so a later Cleanup or Pop still terminates it.
func (p *Processor) advance(head Command) {
	p.stepping = head
	defer func() { p.stepping = nil }()
	if PhaseOf(head) == Created {
		begin(head)
	}
	if !head.core().Done() {
		head.Step()
	}
}

// unfold replaces the head slot with the expander's children.
func (p *Processor) unfold(head Command, e expander) {
	b := head.core()
	if b.phase == Created {
		b.phase = Running
	}
	children, keep := e.expand()
	rest := p.queue[1:]
	next := make([]Command, 0, len(children)+1+len(rest))
	next = append(next, children...)
	if keep {
		next = append(next, head)
	}
	p.queue = append(next, rest...)
	if !keep {
		b.Finish()
		p.report(head, Finished)
	}
}

// holds reports whether c is the head of the active queue.
func (p *Processor) holds(c Command) bool {
	return len(p.queue) > 0 && p.queue[0] == c
}

// queued reports whether c heads the active queue or a saved one.
func (p *Processor) queued(c Command) bool {
	if p.holds(c) {
		return true
	}
	for _, q := range p.stack {
		if len(q) > 0 && q[0] == c {
			return true
		}
	}
	return false
}

// finalize removes c from wherever it is queued and terminates it.
func (p *Processor) finalize(c Command, phase Phase) {
	if p.holds(c) {
		p.queue = p.queue[1:]
	} else {
		for i := len(p.stack) - 1; i >= 0; i-- {
			if q := p.stack[i]; len(q) > 0 && q[0] == c {
				p.stack[i] = q[1:]
				break
			}
		}
	}
	p.report(c, phase)
}

func (p *Processor) report(c Command, phase Phase) {
	wasCleaned := c.core().cleaned
	terminate(c, phase)
	if wasCleaned {
		return
	}
	p.logger.Debug("command terminated",
		zap.String("command", Describe(c)),
		zap.Stringer("phase", PhaseOf(c)))
	if p.onTerminate != nil {
		p.onTerminate(c)
	}
}

// Cancel cancels the current command, running its Cleanup before it
// returns. It reports whether there was one.
func (p *Processor) Cancel() bool {
	if len(p.queue) == 0 {
		return false
	}
	head := p.queue[0]
	p.queue = p.queue[1:]
	p.report(head, Cancelled)
	return true
}

// CancelCommand cancels cmd if it is in the active queue.
func (p *Processor) CancelCommand(cmd Command) bool {
	for i, c := range p.queue {
		if c == cmd {
			p.queue = append(p.queue[:i:i], p.queue[i+1:]...)
			p.report(c, Cancelled)
			return true
		}
	}
	return false
}

// Cleanup terminates every command in the active queue, each Cleanup
// running once, and leaves the queue empty. Saved queues are untouched.
func (p *Processor) Cleanup() {
	cmds := p.queue
	p.queue = nil
	p.drop(cmds)
}

// drop cancels cmds, except a command whose Step is running; that one is
// terminated once its Step returns.
func (p *Processor) drop(cmds []Command) {
	for _, c := range cmds {
		if c == p.stepping {
			continue
		}
		p.report(c, Cancelled)
	}
}

// Push saves the active queue, including its current command, and starts
// an empty one.
func (p *Processor) Push() {
	p.stack = append(p.stack, p.queue)
	p.queue = nil
	p.logger.Debug("command queue pushed", zap.Int("depth", len(p.stack)))
}

// Pop restores the most recently pushed queue. The restored current command
// resumes where it stopped. Commands left in the active queue are cancelled.
// On an empty stack Pop returns ErrStackEmpty and changes nothing.
func (p *Processor) Pop() error {
	n := len(p.stack)
	if n == 0 {
		return ErrStackEmpty
	}
	leftover := p.queue
	p.queue = p.stack[n-1]
	p.stack[n-1] = nil
	p.stack = p.stack[:n-1]
	p.drop(leftover)
	p.logger.Debug("command queue popped", zap.Int("depth", len(p.stack)))
	return nil
}

// IsBusy reports whether the active queue holds a command.
func (p *Processor) IsBusy() bool { return len(p.queue) > 0 }

// Current returns the head of the active queue, or nil.
func (p *Processor) Current() Command {
	if len(p.queue) == 0 {
		return nil
	}
	return p.queue[0]
}

// Len returns the number of commands in the active queue.
func (p *Processor) Len() int { return len(p.queue) }

// Depth returns the number of saved queues.
func (p *Processor) Depth() int { return len(p.stack) }

// Queue returns a description of the active queue, head first.
func (p *Processor) Queue() []string {
	out := make([]string, len(p.queue))
	for i, c := range p.queue {
		out[i] = Describe(c)
	}
	return out
}
