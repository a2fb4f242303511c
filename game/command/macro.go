package command

import (
	"strconv"
	"strings"
)

// expander is implemented by commands that replace their queue slot with
// other commands instead of stepping.
type expander interface {
	// expand returns the commands to run in place of the slot and whether
	// the expander itself stays queued after them.
	expand() (children []Command, keep bool)
}

// Macro runs its children sequentially as one unit. When it reaches the
// head of a queue its children take over its slot, in attachment order.
type Macro struct {
	Base
	name     string
	children []Command
}

// NewMacro builds a macro from children. An empty name defaults to "Macro".
func NewMacro(name string, children ...Command) *Macro {
	if name == "" {
		name = "Macro"
	}
	return &Macro{name: name, children: children}
}

// Attach appends a child and returns the macro for chaining.
func (m *Macro) Attach(c Command) *Macro {
	m.children = append(m.children, c)
	return m
}

// Children returns the attached commands.
func (m *Macro) Children() []Command { return m.children }

func (m *Macro) Name() string { return m.name }
func (m *Macro) Initialize()  {}
func (m *Macro) Step()        {}
func (m *Macro) Cleanup()     {}

func (m *Macro) Details() string {
	names := make([]string, len(m.children))
	for i, c := range m.children {
		names[i] = c.Name()
	}
	return strings.Join(names, ", ")
}

func (m *Macro) Clone() Command {
	return &Macro{name: m.name, children: cloneAll(m.children)}
}

func (m *Macro) expand() ([]Command, bool) {
	return m.children, false
}

// Repeat runs its body a fixed number of times, or forever when times is
// Forever. The body is cloned for every pass, so each pass starts fresh.
type Repeat struct {
	Base
	times int
	done  int
	body  []Command
}

// Forever makes a Repeat run until it is cancelled.
const Forever = -1

// NewRepeat repeats body times times. An empty body or times == 0 finishes
// immediately.
func NewRepeat(times int, body ...Command) *Repeat {
	return &Repeat{times: times, body: body}
}

func (r *Repeat) Name() string { return "Repeat" }
func (r *Repeat) Initialize()  {}
func (r *Repeat) Step()        {}
func (r *Repeat) Cleanup()     {}

// Passes returns how many passes were started.
func (r *Repeat) Passes() int { return r.done }

func (r *Repeat) Details() string {
	if r.times == Forever {
		return "forever"
	}
	return strconv.Itoa(r.done) + "/" + strconv.Itoa(r.times)
}

func (r *Repeat) Clone() Command {
	return &Repeat{times: r.times, body: cloneAll(r.body)}
}

func (r *Repeat) expand() ([]Command, bool) {
	if len(r.body) == 0 || (r.times != Forever && r.done >= r.times) {
		return nil, false
	}
	r.done++
	if r.times != Forever {
		r.SetProgress(float64(r.done-1) / float64(r.times))
	}
	return cloneAll(r.body), true
}

func cloneAll(cmds []Command) []Command {
	out := make([]Command, len(cmds))
	for i, c := range cmds {
		out[i] = c.Clone()
	}
	return out
}
