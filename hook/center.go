// Package hook is the in-process event bus between agents and the service
// infrastructure (journal, status board).
package hook

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// ErrInterrupt signals that a handler wants to stop further processing.
var ErrInterrupt = errors.New("hook interrupted")

// Fn is a hook handler. Return (data, nil) to continue or
// (data, ErrInterrupt) to stop the chain.
type Fn func(ctx context.Context, event string, data any) (any, error)

type entry struct {
	priority int
	fn       Fn
	name     string
}

// Center manages handler registrations per event.
type Center struct {
	mu    sync.RWMutex
	hooks map[string][]*entry
}

// NewCenter creates an empty Center.
func NewCenter() *Center {
	return &Center{hooks: make(map[string][]*entry)}
}

// Register adds fn for event. Lower priorities run first; equal priorities
// keep registration order. name is used for Unregister.
func (c *Center) Register(event string, priority int, name string, fn Fn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := append(c.hooks[event], &entry{priority: priority, fn: fn, name: name})
	slices.SortStableFunc(entries, func(a, b *entry) int { return a.priority - b.priority })
	c.hooks[event] = entries
}

// Unregister removes every handler called name from event.
func (c *Center) Unregister(event, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks[event] = slices.DeleteFunc(c.hooks[event], func(e *entry) bool { return e.name == name })
}

// UnregisterAll removes every handler called name.
func (c *Center) UnregisterAll(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for event, entries := range c.hooks {
		c.hooks[event] = slices.DeleteFunc(entries, func(e *entry) bool { return e.name == name })
	}
}

// Has reports whether event has any handler.
func (c *Center) Has(event string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.hooks[event]) > 0
}

// Trigger runs the handlers of event in priority order, threading data
// through them. A handler returning ErrInterrupt stops the chain and its
// error is returned; other handler errors are ignored.
func (c *Center) Trigger(ctx context.Context, event string, data any) (any, error) {
	c.mu.RLock()
	entries := slices.Clone(c.hooks[event])
	c.mu.RUnlock()

	var err error
	for _, e := range entries {
		data, err = e.fn(ctx, event, data)
		if errors.Is(err, ErrInterrupt) {
			return data, err
		}
	}
	return data, nil
}

// Agent events.
const (
	OnAgentSpawned   = "on_agent_spawned"
	OnAgentRemoved   = "on_agent_removed"
	OnAgentFailed    = "on_agent_failed"
	AfterTransition  = "after_state_transition"
	AfterCommandDone = "after_command_done"
	OnAgentNotified  = "on_agent_notified"
)

// Transition is the payload of AfterTransition.
type Transition struct {
	AgentID string
	Machine string
	From    string
	To      string
	At      time.Duration
}

// CommandDone is the payload of AfterCommandDone.
type CommandDone struct {
	AgentID  string
	Command  string
	Details  string
	Phase    string
	Progress float64
	At       time.Duration
}

// AgentEvent is the payload of the lifecycle events.
type AgentEvent struct {
	AgentID string
	Profile string
	Detail  string
	At      time.Duration
}
