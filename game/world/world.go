// Package world hosts the running agents: it spawns them, ticks them in a
// fixed order and publishes their status.
package world

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kasuganosora/subwars/game/agent"
	"github.com/kasuganosora/subwars/game/sim"
	"github.com/kasuganosora/subwars/game/sim/sandbox"
	"github.com/kasuganosora/subwars/hook"
)

var (
	// ErrAgentNotFound is returned for an unknown agent ID.
	ErrAgentNotFound = errors.New("world: agent not found")
	// ErrNoOcean is returned by Launch when no sandbox ocean is attached.
	ErrNoOcean = errors.New("world: no sandbox ocean")
)

const heartbeatTTL = 5 * time.Second

// Manager owns every active agent.
type Manager struct {
	// tickMu serializes Tick with Remove so a vessel never leaves the
	// ocean mid-step.
	tickMu   sync.Mutex
	mu       sync.RWMutex
	agents   map[string]*agent.Agent
	order    []string
	failed   map[string]bool
	onFailed []func(id string)

	cfg          agent.Config
	ocean        *sandbox.Ocean
	hooks        *hook.Center
	board        *Board
	publishEvery uint64
	ticks        atomic.Uint64
	logger       *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithOcean steps o before the agents on every tick and lets Launch place
// vessels in it.
func WithOcean(o *sandbox.Ocean) Option {
	return func(m *Manager) { m.ocean = o }
}

// WithHooks hands c to every spawned agent and fires the lifecycle events
// on it.
func WithHooks(c *hook.Center) Option {
	return func(m *Manager) { m.hooks = c }
}

// WithBoard publishes agent snapshots to b every n ticks.
func WithBoard(b *Board, n int) Option {
	return func(m *Manager) {
		m.board = b
		m.publishEvery = uint64(max(n, 1))
	}
}

// NewManager creates an empty Manager. cfg is handed to every profile.
func NewManager(cfg agent.Config, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		agents: make(map[string]*agent.Agent),
		failed: make(map[string]bool),
		cfg:    cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnFailed registers fn to run once for every agent whose tick failed.
// fn runs on the ticking goroutine.
func (m *Manager) OnFailed(fn func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFailed = append(m.onFailed, fn)
}

// Spawn builds an agent of the given profile around host.
func (m *Manager) Spawn(profile string, host sim.Submarine) (*agent.Agent, error) {
	return m.spawn(uuid.NewString(), profile, host)
}

// Launch places a new sandbox vessel at pos and spawns an agent for it.
func (m *Manager) Launch(profile string, pos sim.Vec3) (*agent.Agent, error) {
	if m.ocean == nil {
		return nil, ErrNoOcean
	}
	id := uuid.NewString()
	host := m.ocean.Launch(id, pos)
	a, err := m.spawn(id, profile, host)
	if err != nil {
		m.ocean.Sink(id)
		return nil, err
	}
	return a, nil
}

func (m *Manager) spawn(id, profile string, host sim.Submarine) (*agent.Agent, error) {
	opts := []agent.Option{agent.WithLogger(m.logger)}
	if m.hooks != nil {
		opts = append(opts, agent.WithHooks(m.hooks))
	}
	a := agent.New(id, profile, host, opts...)
	if err := agent.Build(profile, a, m.cfg); err != nil {
		a.Destroy()
		return nil, fmt.Errorf("spawn %s: %w", profile, err)
	}

	m.mu.Lock()
	m.agents[id] = a
	m.order = append(m.order, id)
	m.mu.Unlock()

	m.logger.Info("agent spawned", zap.String("agent", id), zap.String("profile", profile))
	m.trigger(hook.OnAgentSpawned, hook.AgentEvent{AgentID: id, Profile: profile, At: host.Now()})
	return a, nil
}

// Get returns the agent with the given ID.
func (m *Manager) Get(id string) (*agent.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	return a, nil
}

// List returns the agents in tick order.
func (m *Manager) List() []*agent.Agent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*agent.Agent, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.agents[id])
	}
	return out
}

// Len returns the number of active agents.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.agents)
}

// Remove destroys an agent and drops it from the ocean and the board. It
// waits for a running Tick to finish and must not be called from inside one.
func (m *Manager) Remove(id string) error {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	m.mu.Lock()
	a, ok := m.agents[id]
	if ok {
		delete(m.agents, id)
		delete(m.failed, id)
		m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}

	a.Destroy()
	if m.ocean != nil {
		m.ocean.Sink(id)
	}
	if m.board != nil {
		if err := m.board.Remove(context.Background(), id); err != nil {
			m.logger.Warn("board remove failed", zap.String("agent", id), zap.Error(err))
		}
	}
	m.logger.Info("agent removed", zap.String("agent", id))
	m.trigger(hook.OnAgentRemoved, hook.AgentEvent{AgentID: id, Profile: a.Profile(), At: a.Host().Now()})
	return nil
}

// Tick advances the ocean, if any, and then ticks every agent in spawn
// order.
func (m *Manager) Tick() {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	agents := m.List()
	if m.ocean != nil {
		m.ocean.Step(sim.TickInterval)
	}
	for _, a := range agents {
		if err := a.Tick(); errors.Is(err, agent.ErrAgentFailed) {
			m.markFailed(a.ID())
		}
	}
	n := m.ticks.Add(1)
	if m.board != nil && n%m.publishEvery == 0 {
		m.publish(agents)
	}
}

// Ticks returns how many times Tick ran.
func (m *Manager) Ticks() uint64 { return m.ticks.Load() }

func (m *Manager) markFailed(id string) {
	m.mu.Lock()
	if m.failed[id] {
		m.mu.Unlock()
		return
	}
	m.failed[id] = true
	fns := slices.Clone(m.onFailed)
	m.mu.Unlock()

	m.logger.Warn("agent failed", zap.String("agent", id))
	for _, fn := range fns {
		fn(id)
	}
}

func (m *Manager) publish(agents []*agent.Agent) {
	snaps := make([]agent.Snapshot, 0, len(agents))
	for _, a := range agents {
		snaps = append(snaps, a.Snapshot())
	}
	ctx := context.Background()
	if err := m.board.Publish(ctx, snaps...); err != nil {
		m.logger.Warn("board publish failed", zap.Error(err))
		return
	}
	_ = m.board.Heartbeat(ctx, heartbeatTTL)
}

// StopAll removes every agent.
func (m *Manager) StopAll() {
	for _, a := range m.List() {
		_ = m.Remove(a.ID())
	}
}

func (m *Manager) trigger(event string, data hook.AgentEvent) {
	if m.hooks == nil {
		return
	}
	_, _ = m.hooks.Trigger(context.Background(), event, data)
}
