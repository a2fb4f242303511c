package world

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kasuganosora/subwars/game/agent"
	"github.com/kasuganosora/subwars/game/sim"
	"github.com/kasuganosora/subwars/game/sim/sandbox"
	"github.com/kasuganosora/subwars/hook"
	"github.com/kasuganosora/subwars/testutil"
)

type exploding struct{}

func (exploding) Name() string        { return "bomb" }
func (exploding) CurrentName() string { return "Armed" }
func (exploding) Update() bool        { panic("hull breach") }

func init() {
	agent.Register("exploding", func(a *agent.Agent, _ agent.Config) error {
		a.AddMachine(exploding{})
		return nil
	})
}

func newBoard(t *testing.T) *Board {
	store, ps := testutil.SetupTestCache(t)
	return NewBoard(store, ps, 10, zap.NewNop())
}

func TestSpawn_GetListRemove(t *testing.T) {
	hooks := hook.NewCenter()
	var spawned, removed []string
	hooks.Register(hook.OnAgentSpawned, 0, "t", func(_ context.Context, _ string, d any) (any, error) {
		spawned = append(spawned, d.(hook.AgentEvent).Profile)
		return d, nil
	})
	hooks.Register(hook.OnAgentRemoved, 0, "t", func(_ context.Context, _ string, d any) (any, error) {
		removed = append(removed, d.(hook.AgentEvent).AgentID)
		return d, nil
	})
	m := NewManager(agent.DefaultConfig(), zap.NewNop(), WithHooks(hooks))

	a1, err := m.Spawn("hunter", testutil.NewFakeSubmarine(sim.Vec3{}))
	require.NoError(t, err)
	a2, err := m.Spawn("patrol", testutil.NewFakeSubmarine(sim.Vec3{100, 0, 0}))
	require.NoError(t, err)
	assert.NotEqual(t, a1.ID(), a2.ID())

	got, err := m.Get(a1.ID())
	require.NoError(t, err)
	assert.Same(t, a1, got)

	list := m.List()
	require.Len(t, list, 2)
	assert.Same(t, a1, list[0])
	assert.Same(t, a2, list[1])

	require.NoError(t, m.Remove(a1.ID()))
	assert.ErrorIs(t, a1.Err(), agent.ErrAgentDestroyed)
	_, err = m.Get(a1.ID())
	assert.ErrorIs(t, err, ErrAgentNotFound)
	assert.ErrorIs(t, m.Remove(a1.ID()), ErrAgentNotFound)

	assert.Equal(t, []string{"hunter", "patrol"}, spawned)
	assert.Equal(t, []string{a1.ID()}, removed)
	assert.Equal(t, 1, m.Len())
}

func TestSpawn_UnknownProfile(t *testing.T) {
	m := NewManager(agent.DefaultConfig(), zap.NewNop())
	_, err := m.Spawn("kraken", testutil.NewFakeSubmarine(sim.Vec3{}))
	require.ErrorIs(t, err, agent.ErrUnknownProfile)
	assert.Zero(t, m.Len())
}

func TestLaunch_UsesOcean(t *testing.T) {
	m := NewManager(agent.DefaultConfig(), zap.NewNop())
	_, err := m.Launch("hunter", sim.Vec3{})
	require.ErrorIs(t, err, ErrNoOcean)

	ocean := sandbox.NewOcean(sandbox.DefaultConfig())
	m = NewManager(agent.DefaultConfig(), zap.NewNop(), WithOcean(ocean))
	a, err := m.Launch("rulebased", sim.Vec3{0, 0, 10})
	require.NoError(t, err)
	assert.Equal(t, 1, ocean.Len())
	assert.Equal(t, sim.Vec3{0, 0, 10}, a.Host().Position())

	_, err = m.Launch("kraken", sim.Vec3{})
	require.Error(t, err)
	assert.Equal(t, 1, ocean.Len())

	m.StopAll()
	assert.Zero(t, ocean.Len())
	assert.Zero(t, m.Len())
}

func TestTick_AdvancesOceanAndPublishes(t *testing.T) {
	ocean := sandbox.NewOcean(sandbox.DefaultConfig())
	board := newBoard(t)
	m := NewManager(agent.DefaultConfig(), zap.NewNop(), WithOcean(ocean), WithBoard(board, 2))
	a, err := m.Launch("hunter", sim.Vec3{})
	require.NoError(t, err)

	ctx := context.Background()
	m.Tick()
	list, err := board.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.True(t, board.LastHeartbeat(ctx).IsZero())

	m.Tick()
	assert.Equal(t, uint64(2), m.Ticks())
	assert.Equal(t, 2*sim.TickInterval, a.Host().Now())

	snap, err := board.Get(ctx, a.ID())
	require.NoError(t, err)
	assert.Equal(t, "hunter", snap.Profile)
	assert.Equal(t, uint64(2), snap.Ticks)
	assert.Equal(t, "ScanFully", snap.Machines["scanner"])
	assert.False(t, board.LastHeartbeat(ctx).IsZero())

	require.NoError(t, m.Remove(a.ID()))
	_, err = board.Get(ctx, a.ID())
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestTick_ReportsFailureOnce(t *testing.T) {
	m := NewManager(agent.DefaultConfig(), zap.NewNop())
	var calls atomic.Int32
	var failedID string
	m.OnFailed(func(id string) {
		calls.Add(1)
		failedID = id
	})
	bad, err := m.Spawn("exploding", testutil.NewFakeSubmarine(sim.Vec3{}))
	require.NoError(t, err)
	good, err := m.Spawn("hunter", testutil.NewFakeSubmarine(sim.Vec3{}))
	require.NoError(t, err)

	m.Tick()
	m.Tick()
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, bad.ID(), failedID)
	assert.ErrorIs(t, bad.Err(), agent.ErrAgentFailed)
	assert.NoError(t, good.Err())
	assert.Equal(t, uint64(2), good.Snapshot().Ticks)
}

func TestBoard_RecordsTransitions(t *testing.T) {
	store, ps := testutil.SetupTestCache(t)
	board := NewBoard(store, ps, 2, zap.NewNop())
	hooks := hook.NewCenter()
	board.Register(hooks)

	ctx := context.Background()
	msgs, cancel, err := ps.Subscribe(ctx, TransitionChannel)
	require.NoError(t, err)
	defer cancel()

	for _, to := range []string{"ScanCloselyPassive", "ScanCloselyActive", "TrackObject"} {
		_, _ = hooks.Trigger(ctx, hook.AfterTransition, hook.Transition{
			AgentID: "a1", Machine: "scanner", To: to, At: time.Second,
		})
	}

	hist, err := board.History(ctx, "a1", 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "TrackObject", hist[0].To)
	assert.Equal(t, "ScanCloselyActive", hist[1].To)
	assert.Equal(t, int64(1000), hist[0].AtMs)

	select {
	case msg := <-msgs:
		assert.Equal(t, TransitionChannel, msg.Channel)
		assert.Contains(t, msg.Payload, `"to":"ScanCloselyPassive"`)
	case <-time.After(time.Second):
		t.Fatal("no transition published")
	}
}

func TestBoard_ListSkipsBadEntries(t *testing.T) {
	store, _ := testutil.SetupTestCache(t)
	board := NewBoard(store, nil, 0, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, board.Publish(ctx,
		agent.Snapshot{ID: "b", Profile: "patrol"},
		agent.Snapshot{ID: "a", Profile: "hunter"},
	))
	require.NoError(t, store.HSet(ctx, StatusKey, "c", "{broken"))

	list, err := board.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
}

func TestBoard_GetReadsOneEntry(t *testing.T) {
	store, _ := testutil.SetupTestCache(t)
	board := NewBoard(store, nil, 0, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, board.Publish(ctx,
		agent.Snapshot{ID: "a", Profile: "hunter"},
		agent.Snapshot{ID: "b", Profile: "patrol"},
	))
	require.NoError(t, store.HSet(ctx, StatusKey, "c", "{broken"))

	snap, err := board.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "patrol", snap.Profile)

	_, err = board.Get(ctx, "zz")
	assert.ErrorIs(t, err, ErrAgentNotFound)

	_, err = board.Get(ctx, "c")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAgentNotFound)
}
