package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/subwars/game/command"
	"github.com/kasuganosora/subwars/game/sim"
	"github.com/kasuganosora/subwars/testutil"
)

func state(a *Agent, machine string) string { return a.Snapshot().Machines[machine] }

func TestHunter_TracksAndAttacksSubmarine(t *testing.T) {
	sub := testutil.NewFakeSubmarine(sim.Vec3{})
	a := New("h", "hunter", sub, WithLogger(nop()))
	require.NoError(t, Build("hunter", a, DefaultConfig()))
	assert.Equal(t, 1.0, sub.Axial.Intensity)
	assert.Equal(t, sim.ScanFull, sub.Passive.Settings.Direction)
	assert.Equal(t, 25.0, sub.Passive.Settings.BeamAngle)

	target := sim.Vec3{0, 0, 1000}
	sub.Passive.Lvl = 80
	sub.Passive.Dir = sim.AxisZ
	sub.Active.Detected = true
	sub.Active.Submarine = true
	sub.Active.Target = target
	sub.Chart.Elements = []sim.MapElement{{Position: target, Kind: sim.KindDangerMedium}}

	until(t, a, sub, 10, func() bool { return state(a, "scanner") == "TrackObject" })
	require.Equal(t, "TrackObject", state(a, "scanner"))
	assert.Equal(t, target, sub.Active.AimedAt)
	assert.Equal(t, sim.ScanGlobalPosition, sub.Active.Settings.Direction)
	assert.False(t, a.Processor().IsBusy(), "no attack before the target was tracked long enough")

	until(t, a, sub, 400, func() bool { return len(sub.FrontLeft.Released) > 0 })
	require.NotEmpty(t, sub.FrontLeft.Released)
	assert.True(t, sub.FrontLeft.Released[0].Fired)
	assert.InDelta(t, 1000/35.6, sub.FrontLeft.Released[0].FireAfter.Seconds(), 0.5)
}

func TestHunter_ReturnsToFullScanWhenTargetLost(t *testing.T) {
	sub := testutil.NewFakeSubmarine(sim.Vec3{})
	a := New("h", "hunter", sub)
	require.NoError(t, Build("hunter", a, DefaultConfig()))

	sub.Passive.Lvl = 80
	sub.Passive.Dir = sim.AxisX
	until(t, a, sub, 10, func() bool { return state(a, "scanner") == "ScanCloselyActive" })
	require.Equal(t, "ScanCloselyActive", state(a, "scanner"))
	assert.Equal(t, sim.ScanLocalDirection, sub.Active.Settings.Direction)
	assert.InDelta(t, 1, sub.Active.Settings.LocalDirection.X(), 1e-9)

	sub.Passive.Lvl = 0
	n := until(t, a, sub, 400, func() bool { return state(a, "scanner") == "ScanFully" })
	assert.Equal(t, "ScanFully", state(a, "scanner"))
	assert.Greater(t, n, 190)
}

func TestHunter_InvalidSolutionHoldsFire(t *testing.T) {
	sub := testutil.NewFakeSubmarine(sim.Vec3{})
	a := New("h", "hunter", sub)
	require.NoError(t, Build("hunter", a, DefaultConfig()))

	// Too far for any torpedo flight.
	target := sim.Vec3{0, 0, 5000}
	sub.Passive.Lvl = 80
	sub.Active.Detected = true
	sub.Active.Submarine = true
	sub.Active.Target = target
	sub.Chart.Elements = []sim.MapElement{{Position: target, Kind: sim.KindDangerMedium}}

	until(t, a, sub, 300, func() bool { return false })
	assert.Equal(t, "TrackObject", state(a, "scanner"))
	assert.Empty(t, sub.FrontLeft.Released)
	assert.False(t, a.Processor().IsBusy())
}

func TestRuleBased_HitInterruptsAndRestoresPlan(t *testing.T) {
	sub := testutil.NewFakeSubmarine(sim.Vec3{})
	a := New("r", "rulebased", sub, WithLogger(nop()))
	require.NoError(t, Build("rulebased", a, DefaultConfig()))
	require.Equal(t, "Search", state(a, "maneuver"))
	assert.Equal(t, 1.0, sub.Axial.Intensity)

	require.NoError(t, a.Do(func(p *command.Processor) {
		p.Execute(command.NewWait(sub, 1000*time.Second))
	}))
	until(t, a, sub, 2, func() bool { return false })

	a.Notify(Event{Kind: EventHit, Position: sim.Vec3{0, 0, -30}})
	require.NoError(t, a.Tick())
	assert.Equal(t, "AvoidHit", state(a, "maneuver"))
	assert.Equal(t, 0.0, sub.Axial.Intensity)
	assert.Equal(t, 1, a.Processor().Depth())

	require.NoError(t, a.Tick())
	assert.Equal(t, "MoveForward", a.Processor().Current().Name())

	until(t, a, sub, 5000, func() bool { return state(a, "maneuver") == "Search" })
	require.Equal(t, "Search", state(a, "maneuver"))
	assert.Equal(t, 0, a.Processor().Depth())
	require.NotNil(t, a.Processor().Current())
	assert.Equal(t, "Wait", a.Processor().Current().Name())
	assert.Greater(t, sub.Pos.Z(), 150.0)
}

func TestRuleBased_CollisionAheadBacksAway(t *testing.T) {
	sub := testutil.NewFakeSubmarine(sim.Vec3{})
	a := New("r", "rulebased", sub)
	require.NoError(t, Build("rulebased", a, DefaultConfig()))

	a.Notify(Event{Kind: EventCollision, Position: sim.Vec3{0, 0, 20}})
	until(t, a, sub, 100, func() bool { return false })
	assert.Equal(t, "AvoidCollision", state(a, "maneuver"))
	assert.Less(t, sub.Pos.Z(), 0.0)
}

func TestRuleBased_AttacksNearEnemy(t *testing.T) {
	sub := testutil.NewFakeSubmarine(sim.Vec3{})
	a := New("r", "rulebased", sub)
	require.NoError(t, Build("rulebased", a, DefaultConfig()))
	sub.Chart.Elements = []sim.MapElement{{Position: sim.Vec3{0, 0, 300}, Kind: sim.KindDangerMedium}}

	require.NoError(t, a.Tick())
	assert.Equal(t, "Attack", state(a, "maneuver"))

	until(t, a, sub, 300, func() bool { return len(sub.FrontLeft.Released) >= 2 })
	require.Len(t, sub.FrontLeft.Released, 2)
	assert.False(t, sub.FrontLeft.Released[0].Armed)

	sub.Chart.Elements = nil
	until(t, a, sub, 300, func() bool { return state(a, "maneuver") == "Search" })
	assert.Equal(t, "Search", state(a, "maneuver"))
}

func TestRuleBased_KeepsTrackOfFarEnemy(t *testing.T) {
	sub := testutil.NewFakeSubmarine(sim.Vec3{})
	a := New("r", "rulebased", sub)
	require.NoError(t, Build("rulebased", a, DefaultConfig()))
	sub.Chart.Elements = []sim.MapElement{{Position: sim.Vec3{0, 0, 1500}, Kind: sim.KindDangerMedium}}

	require.NoError(t, a.Tick())
	assert.Equal(t, "KeepTrack", state(a, "maneuver"))
	require.NoError(t, a.Tick())
	assert.Equal(t, "Move", a.Processor().Current().Name())
}

func TestRuleBased_RechargesWhenEmpty(t *testing.T) {
	sub := testutil.NewFakeSubmarine(sim.Vec3{})
	a := New("r", "rulebased", sub)
	require.NoError(t, Build("rulebased", a, DefaultConfig()))
	sub.FrontLeft.Charges = 0
	sub.Chart.Elements = []sim.MapElement{{Position: sim.Vec3{0, 0, 100}, Kind: sim.KindWeaponSupply}}

	require.NoError(t, a.Tick())
	assert.Equal(t, "Recharge", state(a, "maneuver"))
	until(t, a, sub, 20, func() bool { return len(sub.FrontLeft.Recharges) > 0 })
	assert.Equal(t, []sim.WeaponKind{sim.GreenTorpedo}, sub.FrontLeft.Recharges)
	assert.Equal(t, "envWeaponSupply", sub.FrontLeft.Supply)

	until(t, a, sub, 2000, func() bool { return state(a, "maneuver") == "Search" })
	assert.Equal(t, "Search", state(a, "maneuver"))
}

func TestRuleBased_RuleOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Maneuver.Rules = map[string]string{"AvoidHit": "HitDetected() && Speed > 5"}
	sub := testutil.NewFakeSubmarine(sim.Vec3{})
	a := New("r", "rulebased", sub)
	require.NoError(t, Build("rulebased", a, cfg))

	a.Notify(Event{Kind: EventHit})
	until(t, a, sub, 5, func() bool { return false })
	assert.Equal(t, "Search", state(a, "maneuver"))

	cfg.Maneuver.Rules = map[string]string{"Attack": "NoSuchMethod()"}
	err := Build("rulebased", New("x", "rulebased", testutil.NewFakeSubmarine(sim.Vec3{})), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Attack")
}

func TestRuleBased_ScriptRules(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Maneuver.Rules = map[string]string{"AvoidHit": "js: HitDetected() && InState >= 0 && Speed < 1"}
	sub := testutil.NewFakeSubmarine(sim.Vec3{})
	a := New("r", "rulebased", sub)
	require.NoError(t, Build("rulebased", a, cfg))

	a.Notify(Event{Kind: EventHit})
	until(t, a, sub, 5, func() bool { return state(a, "maneuver") == "AvoidHit" })
	assert.Equal(t, "AvoidHit", state(a, "maneuver"))

	cfg.Maneuver.Rules = map[string]string{"Escape": "js: NearEnemy( &&"}
	err := Build("rulebased", New("x", "rulebased", testutil.NewFakeSubmarine(sim.Vec3{})), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Escape")
}

func TestRuleBased_ScriptRuntimeErrorFailsAgent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Maneuver.Rules = map[string]string{"KeepTrack": "js: NoSuchThing()"}
	sub := testutil.NewFakeSubmarine(sim.Vec3{})
	a := New("r", "rulebased", sub, WithLogger(nop()))
	require.NoError(t, Build("rulebased", a, cfg))

	require.ErrorIs(t, a.Tick(), ErrAgentFailed)
}

func TestManeuverTable_PriorityOrder(t *testing.T) {
	table, err := ManeuverTable(nil)
	require.NoError(t, err)
	require.NotEmpty(t, table)
	assert.Equal(t, AvoidHit, table[0].To)
	assert.Equal(t, Search, table[len(table)-1].To)
	for _, row := range table {
		assert.NotEqual(t, AvoidHit, row.From, "AvoidHit is never preempted")
	}
}

func TestPatrol_InterruptsPathToAttack(t *testing.T) {
	sub := testutil.NewFakeSubmarine(sim.Vec3{})
	a := New("p", "patrol", sub)
	require.NoError(t, Build("patrol", a, DefaultConfig()))
	require.True(t, a.Processor().IsBusy())
	assert.Equal(t, "Repeat", a.Processor().Current().Name())

	until(t, a, sub, 50, func() bool { return false })
	require.Equal(t, "Patrolling", state(a, "patrol"))

	ahead := sub.Pos.Add(sub.ForwardDirection().Mul(400))
	sub.Chart.Elements = []sim.MapElement{{Position: ahead, Kind: sim.KindDangerMedium}}
	require.NoError(t, a.Tick())
	sub.Advance(sim.TickInterval)
	assert.Equal(t, "Engaging", state(a, "patrol"))
	assert.Equal(t, 1, a.Processor().Depth())

	until(t, a, sub, 3000, func() bool { return len(sub.FrontLeft.Released) > 0 })
	require.Len(t, sub.FrontLeft.Released, 1)
	sub.Chart.Elements = nil

	until(t, a, sub, 1000, func() bool { return state(a, "patrol") == "Patrolling" })
	assert.Equal(t, "Patrolling", state(a, "patrol"))
	assert.Equal(t, 0, a.Processor().Depth())
	require.True(t, a.Processor().IsBusy())
	assert.Equal(t, "Move", a.Processor().Current().Name())
}

func TestPatrolPath_VisitsCubeCorners(t *testing.T) {
	sub := testutil.NewFakeSubmarine(sim.Vec3{})
	path := PatrolPath(sub, sim.Vec3{100, 0, 0}, 1000, DefaultConfig().Navigation)
	assert.Contains(t, command.Describe(path), "SearchOnPath")
}
