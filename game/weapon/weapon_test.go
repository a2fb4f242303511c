package weapon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kasuganosora/subwars/game/command"
	"github.com/kasuganosora/subwars/game/nav"
	"github.com/kasuganosora/subwars/game/sim"
	"github.com/kasuganosora/subwars/testutil"
)

func nop() *zap.Logger { l, _ := zap.NewDevelopment(); return l }

func drive(p *command.Processor, sub *testutil.FakeSubmarine, limit int) int {
	for i := range limit {
		if !p.IsBusy() {
			return i
		}
		p.Step()
		sub.Advance(sim.TickInterval)
	}
	return limit
}

func TestFire_FusesToFlightTime(t *testing.T) {
	sub := testutil.NewFakeSubmarine(sim.Vec3{})
	p := command.NewProcessor(nop())
	f := NewFire(sub, sub.FrontLeft, sim.Vec3{0, 0, 356}, DefaultParams())
	p.Execute(f)
	p.Step()

	assert.True(t, f.Fired())
	assert.Equal(t, command.Finished, f.Phase())
	require.Len(t, sub.FrontLeft.Released, 1)
	w := sub.FrontLeft.Released[0]
	assert.Equal(t, 5*time.Second, w.ArmAfter)
	assert.InDelta(t, float64(10*time.Second), float64(w.FireAfter), float64(time.Millisecond))
	assert.Equal(t, 3, sub.FrontLeft.Inserted())
}

func TestFire_SkipsCloseTargetAndEmptyBattery(t *testing.T) {
	sub := testutil.NewFakeSubmarine(sim.Vec3{})
	p := command.NewProcessor(nop())

	near := NewFire(sub, sub.FrontLeft, sim.Vec3{0, 0, 40}, DefaultParams())
	p.Execute(near)
	p.Step()
	assert.False(t, near.Fired())
	assert.Equal(t, command.Finished, near.Phase())

	sub.FrontLeft.Charges = 0
	empty := NewFire(sub, sub.FrontLeft, sim.Vec3{0, 0, 400}, DefaultParams())
	p.Execute(empty)
	p.Step()
	assert.False(t, empty.Fired())
	assert.Empty(t, sub.FrontLeft.Released)
}

func TestFire_UnarmedWhenNoDelay(t *testing.T) {
	sub := testutil.NewFakeSubmarine(sim.Vec3{})
	params := DefaultParams()
	params.ArmDelay = 0
	p := command.NewProcessor(nop())
	p.Execute(NewFire(sub, sub.FrontLeft, sim.Vec3{0, 0, 400}, params))
	p.Step()

	require.Len(t, sub.FrontLeft.Released, 1)
	assert.False(t, sub.FrontLeft.Released[0].Armed)
	assert.True(t, sub.FrontLeft.Released[0].Fired)
}

func TestAttackAtPosition(t *testing.T) {
	sub := testutil.NewFakeSubmarine(sim.Vec3{})
	sub.Main.Intensity = 1
	p := command.NewProcessor(nop())
	m := AttackAtPosition(sub, sim.Vec3{30, 0, 1000}, nav.DefaultParams(), DefaultParams())
	require.Len(t, m.Children(), 6)

	p.Execute(m)
	ticks := drive(p, sub, 100000)

	assert.Less(t, ticks, 100000)
	assert.Zero(t, sub.Main.Intensity)
	assert.Len(t, sub.FrontLeft.Released, 2)
	assert.Less(t, nav.TurnAngle(sub, sim.Vec3{30, 0, 1000}), 0.2)
}

func TestLayMines(t *testing.T) {
	sub := testutil.NewFakeSubmarine(sim.Vec3{})
	sub.Back = testutil.NewFakeBattery(3)
	params := DefaultParams()
	p := command.NewProcessor(nop())
	m := NewLayMines(sub, sub.Back, params)
	p.Execute(m)

	// Too slow: nothing is laid.
	drive(p, sub, 100)
	assert.Zero(t, m.Laid())

	sub.Main.Intensity = 1
	ticks := drive(p, sub, 10000)
	assert.Less(t, ticks, 10000)
	assert.Equal(t, 3, m.Laid())
	assert.Equal(t, command.Finished, m.Phase())
	require.Len(t, sub.Back.Released, 3)
	assert.False(t, sub.Back.Released[0].Fired)
	assert.True(t, sub.Back.Released[2].Fired, "last mine is fused")
	assert.Equal(t, params.LastMineFuse, sub.Back.Released[2].FireAfter)
	// 150 units apart at 10 units/s
	assert.Greater(t, sub.Position().Z(), 290.0)
}

func TestRechargeAt_NearSupply(t *testing.T) {
	sub := testutil.NewFakeSubmarine(sim.Vec3{})
	sub.FrontLeft.Charges = 0
	m := RechargeAt(sub, sim.Vec3{0, 0, 100}, nav.DefaultParams(), DefaultParams())
	assert.Len(t, m.Children(), 4, "no approach needed")

	p := command.NewProcessor(nop())
	p.Execute(m)
	drive(p, sub, 5000)

	assert.False(t, p.IsBusy())
	assert.Equal(t, []sim.WeaponKind{sim.GreenTorpedo}, sub.FrontLeft.Recharges)
	assert.Equal(t, []sim.WeaponKind{sim.RedTorpedo}, sub.FrontRight.Recharges)
	assert.Equal(t, []sim.WeaponKind{sim.GreenMine}, sub.Back.Recharges)
	assert.Equal(t, "envWeaponSupply", sub.Back.Supply)
	assert.Equal(t, 1, sub.FrontLeft.Inserted())
}

func TestRechargeAt_FarSupplyApproachesAndReturns(t *testing.T) {
	sub := testutil.NewFakeSubmarine(sim.Vec3{})
	m := RechargeAt(sub, sim.Vec3{0, 0, 1000}, nav.DefaultParams(), DefaultParams())
	require.Len(t, m.Children(), 6)

	move, ok := m.Children()[0].(*nav.Move)
	require.True(t, ok)
	assert.Contains(t, move.Details(), "800.0")
	_, ok = m.Children()[5].(*nav.Move)
	assert.True(t, ok)
}
