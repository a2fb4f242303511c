package agent

import (
	"github.com/kasuganosora/subwars/game/command"
	"github.com/kasuganosora/subwars/game/fsm"
	"github.com/kasuganosora/subwars/game/nav"
	"github.com/kasuganosora/subwars/game/sim"
	"github.com/kasuganosora/subwars/game/weapon"
)

// PatrolContext is the state of the patrol machine.
type PatrolContext struct {
	Clocked
	Params PatrolParams
	Nav    nav.Params
	Weapon weapon.Params
	// Enemy is the contact found ahead of the bow.
	Enemy sim.Vec3
	// depth is the processor stack depth before the attack was pushed.
	depth int
}

// Patrol states.
var (
	Patrolling fsm.State[*PatrolContext] = patrolling{}
	Engaging   fsm.State[*PatrolContext] = engaging{}
)

type patrolling struct{ fsm.Nop[*PatrolContext] }

func (patrolling) Name() string { return "Patrolling" }

func (patrolling) Enter(c *PatrolContext) {
	v, p := c.Vessel(), c.Processor()
	if v == nil || p == nil || p.IsBusy() {
		return
	}
	p.Execute(PatrolPath(v, c.Params.Center, c.Params.Edge, c.Nav))
}

type engaging struct{ fsm.Nop[*PatrolContext] }

func (engaging) Name() string { return "Engaging" }

// Enter interrupts the path with an attack that restores it when done.
func (engaging) Enter(c *PatrolContext) {
	v, p := c.Vessel(), c.Processor()
	if v == nil || p == nil {
		return
	}
	c.depth = p.Depth()
	p.Push()
	p.Cleanup()
	p.Execute(command.NewMacro("Attack",
		nav.DisableAllEngines(v),
		nav.RotateToward(v, c.Enemy, c.Nav),
		weapon.NewFire(v, v.FrontLeftBattery(), c.Enemy, c.Weapon),
		command.NewWait(v, c.Params.Pause),
		command.NewPop(p),
	))
}

// PatrolPath visits the corners of a cube of edge length around center,
// bottom face first, forever.
func PatrolPath(v nav.Vessel, center sim.Vec3, edge float64, np nav.Params) command.Command {
	h := edge / 2
	corners := []sim.Vec3{
		{-h, -h, -h}, {-h, -h, h}, {h, -h, h}, {h, -h, -h},
		{-h, h, -h}, {-h, h, h}, {h, h, h}, {h, h, -h},
	}
	moves := make([]command.Command, len(corners))
	for i, corner := range corners {
		moves[i] = nav.NewMove(v, center.Add(corner), true, np)
	}
	return command.NewRepeat(command.Forever, command.NewMacro("SearchOnPath", moves...))
}

// EnemyAhead holds when the vessel is armed and something dangerous lies
// around the lookout point in front of the bow.
func EnemyAhead(c *PatrolContext) bool {
	v := c.Vessel()
	if v == nil || v.FrontLeftBattery().IsEmpty() {
		return false
	}
	lookout := v.Position().Add(v.ForwardDirection().Mul(c.Params.Lookout))
	el, ok := v.Map().FindNearest(lookout, c.Params.LookoutRadius, sim.MapQuery{Include: sim.KindDangerMedium})
	if ok {
		c.Enemy = el.Position
	}
	return ok
}

// AttackDone holds once the attack popped the saved path back.
func AttackDone(c *PatrolContext) bool {
	p := c.Processor()
	return p == nil || p.Depth() <= c.depth
}

// PatrolTable alternates between the path and attacks on what crosses it.
func PatrolTable() fsm.Table[*PatrolContext] {
	return fsm.Table[*PatrolContext]{
		fsm.Row(Patrolling, EnemyAhead, Engaging),
		fsm.Row(Engaging, AttackDone, Patrolling),
	}
}

// Patrol sweeps a cube around a fixed center and turns to shoot at anything
// dangerous that shows up ahead.
func Patrol(a *Agent, cfg Config) error {
	ctx := &PatrolContext{
		Clocked: Clocked{StateChanged: never},
		Params:  cfg.Patrol,
		Nav:     cfg.Navigation,
		Weapon:  cfg.Weapon,
	}
	m, err := fsm.NewMachine(Patrolling, PatrolTable(), ctx, attach(a, ctx, "patrol")...)
	if err != nil {
		return err
	}
	m.Start()
	a.AddMachine(m)
	return nil
}
