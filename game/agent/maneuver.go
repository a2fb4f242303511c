package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kasuganosora/subwars/game/command"
	"github.com/kasuganosora/subwars/game/fsm"
	"github.com/kasuganosora/subwars/game/nav"
	"github.com/kasuganosora/subwars/game/script"
	"github.com/kasuganosora/subwars/game/sim"
	"github.com/kasuganosora/subwars/game/weapon"
)

// ManeuverContext is the shared state of the maneuver machine.
type ManeuverContext struct {
	Clocked
	Params ManeuverParams
	Nav    nav.Params
	Weapon weapon.Params

	WasHit            bool
	HitPosition       sim.Vec3
	WasCollided       bool
	CollisionPosition sim.Vec3
	ObjectOnCourse    sim.Vec3
	Enemy             sim.Vec3
	Supply            sim.Vec3
	// SupplyKnown is set when a supply announced itself through an event.
	SupplyKnown bool
	// Issued is set once the current state handed its plan to the processor.
	Issued bool
}

// ManeuverEnv is the expression environment of maneuver rules. Its methods
// query the host and record what they found in the context.
type ManeuverEnv struct {
	c *ManeuverContext
	// Now is the host time in seconds.
	Now float64
	// InState is how long the machine has been in its state, in seconds.
	InState float64
	// Speed is the signed forward speed.
	Speed float64
}

func maneuverEnv(c *ManeuverContext) ManeuverEnv {
	env := ManeuverEnv{c: c}
	if v := c.Vessel(); v != nil {
		now := v.Now()
		env.Now = now.Seconds()
		env.InState = (now - c.StateChanged).Seconds()
		env.Speed = v.ForwardVelocity()
	}
	return env
}

func (e ManeuverEnv) bindings() script.Bindings {
	return script.Bindings{
		"Now":               e.Now,
		"InState":           e.InState,
		"Speed":             e.Speed,
		"HitDetected":       e.HitDetected,
		"CollisionDetected": e.CollisionDetected,
		"ObjectOnCourse":    e.ObjectOnCourse,
		"HasWeapons":        e.HasWeapons,
		"WeaponSupply":      e.WeaponSupply,
		"NearEnemy":         e.NearEnemy,
		"FarEnemy":          e.FarEnemy,
	}
}

func (e ManeuverEnv) HitDetected() bool       { return e.c.WasHit }
func (e ManeuverEnv) CollisionDetected() bool { return e.c.WasCollided }

// ObjectOnCourse looks for anything where the vessel will be after
// LookAhead at its current velocity.
func (e ManeuverEnv) ObjectOnCourse() bool {
	v := e.c.Vessel()
	if v == nil {
		return false
	}
	travel := v.Velocity().Mul(e.c.Params.LookAhead.Seconds())
	el, ok := v.Map().FindNearest(v.Position().Add(travel), travel.Len(), sim.MapQuery{Include: sim.KindAnyDanger})
	if ok {
		e.c.ObjectOnCourse = el.Position
	}
	return ok
}

func (e ManeuverEnv) HasWeapons() bool {
	v := e.c.Vessel()
	return v != nil && !v.FrontLeftBattery().IsEmpty()
}

// WeaponSupply finds the nearest supply within SupplyRange. A supply that
// announced itself counts when the chart has none.
func (e ManeuverEnv) WeaponSupply() bool {
	v := e.c.Vessel()
	if v == nil {
		return false
	}
	el, ok := v.Map().FindNearest(v.Position(), e.c.Params.SupplyRange, sim.MapQuery{Include: sim.KindWeaponSupply})
	if ok {
		e.c.Supply = el.Position
		return true
	}
	return e.c.SupplyKnown && v.Position().Sub(e.c.Supply).Len() <= e.c.Params.SupplyRange
}

func (e ManeuverEnv) NearEnemy() bool { return e.enemyWithin(e.c.Params.NearEnemy) }
func (e ManeuverEnv) FarEnemy() bool  { return e.enemyWithin(e.c.Params.FarEnemy) }

func (e ManeuverEnv) enemyWithin(radius float64) bool {
	v := e.c.Vessel()
	if v == nil {
		return false
	}
	el, ok := v.Map().FindNearest(v.Position(), radius, sim.MapQuery{
		Include: sim.KindDangerMedium,
		Exclude: sim.KindWeaponSupply,
	})
	if ok {
		e.c.Enemy = el.Position
	}
	return ok
}

// maneuver is a state that hands a plan to the processor. Evasive states
// save the interrupted plan and restore it on exit; the rest replace it.
type maneuver struct {
	fsm.Nop[*ManeuverContext]
	label   string
	evasive bool
	// again reissues the plan each time the processor runs dry.
	again bool
	clear func(c *ManeuverContext)
	plan  func(c *ManeuverContext, v sim.Submarine) command.Command
}

func (m *maneuver) Name() string { return m.label }

func (m *maneuver) Enter(c *ManeuverContext) {
	c.Issued = false
	if m.clear != nil {
		m.clear(c)
	}
	p := c.Processor()
	if p == nil {
		return
	}
	if m.evasive {
		p.Push()
	}
	p.Cleanup()
}

func (m *maneuver) Update(c *ManeuverContext) {
	v, p := c.Vessel(), c.Processor()
	if v == nil || p == nil || p.IsBusy() {
		return
	}
	if c.Issued && !m.again {
		return
	}
	if cmd := m.plan(c, v); cmd != nil {
		p.Execute(cmd)
		c.Issued = true
	}
}

func (m *maneuver) Exit(c *ManeuverContext) {
	if !m.evasive {
		return
	}
	if p := c.Processor(); p != nil {
		if err := p.Pop(); err != nil {
			if a := c.Agent(); a != nil {
				a.Logger().Warn("restore interrupted plan", zap.String("state", m.label), zap.Error(err))
			}
		}
	}
}

type search struct{ fsm.Nop[*ManeuverContext] }

func (search) Name() string { return "Search" }

func (search) Enter(c *ManeuverContext) {
	if v := c.Vessel(); v != nil {
		v.AxialInclinationJetOar().SetIntensity(1)
	}
}

func (search) Exit(c *ManeuverContext) {
	if v := c.Vessel(); v != nil {
		v.AxialInclinationJetOar().SetIntensity(0)
	}
}

// Maneuver states, from the highest priority down.
var (
	AvoidHit fsm.State[*ManeuverContext] = &maneuver{
		label: "AvoidHit", evasive: true,
		clear: func(c *ManeuverContext) { c.WasHit = false },
		plan: func(c *ManeuverContext, v sim.Submarine) command.Command {
			return nav.NewMoveForward(v, c.Params.EvadeDistance, c.Nav)
		},
	}
	AvoidCollision fsm.State[*ManeuverContext] = &maneuver{
		label: "AvoidCollision", evasive: true,
		clear: func(c *ManeuverContext) { c.WasCollided = false },
		plan: func(c *ManeuverContext, v sim.Submarine) command.Command {
			d := c.Params.EvadeDistance
			if v.MakeLocalPosition(c.CollisionPosition).Z() >= 0 {
				d = -d
			}
			return nav.NewMoveForward(v, d, c.Nav)
		},
	}
	AvoidFutureCollision fsm.State[*ManeuverContext] = &maneuver{
		label: "AvoidFutureCollision", evasive: true,
		plan: func(c *ManeuverContext, v sim.Submarine) command.Command {
			return nav.NewMove(v, v.Position().Add(v.UpDirection().Mul(c.Params.AvoidDistance)), true, c.Nav)
		},
	}
	Escape fsm.State[*ManeuverContext] = &maneuver{
		label: "Escape", evasive: true,
		plan: func(c *ManeuverContext, v sim.Submarine) command.Command {
			return nav.NewMove(v, v.Position().Add(v.UpDirection().Mul(c.Params.EscapeDistance)), true, c.Nav)
		},
	}
	Recharge fsm.State[*ManeuverContext] = &maneuver{
		label: "Recharge",
		plan: func(c *ManeuverContext, v sim.Submarine) command.Command {
			return weapon.RechargeAt(v, c.Supply, c.Nav, c.Weapon)
		},
	}
	Attack fsm.State[*ManeuverContext] = &maneuver{
		label: "Attack", again: true,
		plan: func(c *ManeuverContext, v sim.Submarine) command.Command {
			wp := c.Weapon
			wp.ArmDelay = 0
			return command.NewMacro("Attack",
				nav.NewOrientWithin(v, c.Enemy, c.Nav.OrientTolerance, c.Nav.OrientTimeout, c.Nav),
				weapon.NewFire(v, v.FrontLeftBattery(), c.Enemy, wp),
				command.NewWait(v, c.Params.AttackInterval),
				weapon.NewFire(v, v.FrontLeftBattery(), c.Enemy, wp),
			)
		},
	}
	KeepTrack fsm.State[*ManeuverContext] = &maneuver{
		label: "KeepTrack", again: true,
		plan: func(c *ManeuverContext, v sim.Submarine) command.Command {
			dir := c.Enemy.Sub(v.Position())
			d := dir.Len()
			if d <= c.Params.TrackStandoff {
				return nil
			}
			return nav.NewMove(v, v.Position().Add(dir.Mul((d-c.Params.TrackStandoff)/d)), true, c.Nav)
		},
	}
	Search fsm.State[*ManeuverContext] = search{}
)

// DefaultManeuverRules returns the entry condition of every maneuver state
// keyed by state name. Search has no rule; it is where the machine starts
// and returns to.
func DefaultManeuverRules() map[string]string {
	return map[string]string{
		"AvoidHit":             "HitDetected()",
		"AvoidCollision":       "CollisionDetected()",
		"AvoidFutureCollision": "ObjectOnCourse()",
		"Escape":               "!HasWeapons() && NearEnemy()",
		"Recharge":             "!HasWeapons() && WeaponSupply()",
		"Attack":               "HasWeapons() && NearEnemy()",
		"KeepTrack":            "HasWeapons() && FarEnemy()",
	}
}

func maneuverRanks() []fsm.Ranked[*ManeuverContext] {
	return []fsm.Ranked[*ManeuverContext]{
		{State: AvoidHit, Priority: 8},
		{State: AvoidCollision, Priority: 7},
		{State: AvoidFutureCollision, Priority: 6},
		{State: Escape, Priority: 5},
		{State: Recharge, Priority: 4},
		{State: Attack, Priority: 3},
		{State: KeepTrack, Priority: 2},
		{State: Search, Priority: 1},
	}
}

// ManeuverDone holds once the state's plan ran to completion.
func ManeuverDone(c *ManeuverContext) bool {
	p := c.Processor()
	return c.Issued && p != nil && !p.IsBusy()
}

// ManeuverTable compiles rules, falling back to DefaultManeuverRules for
// missing entries, into the priority table of the maneuver machine. Rule
// names match state names case-insensitively; a rule prefixed with "js:" is
// JavaScript evaluated with the same names as globals. Every state other than Search
// returns to Search once it has nothing left to do.
func ManeuverTable(rules map[string]string) (fsm.Table[*ManeuverContext], error) {
	defaults := DefaultManeuverRules()
	byName := make(map[string]string, len(rules))
	for k, v := range rules {
		byName[strings.ToLower(k)] = v
	}
	ranks := maneuverRanks()
	var pool *script.Pool
	var compiled []fsm.Rule[*ManeuverContext]
	for _, r := range ranks {
		name := r.State.Name()
		src, ok := byName[strings.ToLower(name)]
		if !ok {
			src, ok = defaults[name]
		}
		if !ok || src == "" {
			continue
		}
		cond, err := compileRule(src, &pool)
		if err != nil {
			return nil, fmt.Errorf("maneuver rule %s: %w", name, err)
		}
		compiled = append(compiled, fsm.Rule[*ManeuverContext]{To: r.State, When: cond})
	}

	lost := func(has func(ManeuverEnv) bool) fsm.Condition[*ManeuverContext] {
		return func(c *ManeuverContext) bool { return !has(maneuverEnv(c)) }
	}
	release := fsm.Table[*ManeuverContext]{
		fsm.Row[*ManeuverContext](AvoidHit, ManeuverDone, Search),
		fsm.Row[*ManeuverContext](AvoidCollision, ManeuverDone, Search),
		fsm.Row[*ManeuverContext](AvoidFutureCollision, ManeuverDone, Search),
		fsm.Row[*ManeuverContext](Escape, ManeuverDone, Search),
		fsm.Row[*ManeuverContext](Recharge, ManeuverDone, Search),
		fsm.Row[*ManeuverContext](Attack, lost(ManeuverEnv.HasWeapons), Search),
		fsm.Row[*ManeuverContext](Attack, lost(ManeuverEnv.NearEnemy), Search),
		fsm.Row[*ManeuverContext](KeepTrack, lost(ManeuverEnv.FarEnemy), Search),
	}
	return fsm.BuildPriorityTable(ranks, compiled, release...)
}

// compileRule compiles an expr rule, or a JavaScript rule when src starts
// with "js:". JavaScript rules of one table share a single runtime, created
// on first use.
func compileRule(src string, pool **script.Pool) (fsm.Condition[*ManeuverContext], error) {
	js, ok := strings.CutPrefix(src, "js:")
	if !ok {
		return fsm.CompileCondition(src, maneuverEnv)
	}
	js = strings.TrimSpace(js)
	prog, err := script.Compile(js)
	if err != nil {
		return nil, err
	}
	if *pool == nil {
		*pool = script.NewPool(1, script.DefaultTimeout, zap.NewNop())
	}
	p := *pool
	return func(c *ManeuverContext) bool {
		ok, err := p.Truthy(context.Background(), prog, maneuverEnv(c).bindings())
		if err != nil {
			panic(&fsm.ConditionError{Source: js, Err: err})
		}
		return ok
	}, nil
}

// RuleBased runs a survey scanner next to the maneuver machine. The
// maneuver machine picks the most urgent of its states from the chart and
// from hit and collision events.
func RuleBased(a *Agent, cfg Config) error {
	table, err := ManeuverTable(cfg.Maneuver.Rules)
	if err != nil {
		return err
	}

	scan := NewScanContext(cfg.Scan, 0)
	scanner, err := fsm.NewMachine(ScanFully, SurveyTable(), scan, attach(a, scan, "scanner")...)
	if err != nil {
		return err
	}

	ctx := &ManeuverContext{
		Clocked: Clocked{StateChanged: never},
		Params:  cfg.Maneuver,
		Nav:     cfg.Navigation,
		Weapon:  cfg.Weapon,
	}
	m, err := fsm.NewMachine(Search, table, ctx, attach(a, ctx, "maneuver")...)
	if err != nil {
		return err
	}

	a.OnEvent(func(ev Event) {
		switch ev.Kind {
		case EventHit:
			ctx.WasHit = true
			ctx.HitPosition = ev.Position
		case EventCollision:
			ctx.WasCollided = true
			ctx.CollisionPosition = ev.Position
		case EventSupply:
			ctx.Supply = ev.Position
			ctx.SupplyKnown = true
		}
	})

	scanner.Start()
	m.Start()
	a.AddMachine(scanner)
	a.AddMachine(m)
	return nil
}
