package weapon

import (
	"time"

	"github.com/kasuganosora/subwars/game/command"
	"github.com/kasuganosora/subwars/game/nav"
	"github.com/kasuganosora/subwars/game/sim"
)

// Platform is a vessel that can steer and shoot.
type Platform interface {
	nav.Vessel
	sim.Armory
}

// AttackAtPosition stops the vessel, turns it toward target and fires two
// torpedoes a second apart from the front left battery.
func AttackAtPosition(v Platform, target sim.Vec3, np nav.Params, p Params) *command.Macro {
	return command.NewMacro("AttackAtPosition",
		nav.DisableAllEngines(v),
		nav.NewOrientWithin(v, target, np.OrientTolerance, np.OrientTimeout, np),
		NewFire(v, v.FrontLeftBattery(), target, p),
		command.NewWait(v, time.Second),
		NewFire(v, v.FrontLeftBattery(), target, p),
		command.NewWait(v, 1500*time.Millisecond),
	)
}

// Recharge refills one battery from a named supply.
type Recharge struct {
	command.Base
	battery sim.Battery
	supply  string
	kind    sim.WeaponKind
}

// NewRecharge refills battery with kind from supply.
func NewRecharge(battery sim.Battery, supply string, kind sim.WeaponKind) *Recharge {
	return &Recharge{battery: battery, supply: supply, kind: kind}
}

func (r *Recharge) Name() string    { return "Recharge" }
func (r *Recharge) Details() string { return r.supply }
func (r *Recharge) Initialize()     {}
func (r *Recharge) Cleanup()        {}

func (r *Recharge) Step() {
	r.battery.Recharge(r.supply, r.kind)
	r.Finish()
}

func (r *Recharge) Clone() command.Command {
	return NewRecharge(r.battery, r.supply, r.kind)
}

// RechargeAt refills every battery at the supply at position. A supply
// farther than SupplyRadius is approached to SupplyStandoff first, and the
// vessel returns to where it started afterwards.
func RechargeAt(v Platform, supply sim.Vec3, np nav.Params, p Params) *command.Macro {
	m := command.NewMacro("RechargeAt")
	start := v.Position()
	toSupply := supply.Sub(start)
	approach := toSupply.Len() > p.SupplyRadius
	if approach {
		m.Attach(nav.NewMove(v, supply.Sub(sim.Normalize(toSupply).Mul(p.SupplyStandoff)), true, np))
	}
	m.Attach(NewRecharge(v.FrontLeftBattery(), p.SupplyName, sim.GreenTorpedo))
	m.Attach(NewRecharge(v.FrontRightBattery(), p.SupplyName, sim.RedTorpedo))
	m.Attach(NewRecharge(v.BackBattery(), p.SupplyName, sim.GreenMine))
	m.Attach(command.NewWait(v, p.RechargeWait))
	if approach {
		m.Attach(nav.NewMove(v, start, true, np))
	}
	return m
}
