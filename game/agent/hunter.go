package agent

import (
	"github.com/kasuganosora/subwars/game/fsm"
	"github.com/kasuganosora/subwars/game/intercept"
	"github.com/kasuganosora/subwars/game/sim"
	"github.com/kasuganosora/subwars/game/weapon"
)

// Hunter rolls about its bow while listening, closes in on contacts with
// the active sonar and fires at the predicted intercept point of a tracked
// submarine. It never moves on its own.
func Hunter(a *Agent, cfg Config) error {
	ctx := NewScanContext(cfg.Scan, 1)
	predictor := intercept.New(cfg.Intercept)
	ctx.OnTrack = func(c *ScanContext, target sim.Vec3) {
		engage(c, predictor, cfg, target)
	}

	m, err := fsm.NewMachine(ScanFully, TrackingTable(), ctx, attach(a, ctx, "scanner")...)
	if err != nil {
		return err
	}
	m.Start()
	a.AddMachine(m)
	return nil
}

// engage fires once the target was tracked for AttackAfter, the vessel is
// idle and the intercept solution is valid.
func engage(c *ScanContext, predictor *intercept.Predictor, cfg Config, target sim.Vec3) {
	v := c.Vessel()
	p := c.Processor()
	if v == nil || p == nil {
		return
	}
	if v.Now()-c.TrackEntered <= cfg.Scan.AttackAfter {
		return
	}
	if v.FrontLeftBattery().IsEmpty() || p.IsBusy() {
		return
	}
	sol := predictor.PredictTracked(v, v.Map(), target)
	if !sol.Valid {
		return
	}
	p.Execute(weapon.AttackAtPosition(v, sol.Aim, cfg.Navigation, cfg.Weapon))
}
