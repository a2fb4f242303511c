package nav

import (
	"time"

	"github.com/kasuganosora/subwars/game/command"
	"github.com/kasuganosora/subwars/game/sim"
)

// FastRotate turns the bow toward a global position using the main engine
// and the jet oars. The propulsion sign flips every FlipPeriod so the hull
// turns in place instead of running off along the first heading.
//
// Small turns converge slowly; prefer Orient below FastRotateAbove degrees.
type FastRotate struct {
	command.Base
	vessel  Vessel
	params  Params
	target  sim.Vec3
	flipper float64
	flipped time.Duration
	angle   float64
}

// NewFastRotate rotates v toward position. The aim point is pushed
// RotateMargin units beyond position along the current bearing so that a
// nearby position cannot degenerate the bearing.
func NewFastRotate(v Vessel, position sim.Vec3, p Params) *FastRotate {
	dir := sim.Normalize(position.Sub(v.Position()))
	return &FastRotate{
		vessel: v,
		params: p,
		target: position.Add(dir.Mul(p.RotateMargin)),
	}
}

func (r *FastRotate) Name() string { return "FastRotate" }

func (r *FastRotate) Details() string {
	return "toward " + fmtVec(r.target) + ", angle " + fmtFloat(r.angle)
}

// Angle returns the residual angle measured on the last step, in degrees.
func (r *FastRotate) Angle() float64 { return r.angle }

// Target returns the pushed-out aim point.
func (r *FastRotate) Target() sim.Vec3 { return r.target }

func (r *FastRotate) Initialize() {
	r.angle = 0
	r.flipper = 1
	r.flipped = r.vessel.Now()
}

func (r *FastRotate) Step() {
	r.SetProgress(0.5)
	bearing := sim.Normalize(r.vessel.MakeLocalPosition(r.target))

	dir := engineAway(bearing)
	if r.flipper < 0 {
		dir = bearing
	}
	e := r.vessel.MainEngine()
	e.SetDirection(dir)
	e.SetIntensity(r.flipper)
	steer(r.vessel, bearing, r.params.Gain)

	if now := r.vessel.Now(); now-r.flipped > r.params.FlipPeriod {
		r.flipper = -r.flipper
		r.flipped = now
	}

	r.angle = sim.AngleBetween(bearing, sim.AxisZ)
	if r.angle < r.params.RotateDoneAngle {
		r.Finish()
	}
}

func (r *FastRotate) Cleanup() { release(r.vessel) }

func (r *FastRotate) Clone() command.Command {
	return &FastRotate{vessel: r.vessel, params: r.params, target: r.target}
}
