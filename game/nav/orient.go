package nav

import (
	"time"

	"github.com/kasuganosora/subwars/game/command"
	"github.com/kasuganosora/subwars/game/sim"
)

// Orient turns the bow toward a global position with the jet oars alone,
// levelling the roll on the way. It finishes within tolerance degrees or
// after timeout, whichever comes first.
type Orient struct {
	command.Base
	vessel    Vessel
	params    Params
	position  sim.Vec3
	tolerance float64
	timeout   time.Duration
	started   time.Duration
	angle     float64
}

// NewOrient orients v toward position using the default tolerance and
// timeout from p.
func NewOrient(v Vessel, position sim.Vec3, p Params) *Orient {
	return NewOrientWithin(v, position, p.OrientTolerance, p.OrientTimeout, p)
}

// NewOrientWithin orients v toward position with an explicit tolerance in
// degrees and timeout.
func NewOrientWithin(v Vessel, position sim.Vec3, tolerance float64, timeout time.Duration, p Params) *Orient {
	return &Orient{vessel: v, params: p, position: position, tolerance: tolerance, timeout: timeout}
}

func (o *Orient) Name() string { return "Orient" }

func (o *Orient) Details() string {
	return "toward " + fmtVec(o.position) + ", angle " + fmtFloat(o.angle)
}

// Angle returns the residual angle measured on the last step, in degrees.
func (o *Orient) Angle() float64 { return o.angle }

func (o *Orient) Initialize() {
	o.started = o.vessel.Now()
	o.angle = 0
}

func (o *Orient) Step() {
	bearing := sim.Normalize(o.vessel.MakeLocalPosition(o.position))
	o.angle = sim.AngleBetween(bearing, sim.AxisZ)
	if bearing.Z() < 0 {
		// Behind: turn at full rate toward the nearer side.
		side := sim.Vec3{bearing.X(), bearing.Y(), 0}
		if side.Len() == 0 {
			side = sim.AxisX
		}
		bearing = sim.Normalize(side)
	}
	steer(o.vessel, bearing, o.params.Gain)

	up := o.vessel.MakeLocalDirection(sim.AxisY)
	o.vessel.AxialInclinationJetOar().SetIntensity(sim.Clamp(up.X()*o.params.Gain, -1, 1))

	elapsed := o.vessel.Now() - o.started
	if o.timeout > 0 {
		o.SetProgress(float64(elapsed) / float64(o.timeout))
	}
	if o.angle < o.tolerance || (o.timeout > 0 && elapsed >= o.timeout) {
		o.Finish()
	}
}

func (o *Orient) Cleanup() {
	o.vessel.BowsJetOar().SetIntensity(0)
	o.vessel.InclinationJetOar().SetIntensity(0)
	o.vessel.AxialInclinationJetOar().SetIntensity(0)
}

func (o *Orient) Clone() command.Command {
	return NewOrientWithin(o.vessel, o.position, o.tolerance, o.timeout, o.params)
}

// RotateToward picks the cheaper rotation toward a global position: Orient
// for turns up to FastRotateAbove degrees, FastRotate beyond.
func RotateToward(v Vessel, position sim.Vec3, p Params) command.Command {
	if TurnAngle(v, position) > p.FastRotateAbove {
		return NewFastRotate(v, position, p)
	}
	return NewOrient(v, position, p)
}

// TurnAngle returns the angle in degrees between the bow and the bearing to
// a global position.
func TurnAngle(v sim.Body, position sim.Vec3) float64 {
	return sim.AngleBetween(position.Sub(v.Position()), v.ForwardDirection())
}
