package nav

import "github.com/kasuganosora/subwars/game/sim"

// steer aims the jet oars at a unit bearing given in the local frame.
func steer(v sim.Actuators, bearing sim.Vec3, gain float64) {
	v.BowsJetOar().SetIntensity(sim.Clamp(-bearing.X()*gain, -1, 1))
	v.InclinationJetOar().SetIntensity(sim.Clamp(bearing.Y()*gain, -1, 1))
}

// engineAway points the main engine opposite to the lateral part of the
// bearing, so thrust pushes the bow toward it.
func engineAway(bearing sim.Vec3) sim.Vec3 {
	return sim.Vec3{-bearing.X(), -bearing.Y(), bearing.Z()}
}

// release zeroes every actuator a steering command touched and points the
// main engine back along the bow.
func release(v sim.Actuators) {
	v.BowsJetOar().SetIntensity(0)
	v.InclinationJetOar().SetIntensity(0)
	e := v.MainEngine()
	e.SetIntensity(0)
	e.SetDirection(sim.AxisZ)
}

func fmtVec(p sim.Vec3) string {
	return fmtFloat(p.X()) + " " + fmtFloat(p.Y()) + " " + fmtFloat(p.Z())
}
