package nav

import (
	"math"

	"github.com/kasuganosora/subwars/game/command"
	"github.com/kasuganosora/subwars/game/sim"
)

// SetIntensity sets one actuator and finishes on its first step.
type SetIntensity struct {
	command.Base
	label     string
	thruster  sim.Thruster
	intensity float64
}

// NewSetIntensity sets t to intensity.
func NewSetIntensity(label string, t sim.Thruster, intensity float64) *SetIntensity {
	return &SetIntensity{label: label, thruster: t, intensity: intensity}
}

func (c *SetIntensity) Name() string    { return "SetIntensity" }
func (c *SetIntensity) Details() string { return c.label + " " + fmtFloat(c.intensity) }
func (c *SetIntensity) Initialize()     {}
func (c *SetIntensity) Cleanup()        {}

func (c *SetIntensity) Step() {
	c.thruster.SetIntensity(c.intensity)
	c.Finish()
}

func (c *SetIntensity) Clone() command.Command {
	return NewSetIntensity(c.label, c.thruster, c.intensity)
}

// DisableAllEngines stops the jet oars and the main engine, one actuator
// per tick.
func DisableAllEngines(v sim.Actuators) *command.Macro {
	return command.NewMacro("DisableAllEngines",
		NewSetIntensity("axial", v.AxialInclinationJetOar(), 0),
		NewSetIntensity("inclination", v.InclinationJetOar(), 0),
		NewSetIntensity("bows", v.BowsJetOar(), 0),
		NewSetIntensity("main", v.MainEngine(), 0),
	)
}

// MoveForward travels a signed distance along the bow axis with the main
// engine, measured from where the command starts.
type MoveForward struct {
	command.Base
	vessel    Vessel
	params    Params
	distance  float64
	from      sim.Vec3
	remaining float64
}

// NewMoveForward moves v distance units along its bow; negative distances
// back up.
func NewMoveForward(v Vessel, distance float64, p Params) *MoveForward {
	return &MoveForward{vessel: v, params: p, distance: distance}
}

func (m *MoveForward) Name() string { return "MoveForward" }

func (m *MoveForward) Details() string {
	return fmtFloat(m.distance) + ", remaining " + fmtFloat(m.remaining)
}

func (m *MoveForward) Initialize() {
	m.from = m.vessel.Position()
	m.remaining = m.distance
	m.vessel.MainEngine().SetDirection(sim.AxisZ)
}

func (m *MoveForward) Step() {
	travelled := m.vessel.Position().Sub(m.from).Dot(m.vessel.ForwardDirection())
	m.remaining = m.distance - travelled
	if m.distance != 0 {
		m.SetProgress(travelled / m.distance)
	}
	if math.Abs(m.remaining) < m.params.ForwardTolerance {
		m.Finish()
		return
	}
	m.vessel.MainEngine().SetIntensity(sim.Clamp(m.remaining*m.params.ForwardGain, -1, 1))
}

func (m *MoveForward) Cleanup() { m.vessel.MainEngine().SetIntensity(0) }

func (m *MoveForward) Clone() command.Command {
	return NewMoveForward(m.vessel, m.distance, m.params)
}
