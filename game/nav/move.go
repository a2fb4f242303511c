package nav

import (
	"strconv"

	"github.com/kasuganosora/subwars/game/command"
	"github.com/kasuganosora/subwars/game/sim"
)

// Vessel is the host surface the steering commands drive.
type Vessel interface {
	sim.Clock
	sim.Body
	sim.Actuators
}

// Move drives the vessel to a global position, bow first or stern first,
// rotating with the main engine and the jet oars together.
//
// Move finishes once the destination is closer than ArrivalDistance. It is
// not meant for destinations already inside that distance; those finish on
// the first step.
type Move struct {
	command.Base
	vessel      Vessel
	params      Params
	destination sim.Vec3
	forward     bool
	distance    float64
}

// NewMove moves v to destination. forward selects bow first.
func NewMove(v Vessel, destination sim.Vec3, forward bool, p Params) *Move {
	return &Move{vessel: v, params: p, destination: destination, forward: forward}
}

func (m *Move) Name() string { return "Move" }

func (m *Move) Details() string {
	return "to " + fmtVec(m.destination) + ", distance " + fmtFloat(m.distance)
}

// Distance returns the distance measured on the last step.
func (m *Move) Distance() float64 { return m.distance }

func (m *Move) Initialize() { m.distance = 0 }

func (m *Move) Step() {
	m.SetProgress(0.5)
	local := m.vessel.MakeLocalPosition(m.destination)
	bearing := sim.Normalize(local)

	// Behind the bow the nozzle follows the bearing and thrust reverses.
	dir, intensity := engineAway(bearing), 1.0
	if local.Z() <= 0 {
		dir, intensity = bearing, -1.0
	}
	if !m.forward {
		bearing = bearing.Mul(-1)
		dir = dir.Mul(-1)
	}

	e := m.vessel.MainEngine()
	e.SetDirection(dir)
	e.SetIntensity(intensity)
	steer(m.vessel, bearing, m.params.Gain)

	m.distance = local.Len()
	if m.distance < m.params.ArrivalDistance {
		m.Finish()
	}
}

func (m *Move) Cleanup() { release(m.vessel) }

func (m *Move) Clone() command.Command {
	return NewMove(m.vessel, m.destination, m.forward, m.params)
}

func fmtFloat(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) }
