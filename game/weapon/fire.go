package weapon

import (
	"fmt"
	"strconv"

	"github.com/kasuganosora/subwars/game/command"
	"github.com/kasuganosora/subwars/game/sim"
)

// Fire launches one torpedo from a battery, fused to go off near a global
// position. It finishes on its first step, also when the target is too close
// or the battery is empty.
type Fire struct {
	command.Base
	body    sim.Body
	battery sim.Battery
	target  sim.Vec3
	params  Params
	fired   bool
}

// NewFire fires from battery at target.
func NewFire(body sim.Body, battery sim.Battery, target sim.Vec3, p Params) *Fire {
	return &Fire{body: body, battery: battery, target: target, params: p}
}

func (f *Fire) Name() string { return "Fire" }

func (f *Fire) Details() string {
	return fmt.Sprintf("at %.1f %.1f %.1f, fired %t", f.target.X(), f.target.Y(), f.target.Z(), f.fired)
}

// Fired reports whether a torpedo left the battery.
func (f *Fire) Fired() bool { return f.fired }

func (f *Fire) Initialize() {}
func (f *Fire) Cleanup()    {}

func (f *Fire) Step() {
	defer f.Finish()
	distance := f.target.Sub(f.body.Position()).Len()
	if distance < f.params.MinFireDistance || f.battery.IsEmpty() {
		return
	}
	w := f.battery.Next()
	if w == nil {
		return
	}
	if f.params.ArmDelay > 0 {
		w.Arm(f.params.ArmDelay)
	}
	w.Fire(seconds(distance / f.params.ProjectileSpeed))
	f.battery.Release(w)
	f.fired = true
}

func (f *Fire) Clone() command.Command {
	return NewFire(f.body, f.battery, f.target, f.params)
}

// LayMines drops mines from a battery while the vessel runs faster than
// MineSpeed, at least MineSpacing apart. The last mine is fused to go off
// after LastMineFuse. It finishes once the battery is empty.
type LayMines struct {
	command.Base
	body    sim.Body
	battery sim.Battery
	params  Params
	last    sim.Vec3
	laid    int
}

// NewLayMines lays mines from battery.
func NewLayMines(body sim.Body, battery sim.Battery, p Params) *LayMines {
	return &LayMines{body: body, battery: battery, params: p}
}

func (m *LayMines) Name() string { return "LayMines" }

func (m *LayMines) Details() string {
	return "mine " + strconv.Itoa(m.battery.Size()-m.battery.Inserted()+1) + " of " + strconv.Itoa(m.battery.Size())
}

// Laid returns the number of mines dropped so far.
func (m *LayMines) Laid() int { return m.laid }

func (m *LayMines) Initialize() { m.laid = 0 }
func (m *LayMines) Cleanup()    {}

func (m *LayMines) Step() {
	pos := m.body.Position()
	spaced := m.laid == 0 || pos.Sub(m.last).Len() > m.params.MineSpacing
	if m.body.ForwardVelocity() > m.params.MineSpeed && spaced && !m.battery.IsEmpty() {
		if w := m.battery.Next(); w != nil {
			w.Arm(m.params.ArmDelay)
			if m.battery.Inserted() == 1 {
				w.Fire(m.params.LastMineFuse)
			}
			m.battery.Release(w)
			m.last = pos
			m.laid++
			if size := m.battery.Size(); size > 0 {
				m.SetProgress(float64(size-m.battery.Inserted()) / float64(size))
			}
		}
	}
	if m.battery.IsEmpty() {
		m.Finish()
	}
}

func (m *LayMines) Clone() command.Command {
	return NewLayMines(m.body, m.battery, m.params)
}
