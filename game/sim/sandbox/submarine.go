// Package sandbox is a kinematic stand-in for the simulation host. It turns
// the hull from the actuator settings and drives it along the bow, and
// answers sensor queries from the positions of the other vessels. There is
// no hydrodynamics, acoustics or ballistics: it exists for dry runs of the
// behaviour profiles and for tests.
package sandbox

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/kasuganosora/subwars/game/sim"
)

// Submarine is one sandbox vessel. Advance integrates the last actuator
// settings: the jet oars and the lateral part of the main engine turn the
// hull, the axial part of the main engine drives it along the bow.
type Submarine struct {
	Time        time.Duration
	Pos         sim.Vec3
	Orientation mgl64.Quat

	// MaxSpeed is the forward speed at full intensity, units per second.
	MaxSpeed float64
	// TurnRate is the yaw/pitch rate at full oar intensity, degrees per second.
	TurnRate float64

	Main        Engine
	Bows        Thruster
	Inclination Thruster
	Axial       Thruster

	Passive PassiveSonar
	Active  ActiveSonar
	Chart   Chart

	FrontLeft  *Battery
	FrontRight *Battery
	Back       *Battery

	vel sim.Vec3
}

// NewSubmarine returns a vessel at pos looking along +Z.
func NewSubmarine(pos sim.Vec3) *Submarine {
	return &Submarine{
		Pos:         pos,
		Orientation: mgl64.QuatIdent(),
		MaxSpeed:    10,
		TurnRate:    20,
		Main:        Engine{Direction: sim.AxisZ},
		FrontLeft:   NewBattery(4),
		FrontRight:  NewBattery(4),
		Back:        NewBattery(4),
	}
}

// Face turns the vessel so its bow points along dir.
func (s *Submarine) Face(dir sim.Vec3) {
	s.Orientation = mgl64.QuatBetweenVectors(sim.AxisZ, sim.Normalize(dir))
}

// Advance integrates dt of motion and moves the clock.
func (s *Submarine) Advance(dt time.Duration) {
	sec := dt.Seconds()
	rate := mgl64.DegToRad(s.TurnRate)
	engineTurn := s.Main.Intensity
	yaw := (-s.Bows.Intensity - s.Main.Direction.X()*engineTurn) * rate * sec
	pitch := (s.Inclination.Intensity - s.Main.Direction.Y()*engineTurn) * rate * sec
	s.Orientation = s.Orientation.
		Mul(mgl64.QuatRotate(yaw, sim.AxisY)).
		Mul(mgl64.QuatRotate(-pitch, sim.AxisX)).
		Normalize()

	speed := sim.Clamp(s.Main.Intensity*s.Main.Direction.Z(), -1, 1) * s.MaxSpeed
	s.vel = s.ForwardDirection().Mul(speed)
	s.Pos = s.Pos.Add(s.vel.Mul(sec))
	s.Time += dt
}

// Run advances n simulation ticks, calling each fn before every tick.
func (s *Submarine) Run(n int, fns ...func()) {
	for range n {
		for _, fn := range fns {
			fn()
		}
		s.Advance(sim.TickInterval)
	}
}

func (s *Submarine) Now() time.Duration { return s.Time }

func (s *Submarine) Position() sim.Vec3 { return s.Pos }
func (s *Submarine) Velocity() sim.Vec3 { return s.vel }

func (s *Submarine) ForwardVelocity() float64 {
	return s.vel.Dot(s.ForwardDirection())
}

func (s *Submarine) ForwardDirection() sim.Vec3 { return s.Orientation.Rotate(sim.AxisZ) }
func (s *Submarine) UpDirection() sim.Vec3      { return s.Orientation.Rotate(sim.AxisY) }

func (s *Submarine) MakeLocalPosition(global sim.Vec3) sim.Vec3 {
	return s.Orientation.Conjugate().Rotate(global.Sub(s.Pos))
}

func (s *Submarine) MakeLocalDirection(global sim.Vec3) sim.Vec3 {
	return s.Orientation.Conjugate().Rotate(global)
}

func (s *Submarine) MainEngine() sim.Engine               { return &s.Main }
func (s *Submarine) BowsJetOar() sim.Thruster             { return &s.Bows }
func (s *Submarine) InclinationJetOar() sim.Thruster      { return &s.Inclination }
func (s *Submarine) AxialInclinationJetOar() sim.Thruster { return &s.Axial }
func (s *Submarine) PassiveSonar() sim.PassiveSonar       { return &s.Passive }
func (s *Submarine) ActiveSonar() sim.ActiveSonar         { return &s.Active }
func (s *Submarine) Map() sim.Map                         { return &s.Chart }
func (s *Submarine) FrontLeftBattery() sim.Battery        { return s.FrontLeft }
func (s *Submarine) FrontRightBattery() sim.Battery       { return s.FrontRight }
func (s *Submarine) BackBattery() sim.Battery             { return s.Back }

// Engine records the main engine settings.
type Engine struct {
	Direction sim.Vec3
	Intensity float64
}

func (e *Engine) SetDirection(local sim.Vec3) { e.Direction = local }
func (e *Engine) SetIntensity(v float64)      { e.Intensity = v }

// Thruster records a jet oar intensity.
type Thruster struct {
	Intensity float64
}

func (t *Thruster) SetIntensity(v float64) { t.Intensity = v }

// PassiveSonar reports the level and direction last set by the ocean.
// AdjustToMaximum completes immediately.
type PassiveSonar struct {
	Lvl      float64
	Dir      sim.Vec3
	Settings sim.ScanSettings
	adjusted bool
}

func (p *PassiveSonar) Level() float64                { return p.Lvl }
func (p *PassiveSonar) IsAdjusting() bool             { return false }
func (p *PassiveSonar) HasAdjusted() bool             { return p.adjusted }
func (p *PassiveSonar) AdjustToMaximum(time.Duration) { p.adjusted = true }
func (p *PassiveSonar) Direction() sim.Vec3           { return p.Dir }
func (p *PassiveSonar) Configure(s sim.ScanSettings) {
	p.Settings = s
	p.adjusted = false
}

// ActiveSonar reports the target last set by the ocean.
type ActiveSonar struct {
	Detected  bool
	Submarine bool
	Target    sim.Vec3
	Dir       sim.Vec3
	Settings  sim.ScanSettings
	AimedAt   sim.Vec3
}

func (a *ActiveSonar) HasTargetDetected() bool      { return a.Detected }
func (a *ActiveSonar) IsTargetSubmarine() bool      { return a.Submarine }
func (a *ActiveSonar) TargetPosition() sim.Vec3     { return a.Target }
func (a *ActiveSonar) Direction() sim.Vec3          { return a.Dir }
func (a *ActiveSonar) Configure(s sim.ScanSettings) { a.Settings = s }
func (a *ActiveSonar) PointAt(global sim.Vec3)      { a.AimedAt = global }

// Chart answers FindNearest from its element list.
type Chart struct {
	Elements []sim.MapElement
}

func (m *Chart) FindNearest(center sim.Vec3, radius float64, q sim.MapQuery) (sim.MapElement, bool) {
	var (
		best  sim.MapElement
		found bool
		dist  = radius
	)
	for _, e := range m.Elements {
		if q.Include != 0 && e.Kind&q.Include == 0 {
			continue
		}
		if e.Kind&q.Exclude != 0 {
			continue
		}
		if d := e.Position.Sub(center).Len(); d <= dist {
			best, dist, found = e, d, true
		}
	}
	return best, found
}

// Battery is a battery of Weapon charges.
type Battery struct {
	Capacity  int
	Charges   int
	Released  []*Weapon
	Recharges []sim.WeaponKind
	Supply    string
}

// NewBattery returns a full battery of size n.
func NewBattery(n int) *Battery {
	return &Battery{Capacity: n, Charges: n}
}

func (b *Battery) IsEmpty() bool { return b.Charges == 0 }
func (b *Battery) Size() int     { return b.Capacity }
func (b *Battery) Inserted() int { return b.Charges }
func (b *Battery) Next() sim.Weapon {
	if b.Charges == 0 {
		return nil
	}
	return &Weapon{}
}

func (b *Battery) Release(w sim.Weapon) {
	if b.Charges == 0 {
		return
	}
	b.Charges--
	if fw, ok := w.(*Weapon); ok {
		b.Released = append(b.Released, fw)
	}
}

func (b *Battery) Recharge(supply string, kind sim.WeaponKind) {
	b.Supply = supply
	b.Recharges = append(b.Recharges, kind)
	if b.Charges < b.Capacity {
		b.Charges++
	}
}

// Weapon records arm and fire delays.
type Weapon struct {
	ArmAfter  time.Duration
	FireAfter time.Duration
	Armed     bool
	Fired     bool
}

func (w *Weapon) Arm(after time.Duration) {
	w.ArmAfter, w.Armed = after, true
}

func (w *Weapon) Fire(after time.Duration) {
	w.FireAfter, w.Fired = after, true
}
