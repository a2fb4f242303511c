// Package sim declares the capability contracts the behaviour core consumes
// from the simulation host. Nothing here is implemented by the core: the host
// owns physics, sensors and weapons and advances the world once per tick.
package sim

import "time"

// TickInterval is the fixed simulation step.
const TickInterval = 10 * time.Millisecond

// Clock reports simulation time elapsed since the match started.
type Clock interface {
	Now() time.Duration
}

// Body exposes the pose of a vessel and its frame transforms.
type Body interface {
	Position() Vec3
	Velocity() Vec3
	// ForwardVelocity is the signed speed along the bow axis.
	ForwardVelocity() float64
	ForwardDirection() Vec3
	UpDirection() Vec3
	// MakeLocalPosition transforms a global position into the vessel frame.
	MakeLocalPosition(global Vec3) Vec3
	// MakeLocalDirection rotates a global direction into the vessel frame.
	MakeLocalDirection(global Vec3) Vec3
}

// Engine is the main propulsion unit. Direction is a local vector; the
// intensity sign selects thrust along or against it.
type Engine interface {
	SetDirection(local Vec3)
	SetIntensity(v float64)
}

// Thruster is a jet oar with a single intensity in [-1, 1].
type Thruster interface {
	SetIntensity(v float64)
}

// Actuators groups the per-tick actuator setters.
type Actuators interface {
	MainEngine() Engine
	// BowsJetOar turns the bow left/right (yaw).
	BowsJetOar() Thruster
	// InclinationJetOar pitches the bow up/down.
	InclinationJetOar() Thruster
	// AxialInclinationJetOar rolls the hull about the bow axis.
	AxialInclinationJetOar() Thruster
}

// ScanDirectionMode selects how a sonar head sweeps.
type ScanDirectionMode int

const (
	ScanFull ScanDirectionMode = iota
	ScanLocalDirection
	ScanGlobalPosition
)

// ScanRangeMode selects the sonar range.
type ScanRangeMode int

const (
	RangeNear ScanRangeMode = iota
	RangeFar
)

// ScanVelocityMode selects the sweep speed.
type ScanVelocityMode int

const (
	SweepSlow ScanVelocityMode = iota
	SweepFast
)

// ScanSettings configures one sonar head in a single call.
type ScanSettings struct {
	AutoRotate     bool
	Direction      ScanDirectionMode
	Velocity       ScanVelocityMode
	Range          ScanRangeMode
	LocalDirection Vec3    // used with ScanLocalDirection
	BeamAngle      float64 // degrees, 0 keeps the current beam
}

// PassiveSonar listens for sound sources.
type PassiveSonar interface {
	Level() float64
	IsAdjusting() bool
	HasAdjusted() bool
	// AdjustToMaximum starts a sweep that settles on the loudest bearing.
	AdjustToMaximum(window time.Duration)
	// Direction is the current global listening direction.
	Direction() Vec3
	Configure(s ScanSettings)
}

// ActiveSonar pings and ranges targets.
type ActiveSonar interface {
	HasTargetDetected() bool
	IsTargetSubmarine() bool
	TargetPosition() Vec3
	// Direction is the current global ping direction.
	Direction() Vec3
	Configure(s ScanSettings)
	PointAt(global Vec3)
}

// ElementKind is a bit set classifying map elements.
type ElementKind uint32

const (
	KindNone ElementKind = 1 << iota
	KindDangerLow
	KindDangerMedium
	KindDangerHigh
	KindWeaponSupply

	KindAnyDanger = KindNone | KindDangerLow | KindDangerMedium | KindDangerHigh
)

// MapElement is one entry of the host's spatial index.
type MapElement struct {
	Position Vec3
	Velocity Vec3
	Kind     ElementKind
}

// MapQuery filters FindNearest results. A zero Include matches every kind.
type MapQuery struct {
	Include ElementKind
	Exclude ElementKind
}

// Map is the host's spatial query index.
type Map interface {
	FindNearest(center Vec3, radius float64, q MapQuery) (MapElement, bool)
}

// Sensors groups sensor access.
type Sensors interface {
	PassiveSonar() PassiveSonar
	ActiveSonar() ActiveSonar
	Map() Map
}

// WeaponKind identifies a rechargeable weapon type.
type WeaponKind int

const (
	GreenTorpedo WeaponKind = iota
	RedTorpedo
	GreenMine
)

// Weapon is a handle to the next charge of a battery.
type Weapon interface {
	Arm(after time.Duration)
	Fire(after time.Duration)
}

// Battery is a finite store of weapon charges.
type Battery interface {
	IsEmpty() bool
	Size() int
	Inserted() int
	Next() Weapon
	Release(w Weapon)
	Recharge(supply string, kind WeaponKind)
}

// Armory groups the weapon batteries of a vessel.
type Armory interface {
	FrontLeftBattery() Battery
	FrontRightBattery() Battery
	BackBattery() Battery
}

// Submarine is the full host surface of one controlled vessel.
type Submarine interface {
	Clock
	Body
	Actuators
	Sensors
	Armory
}
