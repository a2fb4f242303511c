package agent

import (
	"time"

	"github.com/kasuganosora/subwars/game/fsm"
	"github.com/kasuganosora/subwars/game/sim"
)

// never is the timestamp of something that has not happened yet.
const never = -999 * time.Second

// ScanContext is shared by the sonar scanning states.
type ScanContext struct {
	Clocked
	Params ScanParams
	// Roll is the axial oar intensity while scanning the full circle.
	Roll float64
	// LastDetection is when the active sonar last saw a submarine.
	LastDetection time.Duration
	// LastDirection is the global bearing the sonars last settled on.
	LastDirection sim.Vec3
	// TrackEntered is when the current track started.
	TrackEntered time.Duration
	// OnTrack runs every tick while a target is tracked. Nil does nothing.
	OnTrack func(c *ScanContext, target sim.Vec3)
}

// NewScanContext returns a context with no detection history.
func NewScanContext(p ScanParams, roll float64) *ScanContext {
	return &ScanContext{
		Clocked:       Clocked{StateChanged: never},
		Params:        p,
		Roll:          roll,
		LastDetection: never,
		LastDirection: sim.AxisZ,
		TrackEntered:  never,
	}
}

// Scanner states. They are stateless values and may be shared by machines.
var (
	ScanFully          fsm.State[*ScanContext] = scanFully{}
	ScanCloselyPassive fsm.State[*ScanContext] = scanCloselyPassive{}
	ScanCloselyActive  fsm.State[*ScanContext] = scanCloselyActive{}
	TrackObject        fsm.State[*ScanContext] = trackObject{}
)

type scanFully struct{ fsm.Nop[*ScanContext] }

func (scanFully) Name() string { return "ScanFully" }

func (scanFully) Enter(c *ScanContext) {
	v := c.Vessel()
	if v == nil {
		return
	}
	v.InclinationJetOar().SetIntensity(0)
	v.AxialInclinationJetOar().SetIntensity(c.Roll)
	v.BowsJetOar().SetIntensity(0)
	v.PassiveSonar().Configure(sim.ScanSettings{
		AutoRotate: true,
		Direction:  sim.ScanFull,
		Velocity:   sim.SweepFast,
		Range:      sim.RangeNear,
		BeamAngle:  c.Params.BeamAngle,
	})
	v.ActiveSonar().Configure(sim.ScanSettings{
		AutoRotate: true,
		Direction:  sim.ScanFull,
		Velocity:   sim.SweepFast,
		Range:      sim.RangeNear,
	})
}

type scanCloselyPassive struct{ fsm.Nop[*ScanContext] }

func (scanCloselyPassive) Name() string { return "ScanCloselyPassive" }

func (scanCloselyPassive) Enter(c *ScanContext) {
	if v := c.Vessel(); v != nil {
		v.PassiveSonar().AdjustToMaximum(c.Params.AdjustWindow)
	}
}

func (scanCloselyPassive) Exit(c *ScanContext) {
	if v := c.Vessel(); v != nil {
		c.LastDirection = v.PassiveSonar().Direction()
	}
}

type scanCloselyActive struct{ fsm.Nop[*ScanContext] }

func (scanCloselyActive) Name() string { return "ScanCloselyActive" }

func (scanCloselyActive) Enter(c *ScanContext) {
	v := c.Vessel()
	if v == nil {
		return
	}
	v.ActiveSonar().Configure(sim.ScanSettings{
		AutoRotate:     true,
		Direction:      sim.ScanLocalDirection,
		Velocity:       sim.SweepFast,
		Range:          sim.RangeFar,
		LocalDirection: v.MakeLocalDirection(c.LastDirection),
	})
}

type trackObject struct{ fsm.Nop[*ScanContext] }

func (trackObject) Name() string { return "TrackObject" }

func (trackObject) Enter(c *ScanContext) {
	v := c.Vessel()
	if v == nil {
		return
	}
	c.TrackEntered = v.Now()
	sonar := v.ActiveSonar()
	sonar.Configure(sim.ScanSettings{AutoRotate: false, Direction: sim.ScanGlobalPosition})
	sonar.PointAt(sonar.TargetPosition())
}

func (trackObject) Update(c *ScanContext) {
	v := c.Vessel()
	if v == nil || c.OnTrack == nil {
		return
	}
	c.OnTrack(c, v.ActiveSonar().TargetPosition())
}

func (trackObject) Exit(c *ScanContext) {
	if v := c.Vessel(); v != nil {
		c.LastDirection = v.ActiveSonar().Direction()
	}
}

// SomethingDetected holds when the passive sonar hears a loud source and is
// not busy sweeping.
func SomethingDetected(c *ScanContext) bool {
	v := c.Vessel()
	if v == nil {
		return false
	}
	s := v.PassiveSonar()
	return s.Level() > c.Params.SoundLevel && !s.IsAdjusting()
}

// ObjectProbablyDetected holds once the passive sweep settled.
func ObjectProbablyDetected(c *ScanContext) bool {
	v := c.Vessel()
	return v != nil && v.PassiveSonar().HasAdjusted()
}

// SubmarineDetected holds while the active sonar sees a submarine and
// records the detection time.
func SubmarineDetected(c *ScanContext) bool {
	v := c.Vessel()
	if v == nil {
		return false
	}
	s := v.ActiveSonar()
	if s.HasTargetDetected() && s.IsTargetSubmarine() {
		c.LastDetection = v.Now()
		return true
	}
	return false
}

// TargetLost holds when nothing was detected for LostAfter and the machine
// has been in its state at least as long.
func TargetLost(c *ScanContext) bool {
	now := c.Now()
	return c.LastDetection+c.Params.LostAfter < now && c.StateChanged+c.Params.LostAfter < now
}

// ScannedForAwhile holds once the machine has been in its state for
// LostAfter.
func ScannedForAwhile(c *ScanContext) bool {
	return c.StateChanged+c.Params.LostAfter < c.Now()
}

// TrackingTable chases a detected submarine until it is lost.
func TrackingTable() fsm.Table[*ScanContext] {
	return fsm.Table[*ScanContext]{
		fsm.Row(ScanFully, SomethingDetected, ScanCloselyPassive),
		fsm.Row(ScanCloselyPassive, ObjectProbablyDetected, ScanCloselyActive),
		fsm.Row(ScanCloselyActive, TargetLost, ScanFully),
		fsm.Row(ScanCloselyActive, SubmarineDetected, TrackObject),
		fsm.Row(TrackObject, fsm.Not[*ScanContext](SubmarineDetected), ScanCloselyActive),
	}
}

// SurveyTable sweeps contacts briefly and returns to the full scan. It
// leaves target handling to the map queries of the maneuver machine.
func SurveyTable() fsm.Table[*ScanContext] {
	return fsm.Table[*ScanContext]{
		fsm.Row(ScanFully, SomethingDetected, ScanCloselyPassive),
		fsm.Row(ScanCloselyPassive, ObjectProbablyDetected, ScanCloselyActive),
		fsm.Row(ScanCloselyActive, fsm.Or[*ScanContext](ScannedForAwhile, SubmarineDetected), ScanFully),
	}
}
