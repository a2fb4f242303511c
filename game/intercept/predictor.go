// Package intercept estimates firing solutions against moving targets.
package intercept

import (
	"math"

	"github.com/kasuganosora/subwars/game/sim"
)

// Config holds the measured ballistic and rotational constants.
type Config struct {
	// ProjectileSpeed is the torpedo speed, units per second.
	ProjectileSpeed float64 `mapstructure:"projectile_speed"`
	// MaxRotationRate is the hull's top angular rate, degrees per second.
	MaxRotationRate float64 `mapstructure:"max_rotation_rate"`
	// SecondsToFullRate is how long the hull takes to reach MaxRotationRate.
	SecondsToFullRate float64 `mapstructure:"seconds_to_full_rate"`
	// SecondsToStop is how long the hull takes to stop from MaxRotationRate.
	SecondsToStop float64 `mapstructure:"seconds_to_stop"`
	// Iterations is the number of fixed-point refinements.
	Iterations int `mapstructure:"iterations"`
	// MaxRotationDrift is the largest accepted change of the rotation time
	// between the last two iterations, in seconds.
	MaxRotationDrift float64 `mapstructure:"max_rotation_drift"`
	// MinFlight and MaxFlight bound the accepted torpedo flight time, in
	// seconds, exclusive.
	MinFlight float64 `mapstructure:"min_flight"`
	MaxFlight float64 `mapstructure:"max_flight"`
	// TrackRadius is how far from a sonar fix the map element carrying the
	// target velocity may lie.
	TrackRadius float64 `mapstructure:"track_radius"`
}

// DefaultConfig returns the measured constants.
func DefaultConfig() Config {
	return Config{
		ProjectileSpeed:   35.6,
		MaxRotationRate:   0.7,
		SecondsToFullRate: 4,
		SecondsToStop:     12,
		Iterations:        5,
		MaxRotationDrift:  2,
		MinFlight:         5,
		MaxFlight:         65,
		TrackRadius:       20,
	}
}

// RotationTime returns the seconds needed to turn the hull by angle degrees:
// accelerate to the top rate, cruise, then brake. Turns too short to reach
// the top rate split the angle between acceleration and braking.
func (c Config) RotationTime(angle float64) float64 {
	if angle <= 0 {
		return 0
	}
	accel := c.MaxRotationRate / c.SecondsToFullRate
	brake := c.MaxRotationRate / c.SecondsToStop
	accelAngle := accel * c.SecondsToFullRate * c.SecondsToFullRate / 2
	brakeAngle := brake * c.SecondsToStop * c.SecondsToStop / 2

	if angle >= accelAngle+brakeAngle {
		return c.SecondsToFullRate + (angle-accelAngle-brakeAngle)/c.MaxRotationRate + c.SecondsToStop
	}
	accelerated := angle * brake / (brake + accel)
	return math.Sqrt(2*accelerated/accel) + math.Sqrt(2*(angle-accelerated)/brake)
}

// Leg is the time budget to hit one aim point.
type Leg struct {
	Flight   float64 // torpedo travel time
	Rotation float64 // hull rotation time
}

// Total returns the lead time of the leg.
func (l Leg) Total() float64 { return l.Flight + l.Rotation }

// LegTo returns the time to rotate onto aim and reach it with a torpedo.
func (c Config) LegTo(from, forward, aim sim.Vec3) Leg {
	d := aim.Sub(from)
	return Leg{
		Flight:   d.Len() / c.ProjectileSpeed,
		Rotation: c.RotationTime(sim.AngleBetween(forward, d)),
	}
}

// Solution is the outcome of a prediction.
type Solution struct {
	Aim   sim.Vec3
	Legs  []Leg
	Valid bool
}

// Flight returns the torpedo flight time of the final leg.
func (s Solution) Flight() float64 {
	if len(s.Legs) == 0 {
		return 0
	}
	return s.Legs[len(s.Legs)-1].Flight
}

// Predictor iterates the aim point toward a moving target.
type Predictor struct {
	cfg Config
}

// New returns a Predictor using cfg.
func New(cfg Config) *Predictor {
	return &Predictor{cfg: cfg}
}

// Config returns the predictor constants.
func (p *Predictor) Config() Config { return p.cfg }

// Predict estimates where to fire at a target seen at target moving with
// velocity, from a platform at from whose bow points along forward.
//
// The first aim point is the target itself. Every iteration projects the
// target forward by velocity times the lead time of the current aim point.
// A solution is valid only if the rotation time changed by less than
// MaxRotationDrift over the last iteration and the final flight time lies
// strictly between MinFlight and MaxFlight. Callers must not fire on an
// invalid solution.
func (p *Predictor) Predict(from, forward, target, velocity sim.Vec3) Solution {
	n := max(p.cfg.Iterations, 1)
	sol := Solution{Aim: target, Legs: make([]Leg, 0, n)}
	for range n {
		leg := p.cfg.LegTo(from, forward, sol.Aim)
		sol.Legs = append(sol.Legs, leg)
		sol.Aim = target.Add(velocity.Mul(leg.Total()))
	}

	last := sol.Legs[n-1]
	converged := true
	if n > 1 {
		converged = math.Abs(sol.Legs[n-2].Rotation-last.Rotation) < p.cfg.MaxRotationDrift
	}
	sol.Valid = converged && last.Flight > p.cfg.MinFlight && last.Flight < p.cfg.MaxFlight
	return sol
}

// PredictTracked looks the target up on the chart to learn its velocity and
// predicts from own's current pose. A target missing from the chart yields
// an invalid solution aimed at the fix.
func (p *Predictor) PredictTracked(own sim.Body, chart sim.Map, target sim.Vec3) Solution {
	e, ok := chart.FindNearest(target, p.cfg.TrackRadius, sim.MapQuery{})
	if !ok {
		return Solution{Aim: target}
	}
	return p.Predict(own.Position(), own.ForwardDirection(), target, e.Velocity)
}
