// Package nav implements closed-loop steering commands against the
// simulation host.
package nav

import "time"

// Params holds the steering constants. The zero value is not usable; start
// from DefaultParams.
type Params struct {
	// Gain is the proportional factor from a unit bearing component to jet
	// oar intensity.
	Gain float64 `mapstructure:"gain"`
	// ArrivalDistance ends a move; destinations closer than this at start
	// are degenerate.
	ArrivalDistance float64 `mapstructure:"arrival_distance"`
	// RotateMargin pushes a fast-rotate target out along its bearing.
	RotateMargin float64 `mapstructure:"rotate_margin"`
	// FlipPeriod is how long the fast rotation keeps one propulsion sign.
	FlipPeriod time.Duration `mapstructure:"flip_period"`
	// RotateDoneAngle ends a fast rotation, in degrees.
	RotateDoneAngle float64 `mapstructure:"rotate_done_angle"`
	// FastRotateAbove selects FastRotate for larger turns, in degrees.
	FastRotateAbove float64 `mapstructure:"fast_rotate_above"`
	// OrientTolerance ends an orientation, in degrees.
	OrientTolerance float64 `mapstructure:"orient_tolerance"`
	// OrientTimeout bounds an orientation.
	OrientTimeout time.Duration `mapstructure:"orient_timeout"`
	// ForwardTolerance ends a straight move, in units.
	ForwardTolerance float64 `mapstructure:"forward_tolerance"`
	// ForwardGain maps remaining straight distance to engine intensity.
	ForwardGain float64 `mapstructure:"forward_gain"`
}

// DefaultParams returns the tuned steering constants.
func DefaultParams() Params {
	return Params{
		Gain:             5,
		ArrivalDistance:  90,
		RotateMargin:     200,
		FlipPeriod:       5 * time.Second,
		RotateDoneAngle:  0.3,
		FastRotateAbove:  4,
		OrientTolerance:  0.1,
		OrientTimeout:    100 * time.Second,
		ForwardTolerance: 2,
		ForwardGain:      0.05,
	}
}
