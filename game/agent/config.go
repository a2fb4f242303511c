package agent

import (
	"time"

	"github.com/kasuganosora/subwars/game/intercept"
	"github.com/kasuganosora/subwars/game/nav"
	"github.com/kasuganosora/subwars/game/weapon"
)

// Config gathers the tuning of every profile.
type Config struct {
	Navigation nav.Params       `mapstructure:"navigation"`
	Intercept  intercept.Config `mapstructure:"intercept"`
	Weapon     weapon.Params    `mapstructure:"weapon"`
	Scan       ScanParams       `mapstructure:"scan"`
	Maneuver   ManeuverParams   `mapstructure:"maneuver"`
	Patrol     PatrolParams     `mapstructure:"patrol"`
}

// ScanParams tunes the sonar scanning machines.
type ScanParams struct {
	// SoundLevel is the passive level that counts as a contact.
	SoundLevel float64 `mapstructure:"sound_level"`
	// AdjustWindow is how long the passive sonar sweeps for the loudest bearing.
	AdjustWindow time.Duration `mapstructure:"adjust_window"`
	// BeamAngle of the passive sonar during a full scan, degrees.
	BeamAngle float64 `mapstructure:"beam_angle"`
	// LostAfter gives up an active search without a detection.
	LostAfter time.Duration `mapstructure:"lost_after"`
	// AttackAfter is how long a target is tracked before attacking.
	AttackAfter time.Duration `mapstructure:"attack_after"`
}

// ManeuverParams tunes the rule-based maneuver machine. Rules holds
// expression overrides keyed by target state name.
type ManeuverParams struct {
	EvadeDistance  float64           `mapstructure:"evade_distance"`
	AvoidDistance  float64           `mapstructure:"avoid_distance"`
	EscapeDistance float64           `mapstructure:"escape_distance"`
	NearEnemy      float64           `mapstructure:"near_enemy"`
	FarEnemy       float64           `mapstructure:"far_enemy"`
	SupplyRange    float64           `mapstructure:"supply_range"`
	TrackStandoff  float64           `mapstructure:"track_standoff"`
	LookAhead      time.Duration     `mapstructure:"look_ahead"`
	AttackInterval time.Duration     `mapstructure:"attack_interval"`
	Rules          map[string]string `mapstructure:"rules"`
}

// PatrolParams tunes the patrol profile.
type PatrolParams struct {
	// Center of the searched cube.
	Center [3]float64 `mapstructure:"center"`
	// Edge is the side length of the searched cube.
	Edge float64 `mapstructure:"edge"`
	// Lookout is how far ahead of the bow enemies are searched for.
	Lookout float64 `mapstructure:"lookout"`
	// LookoutRadius is the search radius around the lookout point.
	LookoutRadius float64 `mapstructure:"lookout_radius"`
	// Pause after an attack before resuming the path.
	Pause time.Duration `mapstructure:"pause"`
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		Navigation: nav.DefaultParams(),
		Intercept:  intercept.DefaultConfig(),
		Weapon:     weapon.DefaultParams(),
		Scan: ScanParams{
			SoundLevel:   60,
			AdjustWindow: 1500 * time.Millisecond,
			BeamAngle:    25,
			LostAfter:    2 * time.Second,
			AttackAfter:  time.Second,
		},
		Maneuver: ManeuverParams{
			EvadeDistance:  200,
			AvoidDistance:  300,
			EscapeDistance: 400,
			NearEnemy:      500,
			FarEnemy:       3000,
			SupplyRange:    3000,
			TrackStandoff:  400,
			LookAhead:      5 * time.Second,
			AttackInterval: 1100 * time.Millisecond,
			Rules:          DefaultManeuverRules(),
		},
		Patrol: PatrolParams{
			Edge:          1000,
			Lookout:       400,
			LookoutRadius: 600,
			Pause:         2 * time.Second,
		},
	}
}
