// Package weapon implements firing, mine laying and recharging commands.
package weapon

import "time"

// Params holds the weapon handling constants.
type Params struct {
	// ProjectileSpeed converts a distance into a torpedo fuse time.
	ProjectileSpeed float64 `mapstructure:"projectile_speed"`
	// MinFireDistance suppresses shots at targets closer than this.
	MinFireDistance float64 `mapstructure:"min_fire_distance"`
	// ArmDelay arms a torpedo after launch; zero leaves it unarmed.
	ArmDelay time.Duration `mapstructure:"arm_delay"`
	// MineSpeed is the forward speed above which mines are laid.
	MineSpeed float64 `mapstructure:"mine_speed"`
	// MineSpacing is the minimal distance between two mines.
	MineSpacing float64 `mapstructure:"mine_spacing"`
	// LastMineFuse detonates the last mine of a battery after this delay.
	LastMineFuse time.Duration `mapstructure:"last_mine_fuse"`
	// SupplyRadius is how close a supply must be to recharge in place.
	SupplyRadius float64 `mapstructure:"supply_radius"`
	// SupplyStandoff is where the vessel stops in front of a far supply.
	SupplyStandoff float64 `mapstructure:"supply_standoff"`
	// RechargeWait is how long the vessel stays at the supply.
	RechargeWait time.Duration `mapstructure:"recharge_wait"`
	// SupplyName identifies the supply to the host.
	SupplyName string `mapstructure:"supply_name"`
}

// DefaultParams returns the measured weapon constants.
func DefaultParams() Params {
	return Params{
		ProjectileSpeed: 35.6,
		MinFireDistance: 50,
		ArmDelay:        5 * time.Second,
		MineSpeed:       9,
		MineSpacing:     150,
		LastMineFuse:    120 * time.Second,
		SupplyRadius:    280,
		SupplyStandoff:  200,
		RechargeWait:    15 * time.Second,
		SupplyName:      "envWeaponSupply",
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
