// Package config loads the service configuration from YAML through viper.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/kasuganosora/subwars/cache"
	"github.com/kasuganosora/subwars/db"
	"github.com/kasuganosora/subwars/game/agent"
	"github.com/kasuganosora/subwars/game/sim/sandbox"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database db.Config      `mapstructure:"database"`
	Cache    cache.Config   `mapstructure:"cache"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Sim      SimConfig      `mapstructure:"sim"`
	Agent    agent.Config   `mapstructure:"agent"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
}

type JournalConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Buffer        int           `mapstructure:"buffer"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// SpawnConfig places one agent in the sandbox ocean at startup.
type SpawnConfig struct {
	Profile  string     `mapstructure:"profile"`
	Position [3]float64 `mapstructure:"position"`
}

type SimConfig struct {
	TickMs int `mapstructure:"tick_ms"`
	// PublishEvery is the number of ticks between status board updates.
	PublishEvery int `mapstructure:"publish_every"`
	// History is the number of transitions kept per agent on the board.
	History int `mapstructure:"history"`
	// ReapAfter removes a failed agent once this long has passed.
	ReapAfter time.Duration  `mapstructure:"reap_after"`
	Sandbox   sandbox.Config `mapstructure:"sandbox"`
	Spawn     []SpawnConfig  `mapstructure:"spawn"`
}

// TickInterval returns the wall-clock period of the world tick.
func (c SimConfig) TickInterval() time.Duration {
	return time.Duration(c.TickMs) * time.Millisecond
}

type SecurityConfig struct {
	AdminKey       string  `mapstructure:"admin_key"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	// AdminNetworks limits the admin API to these CIDR prefixes or addresses.
	AdminNetworks []string `mapstructure:"admin_networks"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)

	v.SetDefault("database.mode", db.ModeSQLite)
	v.SetDefault("database.sqlite_path", "./data/journal.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("database.verbose", false)

	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.buffer", 1024)
	v.SetDefault("journal.batch_size", 100)
	v.SetDefault("journal.flush_interval", "2s")

	v.SetDefault("sim.tick_ms", 10)
	v.SetDefault("sim.publish_every", 10)
	v.SetDefault("sim.history", 50)
	v.SetDefault("sim.reap_after", "5s")
	sb := sandbox.DefaultConfig()
	v.SetDefault("sim.sandbox.passive_range", sb.PassiveRange)
	v.SetDefault("sim.sandbox.active_range", sb.ActiveRange)

	a := agent.DefaultConfig()
	n := a.Navigation
	v.SetDefault("agent.navigation.gain", n.Gain)
	v.SetDefault("agent.navigation.arrival_distance", n.ArrivalDistance)
	v.SetDefault("agent.navigation.rotate_margin", n.RotateMargin)
	v.SetDefault("agent.navigation.flip_period", n.FlipPeriod)
	v.SetDefault("agent.navigation.rotate_done_angle", n.RotateDoneAngle)
	v.SetDefault("agent.navigation.fast_rotate_above", n.FastRotateAbove)
	v.SetDefault("agent.navigation.orient_tolerance", n.OrientTolerance)
	v.SetDefault("agent.navigation.orient_timeout", n.OrientTimeout)
	v.SetDefault("agent.navigation.forward_tolerance", n.ForwardTolerance)
	v.SetDefault("agent.navigation.forward_gain", n.ForwardGain)

	i := a.Intercept
	v.SetDefault("agent.intercept.projectile_speed", i.ProjectileSpeed)
	v.SetDefault("agent.intercept.max_rotation_rate", i.MaxRotationRate)
	v.SetDefault("agent.intercept.seconds_to_full_rate", i.SecondsToFullRate)
	v.SetDefault("agent.intercept.seconds_to_stop", i.SecondsToStop)
	v.SetDefault("agent.intercept.iterations", i.Iterations)
	v.SetDefault("agent.intercept.max_rotation_drift", i.MaxRotationDrift)
	v.SetDefault("agent.intercept.min_flight", i.MinFlight)
	v.SetDefault("agent.intercept.max_flight", i.MaxFlight)
	v.SetDefault("agent.intercept.track_radius", i.TrackRadius)

	w := a.Weapon
	v.SetDefault("agent.weapon.projectile_speed", w.ProjectileSpeed)
	v.SetDefault("agent.weapon.min_fire_distance", w.MinFireDistance)
	v.SetDefault("agent.weapon.arm_delay", w.ArmDelay)
	v.SetDefault("agent.weapon.mine_speed", w.MineSpeed)
	v.SetDefault("agent.weapon.mine_spacing", w.MineSpacing)
	v.SetDefault("agent.weapon.last_mine_fuse", w.LastMineFuse)
	v.SetDefault("agent.weapon.supply_radius", w.SupplyRadius)
	v.SetDefault("agent.weapon.supply_standoff", w.SupplyStandoff)
	v.SetDefault("agent.weapon.recharge_wait", w.RechargeWait)
	v.SetDefault("agent.weapon.supply_name", w.SupplyName)

	s := a.Scan
	v.SetDefault("agent.scan.sound_level", s.SoundLevel)
	v.SetDefault("agent.scan.adjust_window", s.AdjustWindow)
	v.SetDefault("agent.scan.beam_angle", s.BeamAngle)
	v.SetDefault("agent.scan.lost_after", s.LostAfter)
	v.SetDefault("agent.scan.attack_after", s.AttackAfter)

	m := a.Maneuver
	v.SetDefault("agent.maneuver.evade_distance", m.EvadeDistance)
	v.SetDefault("agent.maneuver.avoid_distance", m.AvoidDistance)
	v.SetDefault("agent.maneuver.escape_distance", m.EscapeDistance)
	v.SetDefault("agent.maneuver.near_enemy", m.NearEnemy)
	v.SetDefault("agent.maneuver.far_enemy", m.FarEnemy)
	v.SetDefault("agent.maneuver.supply_range", m.SupplyRange)
	v.SetDefault("agent.maneuver.track_standoff", m.TrackStandoff)
	v.SetDefault("agent.maneuver.look_ahead", m.LookAhead)
	v.SetDefault("agent.maneuver.attack_interval", m.AttackInterval)
	v.SetDefault("agent.maneuver.rules", m.Rules)

	p := a.Patrol
	v.SetDefault("agent.patrol.edge", p.Edge)
	v.SetDefault("agent.patrol.lookout", p.Lookout)
	v.SetDefault("agent.patrol.lookout_radius", p.LookoutRadius)
	v.SetDefault("agent.patrol.pause", p.Pause)

	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
}
