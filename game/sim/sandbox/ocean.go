package sandbox

import (
	"sort"
	"sync"
	"time"

	"github.com/kasuganosora/subwars/game/sim"
)

// Config tunes the sandbox sensors.
type Config struct {
	// PassiveRange is the distance at which a vessel falls silent.
	PassiveRange float64 `mapstructure:"passive_range"`
	// ActiveRange is the ping range of the active sonar.
	ActiveRange float64 `mapstructure:"active_range"`
	// Supplies are the positions of the weapon supplies.
	Supplies [][3]float64 `mapstructure:"supplies"`
}

// DefaultConfig returns the sandbox defaults.
func DefaultConfig() Config {
	return Config{PassiveRange: 3000, ActiveRange: 1500}
}

// Ocean holds the sandbox vessels and refreshes their sensors after every
// step. Each vessel charts the others as medium dangers.
type Ocean struct {
	mu     sync.Mutex
	cfg    Config
	subs   map[string]*Submarine
	static []sim.MapElement
}

// NewOcean creates an empty ocean.
func NewOcean(cfg Config) *Ocean {
	o := &Ocean{cfg: cfg, subs: make(map[string]*Submarine)}
	for _, p := range cfg.Supplies {
		o.static = append(o.static, sim.MapElement{Position: p, Kind: sim.KindWeaponSupply})
	}
	return o
}

// Launch adds a vessel at pos.
func (o *Ocean) Launch(id string, pos sim.Vec3) *Submarine {
	s := NewSubmarine(pos)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subs[id] = s
	o.sense()
	return s
}

// Sink removes a vessel.
func (o *Ocean) Sink(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.subs, id)
}

// Len returns the number of vessels.
func (o *Ocean) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}

// Step advances every vessel by dt and refreshes the sensors.
func (o *Ocean) Step(dt time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, id := range o.ids() {
		o.subs[id].Advance(dt)
	}
	o.sense()
}

func (o *Ocean) ids() []string {
	ids := make([]string, 0, len(o.subs))
	for id := range o.subs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (o *Ocean) sense() {
	for _, id := range o.ids() {
		s := o.subs[id]
		chart := append([]sim.MapElement(nil), o.static...)
		var (
			nearest *Submarine
			dist    float64
		)
		for _, other := range o.subs {
			if other == s {
				continue
			}
			chart = append(chart, sim.MapElement{
				Position: other.Pos,
				Velocity: other.Velocity(),
				Kind:     sim.KindDangerMedium,
			})
			if d := other.Pos.Sub(s.Pos).Len(); nearest == nil || d < dist {
				nearest, dist = other, d
			}
		}
		s.Chart.Elements = chart

		s.Passive.Lvl = 0
		s.Active.Detected = false
		s.Active.Submarine = false
		if nearest == nil {
			continue
		}
		bearing := sim.Normalize(nearest.Pos.Sub(s.Pos))
		if dist < o.cfg.PassiveRange {
			s.Passive.Lvl = 100 * (1 - dist/o.cfg.PassiveRange)
			s.Passive.Dir = bearing
		}
		if dist < o.cfg.ActiveRange {
			s.Active.Detected = true
			s.Active.Submarine = true
			s.Active.Target = nearest.Pos
			s.Active.Dir = bearing
		}
	}
}
