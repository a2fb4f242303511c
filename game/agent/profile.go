package agent

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownProfile is returned by Build for an unregistered name.
var ErrUnknownProfile = errors.New("agent: unknown profile")

// Profile installs the machines of a behaviour on a fresh agent.
type Profile func(a *Agent, cfg Config) error

var (
	profilesMu sync.RWMutex
	profiles   = map[string]Profile{
		"hunter":    Hunter,
		"rulebased": RuleBased,
		"patrol":    Patrol,
	}
)

// Register adds or replaces a profile.
func Register(name string, p Profile) {
	profilesMu.Lock()
	defer profilesMu.Unlock()
	profiles[name] = p
}

// Profiles lists the registered profile names in order.
func Profiles() []string {
	profilesMu.RLock()
	defer profilesMu.RUnlock()
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build installs the named profile on a.
func Build(name string, a *Agent, cfg Config) error {
	profilesMu.RLock()
	p, ok := profiles[name]
	profilesMu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	if err := p(a, cfg); err != nil {
		return fmt.Errorf("build profile %q: %w", name, err)
	}
	return nil
}
