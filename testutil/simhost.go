package testutil

import (
	"github.com/kasuganosora/subwars/game/sim"
	"github.com/kasuganosora/subwars/game/sim/sandbox"
)

// FakeSubmarine is a sandbox vessel driven directly by a test: the test sets
// sensor readings itself and advances the clock with Advance or Run.
type FakeSubmarine = sandbox.Submarine

// NewFakeSubmarine returns a vessel at pos looking along +Z with full
// batteries of four charges.
func NewFakeSubmarine(pos sim.Vec3) *FakeSubmarine { return sandbox.NewSubmarine(pos) }

// NewFakeBattery returns a full battery of size n.
func NewFakeBattery(n int) *sandbox.Battery { return sandbox.NewBattery(n) }
