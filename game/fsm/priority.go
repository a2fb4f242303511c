package fsm

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownState is returned when a rule targets a state that has no rank.
var ErrUnknownState = errors.New("fsm: state has no rank")

// Ranked pairs a state with its preemption priority; higher wins.
type Ranked[C any] struct {
	State    State[C]
	Priority int
}

// Rule moves the machine into To when When holds, but only out of states
// ranked strictly below To.
type Rule[C any] struct {
	To   State[C]
	When Condition[C]
}

// BuildPriorityTable expands rules into an ordinary Table.
//
// Rules are ordered by target priority, highest first (declaration order
// breaks ties). Each rule yields one row per lower-ranked state, in the
// order the states were ranked, so preemption never needs hand-written
// exclusion lists. extra rows are appended after the generated ones.
func BuildPriorityTable[C any](states []Ranked[C], rules []Rule[C], extra ...Transition[C]) (Table[C], error) {
	rank := make(map[State[C]]int, len(states))
	for _, s := range states {
		if s.State == nil {
			return nil, fmt.Errorf("ranked state: %w", ErrNilState)
		}
		if _, dup := rank[s.State]; dup {
			return nil, fmt.Errorf("state %q ranked twice", s.State.Name())
		}
		rank[s.State] = s.Priority
	}

	ordered := make([]Rule[C], len(rules))
	copy(ordered, rules)
	for _, r := range ordered {
		if r.To == nil {
			return nil, fmt.Errorf("rule target: %w", ErrNilState)
		}
		if _, ok := rank[r.To]; !ok {
			return nil, fmt.Errorf("rule target %q: %w", r.To.Name(), ErrUnknownState)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return rank[ordered[i].To] > rank[ordered[j].To]
	})

	var table Table[C]
	for _, r := range ordered {
		p := rank[r.To]
		for _, s := range states {
			if s.Priority < p {
				table = append(table, Transition[C]{From: s.State, When: r.When, To: r.To})
			}
		}
	}
	for i, t := range extra {
		if t.To == nil {
			return nil, fmt.Errorf("extra row %d: target: %w", i, ErrNilState)
		}
	}
	return append(table, extra...), nil
}
