package cache

import "fmt"

// State is the lifecycle state of a cached checkout.
type State string

const (
	// StateNotCached means no usable checkout exists.
	StateNotCached State = "not_cached"

	// StatePulling means a fetch is writing the checkout.
	StatePulling State = "pulling"

	// StateCached means a first fetch finished but the checkout is not yet verified.
	StateCached State = "cached"

	// StateAvailable means the checkout is verified and may be read.
	StateAvailable State = "available"

	// StateExpired means the checkout must be fetched again before use.
	StateExpired State = "expired"

	// StateRefreshed means a re-fetch finished but the checkout is not yet verified.
	StateRefreshed State = "refreshed"
)

var transitions = map[State][]State{
	StateNotCached: {StatePulling},
	StatePulling:   {StateCached, StateRefreshed},
	StateCached:    {StateAvailable},
	StateRefreshed: {StateAvailable},
	StateAvailable: {StateExpired},
	StateExpired:   {StatePulling},
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether s may move to next. Any state may fall back
// to StateNotCached.
func (s State) CanTransition(next State) bool {
	if next == StateNotCached {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transient reports whether s only exists while a fetch holds the key. An
// entry persisted in a transient state was interrupted.
func (s State) Transient() bool {
	return s == StatePulling || s == StateCached || s == StateRefreshed
}

func (s State) String() string {
	return string(s)
}

// UnmarshalText rejects unknown states.
func (s *State) UnmarshalText(text []byte) error {
	v := State(text)
	if !v.Valid() {
		return fmt.Errorf("unknown cache state %q", text)
	}
	*s = v
	return nil
}
