// Package filter smooths tag measurements across frames.
//
// Each identifier keeps an exponentially smoothed value:
//
//	smoothed = persistence*previous + (1-persistence)*gain*raw
//
// The first observation of an identifier is stored as is. Identifiers that
// are not observed keep their state but produce no output; state is never
// dropped.
package filter

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrInvalidParams is returned for out-of-range filter parameters.
var ErrInvalidParams = errors.New("invalid filter parameters")

// Params tunes one smoothing domain.
type Params struct {
	// Persistence is the weight of the previous value, in [0, 1). Zero
	// disables smoothing.
	Persistence float64 `json:"persistence" yaml:"persistence"`

	// Gain scales each raw measurement before blending.
	Gain float64 `json:"gain" yaml:"gain"`
}

// DefaultParams returns pass-through parameters.
func DefaultParams() Params {
	return Params{Persistence: 0, Gain: 1}
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if math.IsNaN(p.Persistence) || p.Persistence < 0 || p.Persistence >= 1 {
		return fmt.Errorf("%w: persistence %g not in [0,1)", ErrInvalidParams, p.Persistence)
	}
	if math.IsNaN(p.Gain) || math.IsInf(p.Gain, 0) || p.Gain <= 0 {
		return fmt.Errorf("%w: gain %g must be finite and positive", ErrInvalidParams, p.Gain)
	}
	return nil
}

// BlendFunc combines the previous smoothed value with a raw measurement.
type BlendFunc[V any] func(prev, raw V, p Params) V

// State is the filter memory for one identifier.
type State[V any] struct {
	// Value is the latest smoothed value.
	Value V

	// LastSeen is the sequence number of the last frame that updated Value.
	LastSeen uint64

	// Updates counts the frames that observed the identifier.
	Updates int

	// before is Value as it was before the LastSeen frame, so that a second
	// observation in the same frame replaces the first instead of blending
	// twice.
	before V
	seeded bool
}

// Smoother keeps one State per identifier. It is safe for concurrent use.
type Smoother[K comparable, V any] struct {
	mu     sync.Mutex
	states map[K]*State[V]
	blend  BlendFunc[V]
}

// NewSmoother returns an empty smoother using blend.
func NewSmoother[K comparable, V any](blend BlendFunc[V]) *Smoother[K, V] {
	return &Smoother[K, V]{
		states: make(map[K]*State[V]),
		blend:  blend,
	}
}

// Update folds raw into the state of id for frame seq and returns the
// smoothed value to emit.
func (s *Smoother[K, V]) Update(id K, raw V, seq uint64, p Params) V {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[id]
	if !ok {
		st = &State[V]{}
		s.states[id] = st
	}

	if st.Updates > 0 && st.LastSeen == seq {
		// duplicate in the same frame: last write wins
		if st.seeded {
			st.Value = s.blend(st.before, raw, p)
		} else {
			st.Value = raw
		}
		return st.Value
	}

	if st.Updates == 0 {
		st.Value = raw
		st.seeded = false
	} else {
		st.before = st.Value
		st.seeded = true
		st.Value = s.blend(st.Value, raw, p)
	}
	st.LastSeen = seq
	st.Updates++
	return st.Value
}

// Get returns the state of id.
func (s *Smoother[K, V]) Get(id K) (State[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		return State[V]{}, false
	}
	return *st, true
}

// Len returns the number of identifiers with state.
func (s *Smoother[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// Reset forgets every identifier.
func (s *Smoother[K, V]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(map[K]*State[V])
}

// blendScalar applies the smoothing rule to one number.
func blendScalar(prev, raw float64, p Params) float64 {
	return p.Persistence*prev + (1-p.Persistence)*p.Gain*raw
}
