package models

import (
	"fmt"
	"math"
	"math/rand"
)

// MixTolerance is how far a play mix may drift from summing to 1
const MixTolerance = 0.01

// PlayMix is a play-type probability distribution
type PlayMix map[PlayType]float64

// Total sums the weights of the mix
func (m PlayMix) Total() float64 {
	total := 0.0
	for _, p := range AllPlayTypes {
		total += m[p]
	}
	return total
}

// Validate checks weights are non-negative, callable and sum to 1 within MixTolerance
func (m PlayMix) Validate(field string) error {
	if len(m) == 0 {
		return NewConfigError(field, "play mix is empty")
	}
	for p, w := range m {
		if !p.Valid() {
			return NewConfigError(field, "unknown play type %d", int(p))
		}
		if p == PlayExtraPoint {
			return NewConfigError(field, "extra_point is not a callable play")
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return NewConfigError(field, "weight for %s is %v", p, w)
		}
	}
	if total := m.Total(); math.Abs(total-1) > MixTolerance {
		return NewConfigError(field, "weights sum to %.4f, want 1", total)
	}
	return nil
}

// Restrict keeps only the listed play types. The result is not renormalized;
// Sample normalizes by the remaining total.
func (m PlayMix) Restrict(types ...PlayType) PlayMix {
	out := make(PlayMix, len(types))
	for _, p := range types {
		if w, ok := m[p]; ok && w > 0 {
			out[p] = w
		}
	}
	return out
}

// Sample draws a play type proportionally to the weights. It reports false when
// the mix carries no weight.
func (m PlayMix) Sample(rng *rand.Rand) (PlayType, bool) {
	total := m.Total()
	if total <= 0 {
		return 0, false
	}
	r := rng.Float64() * total
	var last PlayType
	found := false
	for _, p := range AllPlayTypes {
		w := m[p]
		if w <= 0 {
			continue
		}
		last, found = p, true
		if r < w {
			return p, true
		}
		r -= w
	}
	return last, found
}

// TeamTendencies maps down/distance situations to play-call distributions.
// It is shared read-only by every trial of a batch.
type TeamTendencies struct {
	Buckets map[SituationKey]PlayMix `json:"buckets"`
	Default PlayMix                  `json:"default"`
}

// Lookup returns the mix for a situation, falling back to the table default
func (t *TeamTendencies) Lookup(key SituationKey) (PlayMix, bool) {
	if t == nil {
		return nil, false
	}
	if mix, ok := t.Buckets[key]; ok && mix.Total() > 0 {
		return mix, true
	}
	if t.Default.Total() > 0 {
		return t.Default, true
	}
	return nil, false
}

// Validate checks every bucket mix. A table without a default is allowed when
// it is layered over a league table; ValidateLeague requires one.
func (t *TeamTendencies) Validate(field string) error {
	if t == nil {
		return NewConfigError(field, "tendency table is missing")
	}
	for key, mix := range t.Buckets {
		if key.Down < 1 || key.Down > 4 {
			return NewConfigError(field, "bucket %s has invalid down", key)
		}
		if err := mix.Validate(fmt.Sprintf("%s.buckets[%s]", field, key)); err != nil {
			return err
		}
	}
	if len(t.Default) > 0 {
		if err := t.Default.Validate(field + ".default"); err != nil {
			return err
		}
	}
	return nil
}

// ValidateLeague validates a table that must serve as the final fallback
func (t *TeamTendencies) ValidateLeague(field string) error {
	if err := t.Validate(field); err != nil {
		return err
	}
	if len(t.Default) == 0 {
		return NewConfigError(field+".default", "league tendencies need a default mix")
	}
	if t.Default.Restrict(PlayRun, PlayPass).Total() <= 0 {
		return NewConfigError(field+".default", "default mix must include run or pass")
	}
	return nil
}
