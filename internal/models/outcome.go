package models

import (
	"fmt"
	"math"
)

// YardsKind selects how a yards distribution is parametrized
type YardsKind string

const (
	YardsBands  YardsKind = "bands"
	YardsNormal YardsKind = "normal"
)

// YardBand is a weighted inclusive range of yards
type YardBand struct {
	Min    int     `json:"min" yaml:"min"`
	Max    int     `json:"max" yaml:"max"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// YardsSpec parametrizes a yards-gained distribution
type YardsSpec struct {
	Kind   YardsKind  `json:"kind" yaml:"kind"`
	Bands  []YardBand `json:"bands,omitempty" yaml:"bands,omitempty"`
	Mean   float64    `json:"mean,omitempty" yaml:"mean,omitempty"`
	StdDev float64    `json:"std_dev,omitempty" yaml:"std_dev,omitempty"`
	Min    float64    `json:"min,omitempty" yaml:"min,omitempty"`
	Max    float64    `json:"max,omitempty" yaml:"max,omitempty"`
}

// Validate checks the distribution can be sampled
func (y YardsSpec) Validate(field string) error {
	switch y.Kind {
	case YardsBands:
		if len(y.Bands) == 0 {
			return NewConfigError(field, "bands distribution has no bands")
		}
		total := 0.0
		for i, b := range y.Bands {
			if b.Max < b.Min {
				return NewConfigError(field, "band %d has max %d below min %d", i, b.Max, b.Min)
			}
			if b.Weight < 0 || math.IsNaN(b.Weight) {
				return NewConfigError(field, "band %d has weight %v", i, b.Weight)
			}
			total += b.Weight
		}
		if total <= 0 {
			return NewConfigError(field, "bands carry no weight")
		}
	case YardsNormal:
		if y.StdDev <= 0 {
			return NewConfigError(field, "normal distribution needs std_dev > 0")
		}
		if y.Max <= y.Min {
			return NewConfigError(field, "normal distribution needs max > min")
		}
		if y.Mean < y.Min || y.Mean > y.Max {
			return NewConfigError(field, "normal mean %.1f outside [%.1f, %.1f]", y.Mean, y.Min, y.Max)
		}
	default:
		return NewConfigError(field, "unknown yards kind %q", y.Kind)
	}
	return nil
}

// IsZero reports whether no distribution was supplied
func (y YardsSpec) IsZero() bool {
	return y.Kind == "" && len(y.Bands) == 0
}

// OutcomeDistribution parametrizes how one play type resolves. Rates are
// probabilities in [0,1]; which fields apply depends on the play type.
type OutcomeDistribution struct {
	// Yards gained on success: rush yards, completed-pass yards, gross punt distance
	Yards YardsSpec `json:"yards" yaml:"yards"`
	// Completion for passes, make rate at 30 yards for field goals, make rate for extra points
	SuccessRate float64 `json:"success_rate" yaml:"success_rate"`
	// Interceptions for passes, fumbles for runs
	TurnoverRate float64 `json:"turnover_rate" yaml:"turnover_rate"`
	// Share of fumbles recovered by the defense
	FumbleLostRate float64   `json:"fumble_lost_rate" yaml:"fumble_lost_rate"`
	SackRate       float64   `json:"sack_rate" yaml:"sack_rate"`
	SackYards      YardsSpec `json:"sack_yards" yaml:"sack_yards"`
	PenaltyRate    float64   `json:"penalty_rate" yaml:"penalty_rate"`
	// Chance a gain that would score from outside the red zone is kept
	LongTouchdownRate float64 `json:"long_touchdown_rate" yaml:"long_touchdown_rate"`
	LongGainCap       int     `json:"long_gain_cap" yaml:"long_gain_cap"`
	// Field goal make rate lost per yard beyond 30
	DistanceDecay float64   `json:"distance_decay" yaml:"distance_decay"`
	ReturnYards   YardsSpec `json:"return_yards" yaml:"return_yards"`
}

// Validate checks rates and the distributions the play type needs
func (o OutcomeDistribution) Validate(play PlayType) error {
	field := "outcomes." + play.String()
	rates := map[string]float64{
		"success_rate":        o.SuccessRate,
		"turnover_rate":       o.TurnoverRate,
		"fumble_lost_rate":    o.FumbleLostRate,
		"sack_rate":           o.SackRate,
		"penalty_rate":        o.PenaltyRate,
		"long_touchdown_rate": o.LongTouchdownRate,
	}
	for name, r := range rates {
		if r < 0 || r > 1 || math.IsNaN(r) {
			return NewConfigError(field+"."+name, "rate %v outside [0,1]", r)
		}
	}
	if o.DistanceDecay < 0 {
		return NewConfigError(field+".distance_decay", "must not be negative")
	}
	switch play {
	case PlayRun, PlayPass, PlayPunt:
		if err := o.Yards.Validate(field + ".yards"); err != nil {
			return err
		}
	}
	if play == PlayPass && o.SackRate > 0 {
		if err := o.SackYards.Validate(field + ".sack_yards"); err != nil {
			return err
		}
	}
	if !o.ReturnYards.IsZero() {
		if err := o.ReturnYards.Validate(field + ".return_yards"); err != nil {
			return err
		}
	}
	if play.IsScrimmage() && o.TurnoverRate+o.SackRate+o.PenaltyRate > 1 {
		return NewConfigError(field, "event rates sum above 1")
	}
	return nil
}

// OutcomeTable holds one distribution per play type
type OutcomeTable map[PlayType]OutcomeDistribution

// RequiredPlayTypes must be present in every outcome table
var RequiredPlayTypes = []PlayType{PlayRun, PlayPass, PlayPunt, PlayFieldGoal}

// Validate checks required play types are present and each entry is well formed
func (t OutcomeTable) Validate() error {
	for _, p := range RequiredPlayTypes {
		if _, ok := t[p]; !ok {
			return NewConfigError("outcomes", "missing required play type %s", p)
		}
	}
	for _, p := range AllPlayTypes {
		dist, ok := t[p]
		if !ok {
			continue
		}
		if err := dist.Validate(p); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the distribution for a play type
func (t OutcomeTable) Get(p PlayType) (OutcomeDistribution, error) {
	dist, ok := t[p]
	if !ok {
		return OutcomeDistribution{}, fmt.Errorf("no outcome distribution for %s", p)
	}
	return dist, nil
}
