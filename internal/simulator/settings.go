package simulator

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/stitts-dev/gridiron-sim/internal/models"
)

// OvertimeRule selects how a game tied after regulation is resolved
type OvertimeRule string

const (
	// OvertimeNone lets ties stand
	OvertimeNone OvertimeRule = "none"
	// OvertimeSuddenDeath ends the game on the first score
	OvertimeSuddenDeath OvertimeRule = "sudden_death"
	// OvertimeModified ends on an opening-possession touchdown, otherwise once both
	// teams have had the ball with the score unequal
	OvertimeModified OvertimeRule = "modified"
)

// ParseOvertimeRule converts a rule name into an OvertimeRule
func ParseOvertimeRule(s string) (OvertimeRule, error) {
	switch r := OvertimeRule(strings.ToLower(strings.TrimSpace(s))); r {
	case OvertimeNone, OvertimeSuddenDeath, OvertimeModified:
		return r, nil
	}
	return "", models.NewConfigError("overtime_rule", "unknown overtime rule %q", s)
}

// Clock runoff keys
const (
	ClockRun            = "run"
	ClockPassComplete   = "pass_complete"
	ClockPassIncomplete = "pass_incomplete"
	ClockSack           = "sack"
	ClockPunt           = "punt"
	ClockFieldGoal      = "field_goal"
	ClockKneel          = "kneel"
	ClockTurnover       = "turnover"
	ClockScore          = "score"
	ClockPenalty        = "penalty"
	ClockExtraPoint     = "extra_point"
)

// ClockKeys lists every runoff key a clock table must carry
var ClockKeys = []string{
	ClockRun, ClockPassComplete, ClockPassIncomplete, ClockSack, ClockPunt, ClockFieldGoal,
	ClockKneel, ClockTurnover, ClockScore, ClockPenalty, ClockExtraPoint,
}

// ClockTable maps a play outcome to the seconds it takes off the clock
type ClockTable map[string]int

// DefaultClockTable returns the stock runoff estimates
func DefaultClockTable() ClockTable {
	return ClockTable{
		ClockRun:            38,
		ClockPassComplete:   33,
		ClockPassIncomplete: 6,
		ClockSack:           32,
		ClockPunt:           10,
		ClockFieldGoal:      5,
		ClockKneel:          40,
		ClockTurnover:       8,
		ClockScore:          7,
		ClockPenalty:        6,
		ClockExtraPoint:     0,
	}
}

// ParseClockTable reads "key=seconds,key=seconds" overrides on top of the defaults
func ParseClockTable(s string) (ClockTable, error) {
	table := DefaultClockTable()
	if strings.TrimSpace(s) == "" {
		return table, nil
	}
	for _, pair := range strings.Split(s, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) != 2 {
			return nil, models.NewConfigError("clock_runoff", "entry %q must be key=seconds", pair)
		}
		key := strings.TrimSpace(kv[0])
		if _, ok := table[key]; !ok {
			return nil, models.NewConfigError("clock_runoff", "unknown key %q", key)
		}
		secs, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil {
			return nil, models.NewConfigError("clock_runoff", "seconds for %s: %v", key, err)
		}
		table[key] = secs
	}
	return table, table.Validate()
}

// Validate checks every key is present and non-negative
func (c ClockTable) Validate() error {
	for _, key := range ClockKeys {
		secs, ok := c[key]
		if !ok {
			return models.NewConfigError("clock_runoff", "missing key %s", key)
		}
		if secs < 0 {
			return models.NewConfigError("clock_runoff", "%s runoff is negative", key)
		}
	}
	return nil
}

func (c ClockTable) String() string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, c[k]))
	}
	return strings.Join(parts, ",")
}

// ConversionCurve estimates fourth-down conversion likelihood as Base*exp(-Decay*(toGo-1))
type ConversionCurve struct {
	Base  float64 `json:"base"`
	Decay float64 `json:"decay"`
}

// Likelihood returns the conversion estimate for yards to go
func (c ConversionCurve) Likelihood(toGo int) float64 {
	if toGo < 1 {
		toGo = 1
	}
	return clamp01(c.Base * math.Exp(-c.Decay*float64(toGo-1)))
}

// Settings is the engine configuration surface. Every heuristic threshold lives
// here so callers can tune it; DefaultSettings holds the stock values.
type Settings struct {
	QuarterLength  int          `json:"quarter_length"`
	OvertimeLength int          `json:"overtime_length"`
	OvertimeRule   OvertimeRule `json:"overtime_rule"`

	KickoffSpot         int `json:"kickoff_spot"`
	FreeKickSpot        int `json:"free_kick_spot"`
	TouchbackSpot       int `json:"touchback_spot"`
	MissedFieldGoalSpot int `json:"missed_field_goal_spot"`

	TwoMinuteSeconds      int             `json:"two_minute_seconds"`
	GarbageTimeSeconds    int             `json:"garbage_time_seconds"`
	GarbageTimeLead       int             `json:"garbage_time_lead"`
	KneelSeconds          int             `json:"kneel_seconds"`
	FourthDownThreshold   float64         `json:"fourth_down_threshold"`
	GoForItMinYardLine    int             `json:"go_for_it_min_yard_line"`
	FieldGoalMaxDistance  int             `json:"field_goal_max_distance"`
	FieldGoalClockSeconds int             `json:"field_goal_clock_seconds"`
	ConversionCurve       ConversionCurve `json:"conversion_curve"`

	MaxRatingEdge    float64 `json:"max_rating_edge"`
	YardsSensitivity float64 `json:"yards_sensitivity"`
	RateSensitivity  float64 `json:"rate_sensitivity"`

	OffensePenaltyYards int `json:"offense_penalty_yards"`
	DefensePenaltyYards int `json:"defense_penalty_yards"`

	Clock ClockTable `json:"clock"`

	// MaxPlays bounds a single game; exceeding it fails the trial
	MaxPlays int `json:"max_plays"`
}

// DefaultSettings returns the stock engine configuration
func DefaultSettings() Settings {
	return Settings{
		QuarterLength:         900,
		OvertimeLength:        600,
		OvertimeRule:          OvertimeModified,
		KickoffSpot:           25,
		FreeKickSpot:          30,
		TouchbackSpot:         20,
		MissedFieldGoalSpot:   20,
		TwoMinuteSeconds:      120,
		GarbageTimeSeconds:    300,
		GarbageTimeLead:       17,
		KneelSeconds:          90,
		FourthDownThreshold:   0.55,
		GoForItMinYardLine:    45,
		FieldGoalMaxDistance:  55,
		FieldGoalClockSeconds: 10,
		ConversionCurve:       ConversionCurve{Base: 0.72, Decay: 0.12},
		MaxRatingEdge:         0.25,
		YardsSensitivity:      0.5,
		RateSensitivity:       0.1,
		OffensePenaltyYards:   10,
		DefensePenaltyYards:   5,
		Clock:                 DefaultClockTable(),
		MaxPlays:              400,
	}
}

// Validate rejects settings the engine cannot run with
func (s Settings) Validate() error {
	if s.QuarterLength <= 0 {
		return models.NewConfigError("quarter_length", "must be positive")
	}
	if s.OvertimeLength <= 0 {
		return models.NewConfigError("overtime_length", "must be positive")
	}
	if _, err := ParseOvertimeRule(string(s.OvertimeRule)); err != nil {
		return err
	}
	for name, spot := range map[string]int{
		"kickoff_spot":            s.KickoffSpot,
		"free_kick_spot":          s.FreeKickSpot,
		"touchback_spot":          s.TouchbackSpot,
		"missed_field_goal_spot":  s.MissedFieldGoalSpot,
		"go_for_it_min_yard_line": s.GoForItMinYardLine,
	} {
		if spot < 1 || spot > 99 {
			return models.NewConfigError(name, "yard line %d outside [1,99]", spot)
		}
	}
	for name, v := range map[string]int{
		"two_minute_seconds":       s.TwoMinuteSeconds,
		"garbage_time_seconds":     s.GarbageTimeSeconds,
		"garbage_time_lead":        s.GarbageTimeLead,
		"kneel_seconds":            s.KneelSeconds,
		"field_goal_clock_seconds": s.FieldGoalClockSeconds,
		"offense_penalty_yards":    s.OffensePenaltyYards,
		"defense_penalty_yards":    s.DefensePenaltyYards,
	} {
		if v < 0 {
			return models.NewConfigError(name, "must not be negative")
		}
	}
	if s.FourthDownThreshold < 0 || s.FourthDownThreshold > 1 {
		return models.NewConfigError("fourth_down_threshold", "%.2f outside [0,1]", s.FourthDownThreshold)
	}
	if s.FieldGoalMaxDistance < 18 {
		return models.NewConfigError("field_goal_max_distance", "must be at least 18")
	}
	if s.MaxRatingEdge < 0 || s.MaxRatingEdge > 0.5 {
		return models.NewConfigError("max_rating_edge", "%.2f outside [0,0.5]", s.MaxRatingEdge)
	}
	if s.MaxPlays <= 0 {
		return models.NewConfigError("max_plays", "must be positive")
	}
	return s.Clock.Validate()
}

// FieldGoalDistance is the kick length from the offense's own yard line
func FieldGoalDistance(ownYardLine int) int {
	return 100 - ownYardLine + 17
}

// FieldGoalInRange reports whether a kick from the yard line is attempted at all
func (s Settings) FieldGoalInRange(ownYardLine int) bool {
	return FieldGoalDistance(ownYardLine) <= s.FieldGoalMaxDistance
}

func clamp01(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
