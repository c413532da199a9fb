package fantasy

import (
	"fmt"
	"strings"

	"github.com/stitts-dev/gridiron-sim/internal/models"
)

// ScoringSystem names a fantasy scoring preset
type ScoringSystem string

const (
	ScoringStandard ScoringSystem = "standard"
	ScoringHalfPPR  ScoringSystem = "half_ppr"
	ScoringPPR      ScoringSystem = "ppr"
)

// Rules are the per-stat point values of a scoring system
type Rules struct {
	PassYard      float64 `json:"pass_yard"`
	PassTD        float64 `json:"pass_td"`
	Interception  float64 `json:"interception"`
	RushYard      float64 `json:"rush_yard"`
	RushTD        float64 `json:"rush_td"`
	Reception     float64 `json:"reception"`
	ReceivingYard float64 `json:"receiving_yard"`
	ReceivingTD   float64 `json:"receiving_td"`
	FumbleLost    float64 `json:"fumble_lost"`
}

var standardRules = Rules{
	PassYard:      0.04, // 1 point per 25 yards
	PassTD:        4,
	Interception:  -2,
	RushYard:      0.1,
	RushTD:        6,
	ReceivingYard: 0.1,
	ReceivingTD:   6,
	FumbleLost:    -2,
}

// RulesFor returns the point values for a scoring system
func RulesFor(system ScoringSystem) (Rules, error) {
	rules := standardRules
	switch system {
	case ScoringStandard:
	case ScoringHalfPPR:
		rules.Reception = 0.5
	case ScoringPPR:
		rules.Reception = 1
	default:
		return Rules{}, models.NewConfigError("scoring", "unknown scoring system %q", system)
	}
	return rules, nil
}

// ParseScoringSystem converts a name such as "PPR" or "half-ppr" into a ScoringSystem
func ParseScoringSystem(s string) (ScoringSystem, error) {
	name := ScoringSystem(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if name == "" {
		return ScoringStandard, nil
	}
	if _, err := RulesFor(name); err != nil {
		return "", err
	}
	return name, nil
}

// Points scores one stat line
func (r Rules) Points(s models.StatLine) float64 {
	return float64(s.PassYards)*r.PassYard +
		float64(s.PassTDs)*r.PassTD +
		float64(s.Interceptions)*r.Interception +
		float64(s.RushYards)*r.RushYard +
		float64(s.RushTDs)*r.RushTD +
		float64(s.Receptions)*r.Reception +
		float64(s.ReceivingYards)*r.ReceivingYard +
		float64(s.ReceivingTDs)*r.ReceivingTD +
		float64(s.FumblesLost)*r.FumbleLost
}

func (r Rules) String() string {
	return fmt.Sprintf("pass %.2f/yd %.0f/td, rush %.1f/yd, rec %.1f/catch %.1f/yd", r.PassYard, r.PassTD, r.RushYard, r.Reception, r.ReceivingYard)
}
