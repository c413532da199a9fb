package provider

import (
	"github.com/stitts-dev/gridiron-sim/internal/models"
)

// Model is the read-only probability model a batch runs against
type Model struct {
	Tendencies *models.TeamTendencies `json:"tendencies"`
	Outcomes   models.OutcomeTable    `json:"outcomes"`
}

// Validate checks the league table can serve as the final fallback and the
// outcome table carries every required play type.
func (m *Model) Validate() error {
	if m == nil {
		return models.NewConfigError("model", "probability model is missing")
	}
	if m.Tendencies == nil {
		return models.NewConfigError("tendencies", "league tendencies are missing")
	}
	if err := m.Tendencies.ValidateLeague("tendencies"); err != nil {
		return err
	}
	return m.Outcomes.Validate()
}

// pass share by down and the bucket adjustment, in percentage points
var (
	downPassShare = map[int]float64{1: 48.3, 2: 56.7, 3: 72.8, 4: 65.2}
	bucketPassAdj = map[models.DistanceBucket]float64{
		models.BucketShort:    -12,
		models.BucketMedium:   -2,
		models.BucketStandard: 5,
		models.BucketLong:     15,
		models.BucketVeryLong: 20,
	}
)

// LeagueTendencies returns the league-average play-call table for every
// down and distance bucket.
func LeagueTendencies() *models.TeamTendencies {
	t := &models.TeamTendencies{
		Buckets: make(map[models.SituationKey]models.PlayMix),
		Default: models.PlayMix{models.PlayRun: 0.45, models.PlayPass: 0.55},
	}
	for down := 1; down <= 4; down++ {
		for _, bucket := range models.AllBuckets {
			pass := downPassShare[down] + bucketPassAdj[bucket]
			if pass < 30 {
				pass = 30
			}
			if pass > 90 {
				pass = 90
			}
			t.Buckets[models.SituationKey{Down: down, Bucket: bucket}] = models.PlayMix{
				models.PlayRun:  (100 - pass) / 100,
				models.PlayPass: pass / 100,
			}
		}
	}
	return t
}

// LeagueOutcomes returns league-average outcome distributions
func LeagueOutcomes() models.OutcomeTable {
	turnoverReturn := models.YardsSpec{Kind: models.YardsBands, Bands: []models.YardBand{
		{Min: 0, Max: 5, Weight: 0.62},
		{Min: 6, Max: 25, Weight: 0.3},
		{Min: 26, Max: 60, Weight: 0.06},
		{Min: 61, Max: 100, Weight: 0.02},
	}}
	return models.OutcomeTable{
		models.PlayRun: {
			Yards: models.YardsSpec{Kind: models.YardsBands, Bands: []models.YardBand{
				{Min: -8, Max: -1, Weight: 12},
				{Min: 0, Max: 0, Weight: 10},
				{Min: 1, Max: 4, Weight: 55},
				{Min: 5, Max: 9, Weight: 15},
				{Min: 10, Max: 19, Weight: 6},
				{Min: 20, Max: 80, Weight: 2},
			}},
			TurnoverRate:      0.012,
			FumbleLostRate:    0.5,
			PenaltyRate:       0.04,
			LongTouchdownRate: 0.45,
			ReturnYards:       turnoverReturn,
		},
		models.PlayPass: {
			Yards: models.YardsSpec{Kind: models.YardsBands, Bands: []models.YardBand{
				{Min: -5, Max: -1, Weight: 4},
				{Min: 1, Max: 5, Weight: 30},
				{Min: 6, Max: 15, Weight: 32},
				{Min: 16, Max: 25, Weight: 12},
				{Min: 26, Max: 80, Weight: 4},
			}},
			SuccessRate:       0.64,
			TurnoverRate:      0.024,
			SackRate:          0.065,
			SackYards:         models.YardsSpec{Kind: models.YardsNormal, Mean: 7, StdDev: 3, Min: 1, Max: 15},
			PenaltyRate:       0.05,
			LongTouchdownRate: 0.55,
			ReturnYards:       turnoverReturn,
		},
		models.PlayPunt: {
			Yards: models.YardsSpec{Kind: models.YardsNormal, Mean: 45, StdDev: 7, Min: 25, Max: 70},
			ReturnYards: models.YardsSpec{Kind: models.YardsBands, Bands: []models.YardBand{
				{Min: 0, Max: 0, Weight: 0.35},
				{Min: 1, Max: 10, Weight: 0.45},
				{Min: 11, Max: 25, Weight: 0.17},
				{Min: 26, Max: 60, Weight: 0.03},
			}},
		},
		models.PlayFieldGoal: {
			SuccessRate:   0.97,
			DistanceDecay: 0.012,
		},
		models.PlayExtraPoint: {
			SuccessRate: 0.94,
		},
	}
}

// LeagueDefaults returns the built-in model so the engine always has a fallback
func LeagueDefaults() *Model {
	return &Model{Tendencies: LeagueTendencies(), Outcomes: LeagueOutcomes()}
}
