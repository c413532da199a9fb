package simulator

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/gridiron-sim/internal/models"
)

func TestDefaultSettingsValid(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero quarter", func(s *Settings) { s.QuarterLength = 0 }},
		{"zero overtime", func(s *Settings) { s.OvertimeLength = 0 }},
		{"unknown overtime rule", func(s *Settings) { s.OvertimeRule = "shootout" }},
		{"kickoff in end zone", func(s *Settings) { s.KickoffSpot = 0 }},
		{"touchback past midfield", func(s *Settings) { s.TouchbackSpot = 100 }},
		{"negative kneel window", func(s *Settings) { s.KneelSeconds = -1 }},
		{"threshold above one", func(s *Settings) { s.FourthDownThreshold = 1.5 }},
		{"field goal range too short", func(s *Settings) { s.FieldGoalMaxDistance = 10 }},
		{"rating edge too wide", func(s *Settings) { s.MaxRatingEdge = 0.9 }},
		{"no plays allowed", func(s *Settings) { s.MaxPlays = 0 }},
		{"missing clock key", func(s *Settings) {
			s.Clock = DefaultClockTable()
			delete(s.Clock, ClockPunt)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrInvalidConfiguration))
		})
	}
}

func TestParseOvertimeRule(t *testing.T) {
	rule, err := ParseOvertimeRule(" Sudden_Death ")
	require.NoError(t, err)
	assert.Equal(t, OvertimeSuddenDeath, rule)

	_, err = ParseOvertimeRule("coin_flip")
	assert.True(t, errors.Is(err, models.ErrInvalidConfiguration))
}

func TestParseClockTable(t *testing.T) {
	table, err := ParseClockTable("")
	require.NoError(t, err)
	assert.Equal(t, DefaultClockTable(), table)

	table, err = ParseClockTable("run=40, pass_incomplete=5")
	require.NoError(t, err)
	assert.Equal(t, 40, table[ClockRun])
	assert.Equal(t, 5, table[ClockPassIncomplete])
	assert.Equal(t, 33, table[ClockPassComplete])

	for _, bad := range []string{"run", "hurry_up=3", "run=fast", "run=-4"} {
		_, err := ParseClockTable(bad)
		assert.True(t, errors.Is(err, models.ErrInvalidConfiguration), bad)
	}
}

func TestClockTableString(t *testing.T) {
	table := ClockTable{ClockRun: 30, ClockKneel: 40}
	assert.Equal(t, "kneel=40,run=30", table.String())
}

func TestFieldGoalRange(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 42, FieldGoalDistance(75))
	assert.True(t, s.FieldGoalInRange(62))
	assert.False(t, s.FieldGoalInRange(61))
}

func TestDeriveSeed(t *testing.T) {
	assert.Equal(t, DeriveSeed(42, 7), DeriveSeed(42, 7))

	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		seed := DeriveSeed(42, i)
		assert.False(t, seen[seed], "trial %d collides", i)
		seen[seed] = true
	}
	assert.NotEqual(t, DeriveSeed(42, 0), DeriveSeed(43, 0))
}

func TestResolveBaseSeed(t *testing.T) {
	assert.Equal(t, int64(1234), ResolveBaseSeed(SeedFixed, 1234))
	assert.NotZero(t, ResolveBaseSeed(SeedRandom, 0))
}

func TestBandDistribution(t *testing.T) {
	bands := []models.YardBand{{Min: -2, Max: -1, Weight: 1}, {Min: 5, Max: 5, Weight: 3}, {Min: 9, Max: 20, Weight: 0}}
	d := NewBandDistribution(bands)
	rng := NewRand(3)

	counts := map[float64]int{}
	for i := 0; i < 8000; i++ {
		v := d.Sample(rng)
		counts[v]++
		assert.Contains(t, []float64{-2, -1, 5}, v)
	}
	assert.InDelta(t, 0.75, float64(counts[5])/8000, 0.02)
	assert.InDelta(t, 0.25*-1.5+0.75*5, d.Mean(), 1e-9)
	assert.Greater(t, d.StdDev(), 0.0)
}

func TestTruncatedNormalDistribution(t *testing.T) {
	d := NewTruncatedNormalDistribution(45, 7, 25, 70)
	rng := NewRand(6)
	sum := 0.0
	for i := 0; i < 5000; i++ {
		v := d.Sample(rng)
		require.GreaterOrEqual(t, v, 25.0)
		require.LessOrEqual(t, v, 70.0)
		sum += v
	}
	assert.InDelta(t, 45, sum/5000, 0.5)

	// bounds far from the mean fall back to the clamp
	tight := NewTruncatedNormalDistribution(0, 1, 50, 60)
	assert.Equal(t, 50.0, tight.Sample(rng))
}

func TestNewYardsDistribution(t *testing.T) {
	d, err := NewYardsDistribution(models.YardsSpec{Kind: models.YardsNormal, Mean: 7, StdDev: 3, Min: 1, Max: 15}, "sack")
	require.NoError(t, err)
	assert.Equal(t, 7.0, d.Mean())

	_, err = NewYardsDistribution(models.YardsSpec{Kind: models.YardsNormal, Mean: 7, StdDev: 0, Min: 1, Max: 15}, "sack")
	assert.True(t, errors.Is(err, models.ErrInvalidConfiguration))

	_, err = NewYardsDistribution(models.YardsSpec{Kind: "poisson"}, "run")
	assert.Error(t, err)

	c := constantDistribution(-1)
	assert.Equal(t, -1.0, c.Sample(nil))
	assert.Zero(t, c.StdDev())
	assert.False(t, math.IsNaN(c.Mean()))
}
