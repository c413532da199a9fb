package simulator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/internal/provider"
)

func newTestSelector(t *testing.T) *Selector {
	t.Helper()
	s, err := NewSelector(DefaultSettings(), provider.LeagueTendencies())
	require.NoError(t, err)
	return s
}

func TestSelectorOverride(t *testing.T) {
	s := newTestSelector(t)

	tests := []struct {
		name   string
		sit    models.Situation
		want   models.PlayType
		wantOK bool
	}{
		{
			name:   "kneel out the clock",
			sit:    models.Situation{Quarter: 4, Clock: 80, Down: 1, ToGo: 10, OwnYardLine: 40, ScoreDiff: 3, GameSecondsLeft: 80},
			want:   models.PlayKneel,
			wantOK: true,
		},
		{
			name: "leading with too much time left",
			sit:  models.Situation{Quarter: 4, Clock: 200, Down: 1, ToGo: 10, OwnYardLine: 40, ScoreDiff: 3, GameSecondsLeft: 200},
		},
		{
			name:   "trailing by four on fourth and long late",
			sit:    models.Situation{Quarter: 4, Clock: 10, Down: 4, ToGo: 15, OwnYardLine: 20, ScoreDiff: -4, GameSecondsLeft: 10},
			want:   models.PlayPass,
			wantOK: true,
		},
		{
			name:   "trailing by two in range as time expires",
			sit:    models.Situation{Quarter: 4, Clock: 5, Down: 2, ToGo: 7, OwnYardLine: 75, ScoreDiff: -2, GameSecondsLeft: 5},
			want:   models.PlayFieldGoal,
			wantOK: true,
		},
		{
			name:   "trailing by two with time to keep driving",
			sit:    models.Situation{Quarter: 4, Clock: 60, Down: 2, ToGo: 7, OwnYardLine: 75, ScoreDiff: -2, GameSecondsLeft: 60},
			want:   models.PlayPass,
			wantOK: true,
		},
		{
			name:   "end of half takes the points at any deficit",
			sit:    models.Situation{Quarter: 2, Clock: 30, Down: 4, ToGo: 6, OwnYardLine: 70, ScoreDiff: -10, GameSecondsLeft: 1830},
			want:   models.PlayFieldGoal,
			wantOK: true,
		},
		{
			name: "fourth and one at midfield goes for it",
			sit:  models.Situation{Quarter: 1, Clock: 600, Down: 4, ToGo: 1, OwnYardLine: 50, GameSecondsLeft: 3300},
		},
		{
			name:   "fourth and one deep in own territory punts",
			sit:    models.Situation{Quarter: 1, Clock: 600, Down: 4, ToGo: 1, OwnYardLine: 30, GameSecondsLeft: 3300},
			want:   models.PlayPunt,
			wantOK: true,
		},
		{
			name:   "fourth and eight in range kicks",
			sit:    models.Situation{Quarter: 1, Clock: 600, Down: 4, ToGo: 8, OwnYardLine: 70, GameSecondsLeft: 3300},
			want:   models.PlayFieldGoal,
			wantOK: true,
		},
		{
			name: "trailing by a touchdown in the fourth goes for it",
			sit:  models.Situation{Quarter: 4, Clock: 600, Down: 4, ToGo: 8, OwnYardLine: 20, ScoreDiff: -7, GameSecondsLeft: 600},
		},
		{
			name:   "garbage time runs",
			sit:    models.Situation{Quarter: 4, Clock: 250, Down: 2, ToGo: 6, OwnYardLine: 40, ScoreDiff: 20, GameSecondsLeft: 250},
			want:   models.PlayRun,
			wantOK: true,
		},
		{
			name: "ordinary first down samples",
			sit:  models.Situation{Quarter: 1, Clock: 900, Down: 1, ToGo: 10, OwnYardLine: 25, GameSecondsLeft: 3600},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.Override(tt.sit)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
			// same situation, same answer
			again, okAgain := s.Override(tt.sit)
			assert.Equal(t, ok, okAgain)
			assert.Equal(t, got, again)
		})
	}
}

func TestSelectorCall_TrailingLateAlwaysPasses(t *testing.T) {
	s := newTestSelector(t)
	sit := models.Situation{Quarter: 4, Clock: 10, Down: 4, ToGo: 15, OwnYardLine: 20, ScoreDiff: -4, GameSecondsLeft: 10}
	rng := NewRand(5)
	for i := 0; i < 100; i++ {
		assert.Equal(t, models.PlayPass, s.Call(sit, nil, rng))
	}
}

func TestSelectorCall_MatchesTeamMix(t *testing.T) {
	s := newTestSelector(t)
	team := &models.TeamTendencies{Buckets: map[models.SituationKey]models.PlayMix{
		models.KeyFor(1, 4): {models.PlayRun: 0.4, models.PlayPass: 0.6},
	}}
	sit := models.Situation{Quarter: 1, Clock: 900, Down: 1, ToGo: 4, OwnYardLine: 30, GameSecondsLeft: 3600}

	rng := NewRand(11)
	const draws = 10000
	passes := 0
	for i := 0; i < draws; i++ {
		if s.Call(sit, team, rng) == models.PlayPass {
			passes++
		}
	}
	assert.InDelta(t, 0.6, float64(passes)/draws, 0.02)
}

func TestSelectorCall_Deterministic(t *testing.T) {
	s := newTestSelector(t)
	sit := models.Situation{Quarter: 2, Clock: 500, Down: 2, ToGo: 7, OwnYardLine: 45, GameSecondsLeft: 2300}

	draw := func(seed int64) []models.PlayType {
		rng := NewRand(seed)
		out := make([]models.PlayType, 50)
		for i := range out {
			out[i] = s.Call(sit, nil, rng)
		}
		return out
	}
	assert.Equal(t, draw(3), draw(3))
}

func TestSelectorCall_GoingForItOnlyRunsOrPasses(t *testing.T) {
	s := newTestSelector(t)
	team := &models.TeamTendencies{Buckets: map[models.SituationKey]models.PlayMix{
		models.KeyFor(4, 1): {models.PlayPunt: 0.5, models.PlayRun: 0.3, models.PlayPass: 0.2},
	}}
	sit := models.Situation{Quarter: 1, Clock: 600, Down: 4, ToGo: 1, OwnYardLine: 50, GameSecondsLeft: 3300}

	rng := NewRand(2)
	for i := 0; i < 500; i++ {
		assert.True(t, s.Call(sit, team, rng).IsScrimmage())
	}
}

func TestSelectorCall_FieldGoalOutOfRangeResampled(t *testing.T) {
	league := provider.LeagueTendencies()
	league.Buckets[models.KeyFor(1, 10)] = models.PlayMix{models.PlayFieldGoal: 1}
	s, err := NewSelector(DefaultSettings(), league)
	require.NoError(t, err)

	sit := models.Situation{Quarter: 1, Clock: 900, Down: 1, ToGo: 10, OwnYardLine: 20, GameSecondsLeft: 3600}
	rng := NewRand(8)
	for i := 0; i < 200; i++ {
		assert.True(t, s.Call(sit, nil, rng).IsScrimmage())
	}

	// in range the sampled kick stands
	sit.OwnYardLine = 80
	sit.ToGo = 10
	assert.Equal(t, models.PlayFieldGoal, s.Call(sit, nil, rng))
}

func TestSelectorCall_FallsBackToLeague(t *testing.T) {
	league := &models.TeamTendencies{
		Buckets: map[models.SituationKey]models.PlayMix{},
		Default: models.PlayMix{models.PlayRun: 1},
	}
	s, err := NewSelector(DefaultSettings(), league)
	require.NoError(t, err)

	// team table without the bucket or a default
	team := &models.TeamTendencies{Buckets: map[models.SituationKey]models.PlayMix{
		models.KeyFor(3, 20): {models.PlayPass: 1},
	}}
	sit := models.Situation{Quarter: 1, Clock: 900, Down: 1, ToGo: 10, OwnYardLine: 25, GameSecondsLeft: 3600}
	assert.Equal(t, models.PlayRun, s.Call(sit, team, rand.New(rand.NewSource(1))))

	sit.Down, sit.ToGo = 3, 20
	assert.Equal(t, models.PlayPass, s.Call(sit, team, rand.New(rand.NewSource(1))))
}

func TestConversionCurve(t *testing.T) {
	curve := DefaultSettings().ConversionCurve
	assert.InDelta(t, 0.72, curve.Likelihood(1), 1e-9)
	assert.InDelta(t, 0.72, curve.Likelihood(0), 1e-9)
	prev := 1.0
	for toGo := 1; toGo <= 20; toGo++ {
		p := curve.Likelihood(toGo)
		assert.Less(t, p, prev)
		prev = p
	}
}
