package simulator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/internal/provider"
)

func leagueModel(t *testing.T) *OutcomeModel {
	t.Helper()
	m, err := NewOutcomeModel(provider.LeagueOutcomes(), DefaultSettings())
	require.NoError(t, err)
	return m
}

// averageContext is a play between two all-replacement rosters, so the rating edge is zero
func averageContext(own, down, toGo int) PlayContext {
	return PlayContext{
		Situation: models.Situation{Quarter: 1, Clock: 900, Down: down, ToGo: toGo, OwnYardLine: own, GameSecondsLeft: 3600},
		Offense:   models.ResolveDepthChart(&models.Team{ID: "off"}),
		Defense:   models.ResolveDepthChart(&models.Team{ID: "def"}),
	}
}

func TestNewOutcomeModel_RequiresTable(t *testing.T) {
	table := provider.LeagueOutcomes()
	delete(table, models.PlayFieldGoal)
	_, err := NewOutcomeModel(table, DefaultSettings())
	assert.True(t, errors.Is(err, models.ErrInvalidConfiguration))
}

func TestOutcomeModel_Edge(t *testing.T) {
	m := leagueModel(t)
	assert.InDelta(t, 0.1, m.Edge(60, 50), 1e-9)
	assert.InDelta(t, -0.1, m.Edge(50, 60), 1e-9)
	assert.InDelta(t, 0.25, m.Edge(100, 0), 1e-9)
	assert.InDelta(t, -0.25, m.Edge(0, 100), 1e-9)
}

func TestOutcomeModel_ScrimmageStaysOnField(t *testing.T) {
	m := leagueModel(t)
	rng := NewRand(17)

	for _, own := range []int{1, 5, 25, 50, 80, 95, 99} {
		ctx := averageContext(own, 1, min(10, 100-own))
		for i := 0; i < 2000; i++ {
			for _, play := range []models.PlayType{models.PlayRun, models.PlayPass} {
				o := m.Sample(play, ctx, rng)
				ytez := 100 - own
				assert.GreaterOrEqual(t, o.Yards, -own, "own %d %s", own, o.Result)
				assert.LessOrEqual(t, o.Yards, ytez, "own %d %s", own, o.Result)
				if o.Touchdown {
					assert.Equal(t, ytez, o.Yards)
				}
				if o.Turnover && o.Result != models.ResultInterception {
					assert.Less(t, o.Yards, ytez)
				}
				if o.Turnover && o.Yards < ytez {
					runway := own + o.Yards
					assert.GreaterOrEqual(t, o.ReturnYards, 0)
					assert.LessOrEqual(t, o.ReturnYards, runway)
					assert.Equal(t, o.ReturnYards == runway, o.DefensiveTouchdown)
				}
			}
		}
	}
}

func TestOutcomeModel_CompletionRate(t *testing.T) {
	m := leagueModel(t)
	rng := NewRand(23)
	ctx := averageContext(30, 1, 10)

	complete, thrown := 0, 0
	for i := 0; i < 20000; i++ {
		switch m.Sample(models.PlayPass, ctx, rng).Result {
		case models.ResultComplete:
			complete++
			thrown++
		case models.ResultIncomplete:
			thrown++
		}
	}
	assert.InDelta(t, 0.64, float64(complete)/float64(thrown), 0.02)
}

func TestOutcomeModel_WeatherLowersCompletions(t *testing.T) {
	m := leagueModel(t)
	clearCtx := averageContext(30, 1, 10)
	snowCtx := clearCtx
	snowCtx.Factors = models.Conditions{Weather: models.WeatherSnow, Temperature: 20, WindSpeed: 20}.Factors()

	count := func(ctx PlayContext) int {
		rng := NewRand(31)
		n := 0
		for i := 0; i < 5000; i++ {
			if m.Sample(models.PlayPass, ctx, rng).Result == models.ResultComplete {
				n++
			}
		}
		return n
	}
	assert.Less(t, count(snowCtx), count(clearCtx))
}

func TestOutcomeModel_KneelNeverSafety(t *testing.T) {
	m := leagueModel(t)
	rng := NewRand(1)
	assert.Equal(t, 0, m.Sample(models.PlayKneel, averageContext(1, 1, 10), rng).Yards)

	o := m.Sample(models.PlayKneel, averageContext(30, 1, 10), rng)
	assert.Equal(t, models.ResultKneel, o.Result)
	assert.Equal(t, -1, o.Yards)
}

func TestOutcomeModel_Punt(t *testing.T) {
	m := leagueModel(t)
	rng := NewRand(4)

	for i := 0; i < 500; i++ {
		o := m.Sample(models.PlayPunt, averageContext(90, 4, 10), rng)
		assert.Equal(t, models.ResultTouchback, o.Result)
	}
	for i := 0; i < 500; i++ {
		o := m.Sample(models.PlayPunt, averageContext(20, 4, 10), rng)
		require.Equal(t, models.ResultPunt, o.Result)
		spot := 20 + o.Yards
		assert.Less(t, spot, 100)
		assert.GreaterOrEqual(t, o.ReturnYards, 0)
		assert.Less(t, o.ReturnYards, spot)
		assert.Equal(t, o.Yards, o.KickDistance)
	}
}

func TestOutcomeModel_FieldGoalDistanceDecay(t *testing.T) {
	m := leagueModel(t)
	made := func(own int) int {
		rng := NewRand(9)
		n := 0
		for i := 0; i < 5000; i++ {
			o := m.Sample(models.PlayFieldGoal, averageContext(own, 4, 5), rng)
			assert.Equal(t, FieldGoalDistance(own), o.KickDistance)
			if o.Result == models.ResultFieldGoalGood {
				n++
			}
		}
		return n
	}
	short, long := made(90), made(62)
	assert.Greater(t, short, long)
	assert.InDelta(t, 0.97, float64(short)/5000, 0.02)
}

func TestOutcomeModel_ExtraPointDefault(t *testing.T) {
	table := provider.LeagueOutcomes()
	delete(table, models.PlayExtraPoint)
	m, err := NewOutcomeModel(table, DefaultSettings())
	require.NoError(t, err)

	rng := NewRand(12)
	good := 0
	for i := 0; i < 10000; i++ {
		if m.Sample(models.PlayExtraPoint, averageContext(98, 1, 2), rng).Result == models.ResultExtraPointGood {
			good++
		}
	}
	assert.InDelta(t, defaultExtraPointRate, float64(good)/10000, 0.015)
}

func TestOutcomeModel_Deterministic(t *testing.T) {
	m := leagueModel(t)
	ctx := averageContext(35, 2, 6)
	draw := func() []Outcome {
		rng := NewRand(77)
		out := make([]Outcome, 200)
		for i := range out {
			play := models.PlayRun
			if i%2 == 1 {
				play = models.PlayPass
			}
			out[i] = m.Sample(play, ctx, rng)
		}
		return out
	}
	assert.Equal(t, draw(), draw())
}

// ratedContext sets every offensive and defensive rating on the two rosters
func ratedContext(offense, defense float64) PlayContext {
	ctx := averageContext(50, 1, 10)
	for _, side := range []struct {
		chart  *models.DepthChart
		rating float64
	}{{ctx.Offense, offense}, {ctx.Defense, defense}} {
		side.chart.Offense = side.rating
		side.chart.Defense = side.rating
		side.chart.SpecialTeams = side.rating
		for role, p := range side.chart.Roles {
			p.Rating = side.rating
			side.chart.Roles[role] = p
		}
	}
	return ctx
}

func TestOutcomeModel_PenaltiesFollowRatings(t *testing.T) {
	m := leagueModel(t)
	const n = 40000

	tally := func(play models.PlayType, ctx PlayContext) (flags, onDefense int) {
		rng := NewRand(23)
		for i := 0; i < n; i++ {
			o := m.Sample(play, ctx, rng)
			if !o.Penalty {
				continue
			}
			flags++
			if o.PenaltyOnDefense {
				onDefense++
			}
		}
		return flags, onDefense
	}

	for _, play := range []models.PlayType{models.PlayRun, models.PlayPass} {
		t.Run(play.String(), func(t *testing.T) {
			strongFlags, strongDefense := tally(play, ratedContext(100, 0))
			weakFlags, weakDefense := tally(play, ratedContext(0, 100))

			// edge is +/-0.25, so the rates are 0.75x and 1.25x the base
			assert.Less(t, float64(strongFlags)*1.4, float64(weakFlags))
			require.NotZero(t, strongFlags)
			require.NotZero(t, weakFlags)
			assert.InDelta(t, 0.75, float64(strongDefense)/float64(strongFlags), 0.05)
			assert.InDelta(t, 0.25, float64(weakDefense)/float64(weakFlags), 0.05)
		})
	}
}

func TestPenaltyRate(t *testing.T) {
	assert.InDelta(t, 0.04, penaltyRate(0.04, 0), 1e-9)
	assert.InDelta(t, 0.03, penaltyRate(0.04, 0.25), 1e-9)
	assert.InDelta(t, 0.05, penaltyRate(0.04, -0.25), 1e-9)
	assert.Zero(t, penaltyRate(0, 0.25))
}
