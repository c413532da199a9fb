package simulator

import (
	"math/rand"

	"github.com/stitts-dev/gridiron-sim/internal/models"
)

// PlayCaller chooses the next play for the offense
type PlayCaller interface {
	Call(sit models.Situation, team *models.TeamTendencies, rng *rand.Rand) models.PlayType
}

// Selector is the default PlayCaller: threshold overrides first, then a draw
// from the tendency tables. It holds no mutable state and is shared by all trials.
type Selector struct {
	settings Settings
	league   *models.TeamTendencies
}

// NewSelector creates a selector backed by the league tendency table, which must
// carry a default mix with run or pass.
func NewSelector(settings Settings, league *models.TeamTendencies) (*Selector, error) {
	if err := league.ValidateLeague("league_tendencies"); err != nil {
		return nil, err
	}
	return &Selector{settings: settings, league: league}, nil
}

// Call returns the play type for the situation
func (s *Selector) Call(sit models.Situation, team *models.TeamTendencies, rng *rand.Rand) models.PlayType {
	if play, ok := s.Override(sit); ok {
		return play
	}
	if sit.Down == 4 {
		return s.sampleScrimmage(sit, team, rng)
	}

	play := s.sample(sit, team, rng)
	if play == models.PlayFieldGoal && !s.settings.FieldGoalInRange(sit.OwnYardLine) {
		return s.sampleScrimmage(sit, team, rng)
	}
	return play
}

// Override applies the threshold rules. The same situation always yields the
// same answer; ok is false when the play should be sampled. On fourth down a
// go-for-it decision is reported as not ok so the caller samples run or pass.
func (s *Selector) Override(sit models.Situation) (models.PlayType, bool) {
	set := s.settings
	late := sit.Quarter >= models.RegulationQuarters

	if late && sit.ScoreDiff > 0 && sit.GameSecondsLeft <= set.KneelSeconds &&
		sit.GameSecondsLeft <= set.Clock[ClockKneel]*(5-sit.Down) {
		return models.PlayKneel, true
	}

	if sit.ScoreDiff < 0 && s.inTwoMinuteWindow(sit) {
		deficit := -sit.ScoreDiff
		kickEnough := deficit <= 3 || sit.Quarter == 2
		if kickEnough && set.FieldGoalInRange(sit.OwnYardLine) &&
			(sit.Down == 4 || sit.Clock <= set.FieldGoalClockSeconds) {
			return models.PlayFieldGoal, true
		}
		return models.PlayPass, true
	}

	if sit.Down == 4 {
		if s.goForIt(sit) {
			return 0, false
		}
		if set.FieldGoalInRange(sit.OwnYardLine) {
			return models.PlayFieldGoal, true
		}
		return models.PlayPunt, true
	}

	if late && sit.ScoreDiff >= set.GarbageTimeLead && sit.GameSecondsLeft <= set.GarbageTimeSeconds {
		return models.PlayRun, true
	}
	return 0, false
}

func (s *Selector) inTwoMinuteWindow(sit models.Situation) bool {
	if sit.Quarter != 2 && sit.Quarter < models.RegulationQuarters {
		return false
	}
	return sit.Clock <= s.settings.TwoMinuteSeconds
}

func (s *Selector) goForIt(sit models.Situation) bool {
	if sit.Quarter >= models.RegulationQuarters && sit.ScoreDiff < -3 {
		return true
	}
	p := s.settings.ConversionCurve.Likelihood(sit.ToGo)
	return p >= s.settings.FourthDownThreshold && sit.OwnYardLine >= s.settings.GoForItMinYardLine
}

// sample draws from team bucket, team default, league bucket, league default
func (s *Selector) sample(sit models.Situation, team *models.TeamTendencies, rng *rand.Rand) models.PlayType {
	key := sit.Key()
	if mix, ok := team.Lookup(key); ok {
		if play, ok := mix.Sample(rng); ok {
			return play
		}
	}
	mix, _ := s.league.Lookup(key)
	if play, ok := mix.Sample(rng); ok {
		return play
	}
	return models.PlayRun
}

// sampleScrimmage is sample restricted to run and pass
func (s *Selector) sampleScrimmage(sit models.Situation, team *models.TeamTendencies, rng *rand.Rand) models.PlayType {
	key := sit.Key()
	if mix, ok := team.Lookup(key); ok {
		if play, ok := mix.Restrict(models.PlayRun, models.PlayPass).Sample(rng); ok {
			return play
		}
	}
	if mix, ok := s.league.Lookup(key); ok {
		if play, ok := mix.Restrict(models.PlayRun, models.PlayPass).Sample(rng); ok {
			return play
		}
	}
	if play, ok := s.league.Default.Restrict(models.PlayRun, models.PlayPass).Sample(rng); ok {
		return play
	}
	return models.PlayPass
}
