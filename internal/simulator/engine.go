package simulator

import (
	"fmt"
	"math/rand"

	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/internal/stats"
)

const (
	touchdownPoints = 6
	fieldGoalPoints = 3
	safetyPoints    = 2
	extraPointValue = 1
)

// Engine holds everything trials share: settings, the play caller and the outcome
// sampler. None of it is mutated by a game, so one Engine serves many goroutines.
type Engine struct {
	settings Settings
	caller   PlayCaller
	sampler  OutcomeSampler
}

// NewEngine validates the settings and wires the caller and sampler
func NewEngine(settings Settings, caller PlayCaller, sampler OutcomeSampler) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if caller == nil {
		return nil, models.NewConfigError("play_caller", "play caller is required")
	}
	if sampler == nil {
		return nil, models.NewConfigError("outcome_sampler", "outcome sampler is required")
	}
	return &Engine{settings: settings, caller: caller, sampler: sampler}, nil
}

// NewDefaultEngine builds an Engine from tendency and outcome tables using the
// stock Selector and OutcomeModel.
func NewDefaultEngine(settings Settings, league *models.TeamTendencies, outcomes models.OutcomeTable) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	selector, err := NewSelector(settings, league)
	if err != nil {
		return nil, err
	}
	model, err := NewOutcomeModel(outcomes, settings)
	if err != nil {
		return nil, err
	}
	return NewEngine(settings, selector, model)
}

// Settings returns the engine configuration
func (e *Engine) Settings() Settings {
	return e.settings
}

// Game is one simulated game. It owns its state, statistics and RNG stream and
// must only be driven from one goroutine.
type Game struct {
	engine     *Engine
	state      *models.GameState
	charts     [2]*models.DepthChart
	tendencies [2]*models.TeamTendencies
	factors    models.ConditionFactors
	acc        *stats.GameAccumulator
	rng        *rand.Rand
}

// NewGame validates both rosters, resolves depth charts once and returns a game
// in the PreGame phase.
func (e *Engine) NewGame(home, away *models.Team, conditions models.Conditions, rng *rand.Rand) (*Game, error) {
	if err := home.Validate(); err != nil {
		return nil, err
	}
	if err := away.Validate(); err != nil {
		return nil, err
	}
	if home.ID == away.ID {
		return nil, models.NewConfigError("matchup", "team %s cannot play itself", home.ID)
	}
	if rng == nil {
		return nil, models.NewConfigError("rng", "a random source is required")
	}

	homeChart := models.ResolveDepthChart(home)
	awayChart := models.ResolveDepthChart(away)
	return &Game{
		engine:     e,
		state:      models.NewGameState(home.ID, away.ID, conditions),
		charts:     [2]*models.DepthChart{homeChart, awayChart},
		tendencies: [2]*models.TeamTendencies{home.Tendencies, away.Tendencies},
		factors:    conditions.Factors(),
		acc:        stats.NewGameAccumulator(homeChart, awayChart),
		rng:        rng,
	}, nil
}

// Simulate plays a full game from a seed
func (e *Engine) Simulate(home, away *models.Team, conditions models.Conditions, seed int64) (*Game, error) {
	g, err := e.NewGame(home, away, conditions, NewRand(seed))
	if err != nil {
		return nil, err
	}
	if err := g.Run(); err != nil {
		return g, err
	}
	return g, nil
}

// State exposes the game state. Callers must treat it as read-only.
func (g *Game) State() *models.GameState {
	return g.state
}

// Events returns the play log
func (g *Game) Events() []models.PlayEvent {
	return g.state.Plays
}

// Run steps the game until it is final
func (g *Game) Run() error {
	for g.state.Phase != models.PhaseFinal {
		if _, err := g.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns the statistics of a finished game
func (g *Game) Snapshot() (stats.GameSnapshot, error) {
	if g.state.Phase != models.PhaseFinal {
		return stats.GameSnapshot{}, models.NewStateError("snapshot", "game is %s, not final", g.state.Phase)
	}
	return g.acc.Snapshot(g.state), nil
}

// Step runs exactly one play and returns the events it appended: the play
// itself plus an untimed extra point after a touchdown. Kickoffs and the
// halftime and overtime boundaries are applied implicitly.
func (g *Game) Step() ([]models.PlayEvent, error) {
	st := g.state
	set := g.engine.settings

	switch st.Phase {
	case models.PhaseFinal:
		return nil, models.NewStateError("step", "game is final")
	case models.PhasePreGame:
		g.startGame()
	case models.PhaseHalftime:
		g.startSecondHalf()
	}
	if len(st.Plays) >= set.MaxPlays {
		return nil, models.NewStateError("step", "game exceeded %d plays", set.MaxPlays)
	}

	first := len(st.Plays)
	offense := st.Possession
	sit := st.Situation(set.QuarterLength)

	play := g.engine.caller.Call(sit, g.tendencies[offense], g.rng)
	if !play.Valid() || play == models.PlayExtraPoint {
		return nil, models.NewStateError("step", "play caller returned %s", play)
	}
	outcome := g.engine.sampler.Sample(play, g.playContext(sit, offense), g.rng)

	if err := g.apply(play, outcome); err != nil {
		return nil, err
	}
	if err := st.CheckInvariants(); err != nil {
		return nil, err
	}
	g.advancePeriod()
	return st.Plays[first:], nil
}

func (g *Game) playContext(sit models.Situation, offense models.Side) PlayContext {
	return PlayContext{
		Situation: sit,
		Offense:   g.charts[offense],
		Defense:   g.charts[offense.Other()],
		Factors:   g.factors,
	}
}

func (g *Game) startGame() {
	st := g.state
	receiver := models.Side(g.rng.Intn(2))
	st.OpeningReceiver = receiver
	st.Phase = models.PhaseInProgress
	st.Quarter = 1
	st.Clock = g.engine.settings.QuarterLength
	g.setPossession(receiver, g.engine.settings.KickoffSpot)
}

func (g *Game) startSecondHalf() {
	st := g.state
	st.Phase = models.PhaseInProgress
	st.Quarter = 3
	st.Clock = g.engine.settings.QuarterLength
	g.setPossession(st.OpeningReceiver.Other(), g.engine.settings.KickoffSpot)
}

func (g *Game) startOvertime() {
	st := g.state
	st.Phase = models.PhaseOvertime
	st.Quarter = models.OvertimeQuarter
	st.Clock = g.engine.settings.OvertimeLength
	st.OvertimeDrives = [2]int{}
	g.setPossession(models.Side(g.rng.Intn(2)), g.engine.settings.KickoffSpot)
}

// setPossession gives a side the ball, first and ten (or goal) at its own yard line
func (g *Game) setPossession(side models.Side, own int) {
	st := g.state
	st.Possession = side
	st.SetOwnYardLine(clampInt(own, 1, 99))
	g.firstDown()
}

// endDrive hands the ball to the other side and counts the drive in overtime
func (g *Game) endDrive(own int) {
	st := g.state
	if st.IsOvertime() {
		st.OvertimeDrives[st.Possession]++
	}
	g.setPossession(st.Possession.Other(), own)
}

func (g *Game) firstDown() {
	st := g.state
	st.Down = 1
	st.ToGo = min(10, st.YardsToEndZone())
}

func (g *Game) newEvent(play models.PlayType, o Outcome) models.PlayEvent {
	st := g.state
	return models.PlayEvent{
		Sequence:    len(st.Plays) + 1,
		Quarter:     st.Quarter,
		Clock:       st.Clock,
		PlayType:    play,
		Result:      o.Result,
		Offense:     st.OffenseID(),
		Defense:     st.DefenseID(),
		Down:        st.Down,
		ToGo:        st.ToGo,
		YardLine:    st.YardLine,
		OwnYardLine: st.OwnYardLine(),
		Yards:       o.Yards,
	}
}

func (g *Game) record(ev models.PlayEvent, o Outcome, offense models.Side) {
	credit(&ev, o, g.charts[offense], g.charts[offense.Other()])
	g.state.Plays = append(g.state.Plays, ev)
	g.acc.Record(ev)
}

func (g *Game) runClock(ev *models.PlayEvent, key string) {
	runoff := min(g.engine.settings.Clock[key], g.state.Clock)
	ev.Runoff = runoff
	g.state.Clock -= runoff
}

// apply resolves an outcome against the state. The play's event is recorded
// before any follow-up extra point so the log reads in game order.
func (g *Game) apply(play models.PlayType, o Outcome) error {
	st := g.state
	set := g.engine.settings
	offense := st.Possession
	defense := offense.Other()
	own := st.OwnYardLine()
	ev := g.newEvent(play, o)

	if o.Penalty {
		ev.Penalty = true
		ev.PenaltyOnDefense = o.PenaltyOnDefense
		ev.PenaltyYards = o.PenaltyYards
		g.runClock(&ev, ClockPenalty)
		newOwn := clampInt(own+o.Yards, 1, 99)
		ev.Yards = newOwn - own
		st.SetOwnYardLine(newOwn)
		if o.PenaltyOnDefense && ev.Yards >= st.ToGo {
			ev.FirstDown = true
			g.firstDown()
		} else {
			st.ToGo = max(1, st.ToGo-ev.Yards)
			st.ToGo = min(st.ToGo, st.YardsToEndZone())
		}
		g.record(ev, o, offense)
		return nil
	}

	switch o.Result {
	case models.ResultRush, models.ResultComplete, models.ResultIncomplete,
		models.ResultSack, models.ResultKneel:
		g.applyScrimmage(&ev, o, offense, own)

	case models.ResultInterception, models.ResultFumbleLost:
		ev.Turnover = true
		spot := own + o.Yards
		if spot >= 100 {
			// intercepted in the end zone
			g.runClock(&ev, ClockTurnover)
			g.record(ev, o, offense)
			g.endDrive(set.TouchbackSpot)
			return nil
		}
		spot = clampInt(spot, 1, 99)
		ev.Yards = spot - own
		if o.ReturnYards >= spot {
			ev.DefensiveTouchdown = true
			ev.Points = touchdownPoints
			ev.ScoringTeam = st.TeamID(defense)
			g.runClock(&ev, ClockScore)
			st.AddScore(defense, touchdownPoints)
			g.record(ev, o, offense)
			g.afterTouchdown(defense, true)
			return nil
		}
		g.runClock(&ev, ClockTurnover)
		g.record(ev, o, offense)
		g.endDrive(100 - spot + o.ReturnYards)

	case models.ResultPunt, models.ResultTouchback:
		g.runClock(&ev, ClockPunt)
		g.record(ev, o, offense)
		if o.Result == models.ResultTouchback || own+o.Yards >= 100 {
			g.endDrive(set.TouchbackSpot)
			return nil
		}
		spot := own + o.Yards
		g.endDrive(100 - spot + o.ReturnYards)

	case models.ResultFieldGoalGood:
		ev.Points = fieldGoalPoints
		ev.ScoringTeam = st.TeamID(offense)
		g.runClock(&ev, ClockScore)
		st.AddScore(offense, fieldGoalPoints)
		g.record(ev, o, offense)
		if g.overtimeDecided(false, false) {
			g.finish()
			return nil
		}
		g.endDrive(set.KickoffSpot)

	case models.ResultFieldGoalMiss:
		g.runClock(&ev, ClockFieldGoal)
		g.record(ev, o, offense)
		g.endDrive(max(set.MissedFieldGoalSpot, 100-(own-7)))

	default:
		return models.NewStateError("apply", "unexpected result %q for %s", o.Result, play)
	}

	if st.Phase != models.PhaseFinal && g.overtimeDecided(false, false) {
		g.finish()
	}
	return nil
}

// applyScrimmage handles plays where the offense keeps the ball unless it scores,
// is tackled for a safety or fails on fourth down.
func (g *Game) applyScrimmage(ev *models.PlayEvent, o Outcome, offense models.Side, own int) {
	st := g.state
	set := g.engine.settings
	defense := offense.Other()
	newOwn := own + o.Yards

	switch {
	case newOwn >= 100:
		ev.Yards = 100 - own
		ev.Touchdown = true
		ev.Points = touchdownPoints
		ev.ScoringTeam = st.TeamID(offense)
		g.runClock(ev, ClockScore)
		st.AddScore(offense, touchdownPoints)
		g.record(*ev, o, offense)
		g.afterTouchdown(offense, false)
		return

	case newOwn <= 0:
		ev.Yards = -own
		ev.Safety = true
		ev.Points = safetyPoints
		ev.ScoringTeam = st.TeamID(defense)
		g.runClock(ev, ClockScore)
		st.AddScore(defense, safetyPoints)
		g.record(*ev, o, offense)
		if g.overtimeDecided(true, false) {
			g.finish()
			return
		}
		g.endDrive(set.FreeKickSpot)
		return
	}

	g.runClock(ev, scrimmageClockKey(o.Result))
	st.SetOwnYardLine(newOwn)
	switch {
	case o.Yards >= st.ToGo:
		ev.FirstDown = true
		g.record(*ev, o, offense)
		g.firstDown()
	case st.Down == 4:
		ev.TurnoverOnDowns = true
		g.record(*ev, o, offense)
		g.endDrive(100 - newOwn)
	default:
		g.record(*ev, o, offense)
		st.Down++
		st.ToGo -= o.Yards
	}
}

func scrimmageClockKey(result models.PlayResult) string {
	switch result {
	case models.ResultComplete:
		return ClockPassComplete
	case models.ResultIncomplete:
		return ClockPassIncomplete
	case models.ResultSack:
		return ClockSack
	case models.ResultKneel:
		return ClockKneel
	default:
		return ClockRun
	}
}

// afterTouchdown ends an overtime game if the score decides it, otherwise kicks
// the untimed extra point and kicks off to the other side.
func (g *Game) afterTouchdown(scorer models.Side, defensive bool) {
	st := g.state
	if g.overtimeDecided(defensive, !defensive) {
		g.finish()
		return
	}

	if st.IsOvertime() && st.Possession != scorer {
		st.OvertimeDrives[st.Possession]++
	}
	st.Possession = scorer
	st.SetOwnYardLine(98)
	st.Down, st.ToGo = 1, 2

	sit := st.Situation(g.engine.settings.QuarterLength)
	o := g.engine.sampler.Sample(models.PlayExtraPoint, g.playContext(sit, scorer), g.rng)
	if o.Result != models.ResultExtraPointGood {
		o.Result = models.ResultExtraPointMiss
	}
	ev := g.newEvent(models.PlayExtraPoint, o)
	ev.Yards = 0
	if o.Result == models.ResultExtraPointGood {
		ev.Points = extraPointValue
		ev.ScoringTeam = st.TeamID(scorer)
		st.AddScore(scorer, extraPointValue)
	}
	g.runClock(&ev, ClockExtraPoint)
	g.record(ev, o, scorer)

	if defensive {
		// the defense never had a drive; the team that lost the ball receives
		g.setPossession(scorer.Other(), g.engine.settings.KickoffSpot)
		return
	}
	g.endDrive(g.engine.settings.KickoffSpot)
}

// overtimeDecided applies the overtime rule after a score or change of possession
func (g *Game) overtimeDecided(defensiveScore, offensiveTouchdown bool) bool {
	st := g.state
	if !st.IsOvertime() || st.HomeScore == st.AwayScore {
		return false
	}
	switch g.engine.settings.OvertimeRule {
	case OvertimeSuddenDeath:
		return true
	case OvertimeModified:
		if defensiveScore {
			return true
		}
		if offensiveTouchdown && st.OvertimeDrives == [2]int{} {
			return true
		}
		leader, _ := st.Winner()
		return st.OvertimeDrives[leader.Other()] >= 1
	}
	return true
}

// advancePeriod applies quarter, half and game boundaries once the clock is out
func (g *Game) advancePeriod() {
	st := g.state
	if st.Phase == models.PhaseFinal || st.Clock > 0 {
		return
	}
	switch {
	case st.Quarter == 1 || st.Quarter == 3:
		st.Quarter++
		st.Clock = g.engine.settings.QuarterLength
	case st.Quarter == 2:
		st.Phase = models.PhaseHalftime
	case st.Quarter == models.RegulationQuarters:
		if st.HomeScore == st.AwayScore && g.engine.settings.OvertimeRule != OvertimeNone {
			g.startOvertime()
			return
		}
		g.finish()
	default:
		g.finish()
	}
}

func (g *Game) finish() {
	g.state.Phase = models.PhaseFinal
}

// String renders the scoreboard, mostly for logs and test failures
func (g *Game) String() string {
	st := g.state
	return fmt.Sprintf("%s %d - %s %d (%s Q%d %d:%02d)",
		st.HomeID, st.HomeScore, st.AwayID, st.AwayScore, st.Phase, st.Quarter, st.Clock/60, st.Clock%60)
}
