package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/internal/simulator"
	"github.com/stitts-dev/gridiron-sim/internal/stats"
	"github.com/stitts-dev/gridiron-sim/pkg/logger"
)

// SeasonConfig controls a season run. When Schedule is empty a balanced one of
// Weeks weeks is generated.
type SeasonConfig struct {
	RunID            string               `json:"run_id,omitempty"`
	Weeks            int                  `json:"weeks"`
	Schedule         []Matchup            `json:"schedule,omitempty"`
	Workers          int                  `json:"workers"`
	BaseSeed         int64                `json:"base_seed"`
	SeedPolicy       simulator.SeedPolicy `json:"seed_policy"`
	RandomConditions bool                 `json:"random_conditions"`
	Conditions       *models.Conditions   `json:"conditions,omitempty"`
}

// SeasonGame is the final score of one scheduled game
type SeasonGame struct {
	Game       int               `json:"game"`
	Week       int               `json:"week"`
	HomeID     string            `json:"home_id"`
	AwayID     string            `json:"away_id"`
	HomeScore  int               `json:"home_score"`
	AwayScore  int               `json:"away_score"`
	Overtime   bool              `json:"overtime"`
	Seed       int64             `json:"seed"`
	Conditions models.Conditions `json:"conditions"`
}

// Standing is one row of the season table
type Standing struct {
	TeamID    string              `json:"team_id"`
	Name      string              `json:"name"`
	Played    int                 `json:"played"`
	Wins      int                 `json:"wins"`
	Losses    int                 `json:"losses"`
	Ties      int                 `json:"ties"`
	WinPct    float64             `json:"win_pct"`
	PointDiff int                 `json:"point_diff"`
	Totals    models.TeamStatLine `json:"totals"`
}

// PlayerSeason is a player's season-long stat line
type PlayerSeason struct {
	PlayerID string          `json:"player_id"`
	Name     string          `json:"name"`
	TeamID   string          `json:"team_id"`
	Position string          `json:"position"`
	Games    int             `json:"games"`
	Stats    models.StatLine `json:"stats"`
}

// SeasonResult is the outcome of a season run
type SeasonResult struct {
	RunID     string         `json:"run_id"`
	Mode      Mode           `json:"mode"`
	BaseSeed  int64          `json:"base_seed"`
	Schedule  []Matchup      `json:"schedule"`
	Games     []SeasonGame   `json:"games"`
	Failures  []TrialFailure `json:"failures,omitempty"`
	Standings []Standing     `json:"standings"`
	Players   []PlayerSeason `json:"players"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`

	// Snapshots are the completed games in schedule order
	Snapshots []stats.GameSnapshot `json:"-"`
}

// Standing returns a team's row of the table
func (r *SeasonResult) Standing(teamID string) (Standing, bool) {
	for _, s := range r.Standings {
		if s.TeamID == teamID {
			return s, true
		}
	}
	return Standing{}, false
}

func indexTeams(teams []*models.Team) (map[string]*models.Team, error) {
	if len(teams) < 2 {
		return nil, models.NewConfigError("teams", "a season needs at least 2 teams, got %d", len(teams))
	}
	byID := make(map[string]*models.Team, len(teams))
	for _, t := range teams {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[t.ID]; dup {
			return nil, models.NewConfigError("teams", "duplicate team %s", t.ID)
		}
		byID[t.ID] = t
	}
	return byID, nil
}

// RunSeason plays every game of a schedule and builds the standings table.
// Games are independent trials: game i uses DeriveSeed(base, i), so the result
// does not depend on the worker count. Standings are ordered by win percentage;
// equal percentages keep the order the teams were passed in.
func (r *Runner) RunSeason(ctx context.Context, teams []*models.Team, cfg SeasonConfig, progress chan<- Progress) (*SeasonResult, error) {
	byID, err := indexTeams(teams)
	if err != nil {
		return nil, err
	}
	schedule := cfg.Schedule
	if len(schedule) == 0 {
		ids := make([]string, len(teams))
		for i, t := range teams {
			ids[i] = t.ID
		}
		if schedule, err = GenerateSchedule(ids, cfg.Weeks); err != nil {
			return nil, err
		}
	}
	for i, m := range schedule {
		if byID[m.HomeID] == nil || byID[m.AwayID] == nil {
			return nil, models.NewConfigError(fmt.Sprintf("schedule[%d]", i), "unknown team in %s at %s", m.AwayID, m.HomeID)
		}
		if m.HomeID == m.AwayID {
			return nil, models.NewConfigError(fmt.Sprintf("schedule[%d]", i), "team %s cannot play itself", m.HomeID)
		}
	}
	switch cfg.SeedPolicy {
	case "", simulator.SeedFixed, simulator.SeedRandom:
	default:
		return nil, models.NewConfigError("seed_policy", "unknown seed policy %q", cfg.SeedPolicy)
	}

	result := &SeasonResult{
		RunID:     runID(cfg.RunID),
		Mode:      ModeSeason,
		BaseSeed:  simulator.ResolveBaseSeed(cfg.SeedPolicy, cfg.BaseSeed),
		Schedule:  schedule,
		StartedAt: time.Now(),
	}
	log := r.log.WithFields(logger.RunFields(result.RunID, string(ModeSeason))).WithFields(logrus.Fields{
		"teams":     len(teams),
		"games":     len(schedule),
		"base_seed": result.BaseSeed,
	})
	log.Info("Starting season")

	type played struct {
		game SeasonGame
		snap stats.GameSnapshot
		err  error
	}
	slots := make([]played, len(schedule))
	reporter := newProgressReporter(result.RunID, len(schedule), result.StartedAt, progress)
	workers := Config{Workers: cfg.Workers}.workers(len(schedule))

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	g.Go(func() error {
		defer close(jobs)
		for i := range schedule {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				m := schedule[i]
				seed := simulator.DeriveSeed(result.BaseSeed, i)
				game, snap, err := r.playScheduled(byID[m.HomeID], byID[m.AwayID], m, cfg, i, seed)
				if err != nil {
					if errors.Is(err, models.ErrInvalidConfiguration) {
						return err
					}
					logger.WithTrialContext(result.RunID, i, seed).WithError(err).Warn("Season game failed")
					slots[i] = played{game: game, err: err}
					reporter.fail()
					continue
				}
				slots[i] = played{game: game, snap: snap}
				reporter.complete()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			log.WithField("completed", reporter.done()).Warn("Season cancelled")
			return nil, ctx.Err()
		}
		log.WithError(err).Error("Season aborted")
		return nil, err
	}

	table := newStandingsTable(teams)
	players := newPlayerSeasons()
	for i, p := range slots {
		if p.err != nil {
			result.Failures = append(result.Failures, TrialFailure{Trial: i, Seed: p.game.Seed, Error: p.err.Error()})
			continue
		}
		result.Games = append(result.Games, p.game)
		result.Snapshots = append(result.Snapshots, p.snap)
		table.record(p.snap)
		players.record(p.snap)
	}
	result.Standings = table.rows()
	result.Players = players.lines()
	result.Duration = time.Since(result.StartedAt)

	log.WithFields(logrus.Fields{
		"completed": len(result.Games),
		"failed":    len(result.Failures),
		"duration":  result.Duration.String(),
	}).Info("Season complete")
	return result, nil
}

func (r *Runner) playScheduled(home, away *models.Team, m Matchup, cfg SeasonConfig, index int, seed int64) (SeasonGame, stats.GameSnapshot, error) {
	rng := simulator.NewRand(seed)
	conditions := models.DefaultConditions()
	switch {
	case cfg.RandomConditions:
		conditions = models.RandomConditions(rng)
	case cfg.Conditions != nil:
		conditions = *cfg.Conditions
	}
	conditions.Week = m.Week

	game := SeasonGame{Game: index, Week: m.Week, HomeID: m.HomeID, AwayID: m.AwayID, Seed: seed, Conditions: conditions}
	g, err := r.engine.NewGame(home, away, conditions, rng)
	if err != nil {
		return game, stats.GameSnapshot{}, err
	}
	if err := g.Run(); err != nil {
		return game, stats.GameSnapshot{}, err
	}
	snap, err := g.Snapshot()
	if err != nil {
		return game, stats.GameSnapshot{}, err
	}
	snap.Trial = index
	snap.Seed = seed
	game.HomeScore = snap.HomeScore
	game.AwayScore = snap.AwayScore
	game.Overtime = snap.Overtime
	return game, snap, nil
}

type standingsTable struct {
	order []string
	rowBy map[string]*Standing
}

func newStandingsTable(teams []*models.Team) *standingsTable {
	t := &standingsTable{rowBy: make(map[string]*Standing, len(teams))}
	for _, team := range teams {
		t.order = append(t.order, team.ID)
		t.rowBy[team.ID] = &Standing{TeamID: team.ID, Name: team.Name}
	}
	return t
}

func (t *standingsTable) record(s stats.GameSnapshot) {
	winner := s.Winner()
	for _, id := range []string{s.HomeID, s.AwayID} {
		row := t.rowBy[id]
		row.Played++
		switch winner {
		case "":
			row.Ties++
		case id:
			row.Wins++
		default:
			row.Losses++
		}
		if line, ok := s.Team(id); ok {
			row.Totals.Add(line.Stats)
		}
	}
}

func (t *standingsTable) rows() []Standing {
	out := make([]Standing, 0, len(t.order))
	for _, id := range t.order {
		row := *t.rowBy[id]
		row.WinPct = stats.WinPct(row.Wins, row.Losses, row.Ties)
		row.PointDiff = row.Totals.Points - row.Totals.PointsAllowed
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].WinPct > out[j].WinPct })
	return out
}

type playerSeasons struct {
	order []string
	byID  map[string]*PlayerSeason
}

func newPlayerSeasons() *playerSeasons {
	return &playerSeasons{byID: make(map[string]*PlayerSeason)}
}

func (p *playerSeasons) record(s stats.GameSnapshot) {
	for _, line := range s.Players {
		ps, ok := p.byID[line.PlayerID]
		if !ok {
			ps = &PlayerSeason{PlayerID: line.PlayerID, Name: line.Name, TeamID: line.TeamID, Position: line.Position}
			p.byID[line.PlayerID] = ps
			p.order = append(p.order, line.PlayerID)
		}
		ps.Games++
		ps.Stats.Add(line.Stats)
	}
}

func (p *playerSeasons) lines() []PlayerSeason {
	out := make([]PlayerSeason, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, *p.byID[id])
	}
	return out
}
