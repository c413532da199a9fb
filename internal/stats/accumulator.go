package stats

import (
	"github.com/stitts-dev/gridiron-sim/internal/models"
)

// PlayerGameStats is one player's line for one game
type PlayerGameStats struct {
	PlayerID    string          `json:"player_id"`
	Name        string          `json:"name"`
	TeamID      string          `json:"team_id"`
	Position    string          `json:"position"`
	Replacement bool            `json:"replacement,omitempty"`
	Stats       models.StatLine `json:"stats"`
}

// TeamGameStats is one team's line for one game
type TeamGameStats struct {
	TeamID string              `json:"team_id"`
	Stats  models.TeamStatLine `json:"stats"`
}

// GameSnapshot is the immutable statistics record of one completed game
type GameSnapshot struct {
	Trial     int               `json:"trial"`
	Seed      int64             `json:"seed"`
	HomeID    string            `json:"home_id"`
	AwayID    string            `json:"away_id"`
	HomeScore int               `json:"home_score"`
	AwayScore int               `json:"away_score"`
	Overtime  bool              `json:"overtime"`
	Plays     int               `json:"plays"`
	Players   []PlayerGameStats `json:"players"`
	Teams     []TeamGameStats   `json:"teams"`
}

// Winner returns the winning team id, or "" for a tie
func (s GameSnapshot) Winner() string {
	switch {
	case s.HomeScore > s.AwayScore:
		return s.HomeID
	case s.AwayScore > s.HomeScore:
		return s.AwayID
	}
	return ""
}

// Team returns a team's line from the snapshot
func (s GameSnapshot) Team(teamID string) (TeamGameStats, bool) {
	for _, t := range s.Teams {
		if t.TeamID == teamID {
			return t, true
		}
	}
	return TeamGameStats{}, false
}

// GameAccumulator folds play events into running per-player and per-team lines.
// It belongs to exactly one game.
type GameAccumulator struct {
	homeID, awayID string
	players        map[string]*PlayerGameStats
	order          []string
	teams          map[string]*models.TeamStatLine
	plays          int
}

// NewGameAccumulator registers every resolved player so that players without a
// touch still appear with a zero line.
func NewGameAccumulator(home, away *models.DepthChart) *GameAccumulator {
	a := &GameAccumulator{
		homeID:  home.TeamID,
		awayID:  away.TeamID,
		players: make(map[string]*PlayerGameStats),
		teams: map[string]*models.TeamStatLine{
			home.TeamID: {},
			away.TeamID: {},
		},
	}
	for _, chart := range []*models.DepthChart{home, away} {
		for _, p := range chart.PlayerList() {
			a.register(chart.TeamID, p)
		}
	}
	return a
}

func (a *GameAccumulator) register(teamID string, p models.ResolvedPlayer) {
	if _, ok := a.players[p.ID]; ok {
		return
	}
	a.players[p.ID] = &PlayerGameStats{
		PlayerID:    p.ID,
		Name:        p.Name,
		TeamID:      teamID,
		Position:    p.Position,
		Replacement: p.Replacement,
	}
	a.order = append(a.order, p.ID)
}

// Record applies one play's attributed deltas
func (a *GameAccumulator) Record(ev models.PlayEvent) {
	a.plays++
	for _, p := range ev.Participants {
		line, ok := a.players[p.PlayerID]
		if !ok {
			a.register(p.TeamID, models.ResolvedPlayer{ID: p.PlayerID, Position: string(p.Role)})
			line = a.players[p.PlayerID]
		}
		line.Stats.Add(p.Stats)
	}

	off, def := a.team(ev.Offense), a.team(ev.Defense)
	off.TimeOfPossession += ev.Runoff

	if ev.Penalty {
		flagged := off
		if ev.PenaltyOnDefense {
			flagged = def
		}
		flagged.Penalties++
		flagged.PenaltyYards += ev.PenaltyYards
		return
	}

	switch ev.Result {
	case models.ResultRush, models.ResultKneel:
		off.Plays++
		off.RushYards += ev.Yards
		off.TotalYards += ev.Yards
	case models.ResultFumbleLost:
		off.Plays++
		off.RushYards += ev.Yards
		off.TotalYards += ev.Yards
		off.Turnovers++
	case models.ResultComplete, models.ResultSack:
		off.Plays++
		off.PassYards += ev.Yards
		off.TotalYards += ev.Yards
		if ev.Result == models.ResultSack {
			def.Sacks++
		}
	case models.ResultIncomplete:
		off.Plays++
	case models.ResultInterception:
		off.Plays++
		off.Turnovers++
	}
	if ev.FirstDown {
		off.FirstDowns++
	}
}

func (a *GameAccumulator) team(id string) *models.TeamStatLine {
	t, ok := a.teams[id]
	if !ok {
		t = &models.TeamStatLine{}
		a.teams[id] = t
	}
	return t
}

// Snapshot copies the running totals into an immutable record of the finished game
func (a *GameAccumulator) Snapshot(state *models.GameState) GameSnapshot {
	snap := GameSnapshot{
		HomeID:    state.HomeID,
		AwayID:    state.AwayID,
		HomeScore: state.HomeScore,
		AwayScore: state.AwayScore,
		Overtime:  state.Quarter >= models.OvertimeQuarter,
		Plays:     a.plays,
		Players:   make([]PlayerGameStats, 0, len(a.order)),
	}
	for _, id := range a.order {
		snap.Players = append(snap.Players, *a.players[id])
	}

	for _, side := range []struct {
		id            string
		pointsFor     int
		pointsAgainst int
	}{
		{a.homeID, state.HomeScore, state.AwayScore},
		{a.awayID, state.AwayScore, state.HomeScore},
	} {
		line := *a.team(side.id)
		line.Points = side.pointsFor
		line.PointsAllowed = side.pointsAgainst
		snap.Teams = append(snap.Teams, TeamGameStats{TeamID: side.id, Stats: line})
	}
	return snap
}
