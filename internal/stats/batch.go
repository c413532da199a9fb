package stats

import (
	"sort"

	"github.com/stitts-dev/gridiron-sim/internal/models"
)

// TeamSummary aggregates one team across a batch
type TeamSummary struct {
	TeamID string             `json:"team_id"`
	Games  int                `json:"games"`
	Wins   int                `json:"wins"`
	Losses int                `json:"losses"`
	Ties   int                `json:"ties"`
	WinPct float64            `json:"win_pct"`
	Stats  map[string]Summary `json:"stats"`
}

// PlayerSummary aggregates one player across a batch
type PlayerSummary struct {
	PlayerID    string             `json:"player_id"`
	Name        string             `json:"name"`
	TeamID      string             `json:"team_id"`
	Position    string             `json:"position"`
	Replacement bool               `json:"replacement,omitempty"`
	Games       int                `json:"games"`
	Stats       map[string]Summary `json:"stats"`
}

// BatchSummary is the cross-game summary of a batch
type BatchSummary struct {
	Games   int             `json:"games"`
	Teams   []TeamSummary   `json:"teams"`
	Players []PlayerSummary `json:"players"`
}

// BatchAccumulator collects game snapshots. Add and Merge only append, and every
// reduction sorts its inputs, so the fold is commutative and associative.
type BatchAccumulator struct {
	snapshots []GameSnapshot
}

func NewBatchAccumulator() *BatchAccumulator {
	return &BatchAccumulator{}
}

// Add folds in one game
func (b *BatchAccumulator) Add(s GameSnapshot) {
	b.snapshots = append(b.snapshots, s)
}

// Merge folds in everything another accumulator has collected
func (b *BatchAccumulator) Merge(other *BatchAccumulator) {
	if other == nil {
		return
	}
	b.snapshots = append(b.snapshots, other.snapshots...)
}

// Len is the number of games collected
func (b *BatchAccumulator) Len() int {
	return len(b.snapshots)
}

// Snapshots returns the collected games ordered by trial index
func (b *BatchAccumulator) Snapshots() []GameSnapshot {
	out := make([]GameSnapshot, len(b.snapshots))
	copy(out, b.snapshots)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Trial < out[j].Trial })
	return out
}

type teamSamples struct {
	games, wins, losses, ties int
	values                    map[string][]float64
}

type playerSamples struct {
	info   PlayerGameStats
	values map[string][]float64
}

// Summarize reduces the collected games into per-team and per-player summaries
func (b *BatchAccumulator) Summarize(percentiles []float64) BatchSummary {
	teams := make(map[string]*teamSamples)
	players := make(map[string]*playerSamples)

	for _, snap := range b.snapshots {
		winner := snap.Winner()
		for _, t := range snap.Teams {
			ts, ok := teams[t.TeamID]
			if !ok {
				ts = &teamSamples{values: make(map[string][]float64)}
				teams[t.TeamID] = ts
			}
			ts.games++
			switch winner {
			case "":
				ts.ties++
			case t.TeamID:
				ts.wins++
			default:
				ts.losses++
			}
			for name, v := range t.Stats.Values() {
				ts.values[name] = append(ts.values[name], v)
			}
		}
		for _, p := range snap.Players {
			ps, ok := players[p.PlayerID]
			if !ok {
				ps = &playerSamples{info: p, values: make(map[string][]float64)}
				players[p.PlayerID] = ps
			}
			for name, v := range p.Stats.Values() {
				ps.values[name] = append(ps.values[name], v)
			}
		}
	}

	summary := BatchSummary{Games: len(b.snapshots)}
	for id, ts := range teams {
		team := TeamSummary{
			TeamID: id,
			Games:  ts.games,
			Wins:   ts.wins,
			Losses: ts.losses,
			Ties:   ts.ties,
			WinPct: WinPct(ts.wins, ts.losses, ts.ties),
			Stats:  make(map[string]Summary, len(models.TeamStatNames)),
		}
		for _, name := range models.TeamStatNames {
			team.Stats[name] = Summarize(ts.values[name], percentiles)
		}
		summary.Teams = append(summary.Teams, team)
	}
	sort.Slice(summary.Teams, func(i, j int) bool { return summary.Teams[i].TeamID < summary.Teams[j].TeamID })

	for id, ps := range players {
		player := PlayerSummary{
			PlayerID:    id,
			Name:        ps.info.Name,
			TeamID:      ps.info.TeamID,
			Position:    ps.info.Position,
			Replacement: ps.info.Replacement,
			Games:       len(ps.values[models.StatNames[0]]),
			Stats:       make(map[string]Summary, len(models.StatNames)),
		}
		for _, name := range models.StatNames {
			player.Stats[name] = Summarize(ps.values[name], percentiles)
		}
		summary.Players = append(summary.Players, player)
	}
	sort.Slice(summary.Players, func(i, j int) bool {
		a, b := summary.Players[i], summary.Players[j]
		if a.TeamID != b.TeamID {
			return a.TeamID < b.TeamID
		}
		return a.PlayerID < b.PlayerID
	})
	return summary
}

// WinPct counts a tie as half a win
func WinPct(wins, losses, ties int) float64 {
	games := wins + losses + ties
	if games == 0 {
		return 0
	}
	return (float64(wins) + 0.5*float64(ties)) / float64(games)
}

// Player finds a player's summary
func (s BatchSummary) Player(playerID string) (PlayerSummary, bool) {
	for _, p := range s.Players {
		if p.PlayerID == playerID {
			return p, true
		}
	}
	return PlayerSummary{}, false
}

// Team finds a team's summary
func (s BatchSummary) Team(teamID string) (TeamSummary, bool) {
	for _, t := range s.Teams {
		if t.TeamID == teamID {
			return t, true
		}
	}
	return TeamSummary{}, false
}
