package fantasy

import (
	"sort"

	"github.com/stitts-dev/gridiron-sim/internal/stats"
)

// SkillPositions are the positions projections are produced for
var SkillPositions = map[string]bool{"QB": true, "RB": true, "WR": true, "TE": true}

// Projection is a player's fantasy outlook across a batch of games
type Projection struct {
	PlayerID    string        `json:"player_id"`
	Name        string        `json:"name"`
	TeamID      string        `json:"team_id"`
	Position    string        `json:"position"`
	Games       int           `json:"games"`
	Mean        float64       `json:"mean"`
	StdDev      float64       `json:"std_dev"`
	Consistency float64       `json:"consistency"`
	Points      stats.Summary `json:"points"`
}

// Project scores every skill-position player in every game and summarizes the
// results, highest mean first.
func Project(games []stats.GameSnapshot, system ScoringSystem, percentiles []float64) ([]Projection, error) {
	rules, err := RulesFor(system)
	if err != nil {
		return nil, err
	}

	type samples struct {
		info   stats.PlayerGameStats
		points []float64
	}
	byPlayer := make(map[string]*samples)
	for _, g := range games {
		for _, p := range g.Players {
			if !SkillPositions[p.Position] {
				continue
			}
			s, ok := byPlayer[p.PlayerID]
			if !ok {
				s = &samples{info: p}
				byPlayer[p.PlayerID] = s
			}
			s.points = append(s.points, rules.Points(p.Stats))
		}
	}

	out := make([]Projection, 0, len(byPlayer))
	for id, s := range byPlayer {
		summary := stats.Summarize(s.points, percentiles)
		out = append(out, Projection{
			PlayerID:    id,
			Name:        s.info.Name,
			TeamID:      s.info.TeamID,
			Position:    s.info.Position,
			Games:       summary.Count,
			Mean:        summary.Mean,
			StdDev:      summary.StdDev,
			Consistency: Consistency(summary),
			Points:      summary,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mean != out[j].Mean {
			return out[i].Mean > out[j].Mean
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out, nil
}

// Consistency is 1 - sd/mean, with a non-positive mean treated as 1. A single
// game has no spread to judge and scores 0.
func Consistency(s stats.Summary) float64 {
	if s.Count < 2 {
		return 0
	}
	mean := s.Mean
	if mean <= 0 {
		mean = 1
	}
	return 1 - s.StdDev/mean
}
