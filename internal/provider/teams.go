package provider

import (
	"fmt"
	"math/rand"

	"github.com/stitts-dev/gridiron-sim/internal/models"
)

// roster template for generated teams: position and how many to carry
var defaultRoster = []struct {
	Position string
	Count    int
}{
	{"QB", 1}, {"RB", 1}, {"WR", 3}, {"TE", 1},
	{"DL", 3}, {"LB", 3}, {"CB", 3}, {"S", 1},
	{"K", 1}, {"P", 1},
}

// DefaultTeams generates n demo teams with random ratings drawn from rng.
// Team ids are team_1..team_n.
func DefaultTeams(n int, rng *rand.Rand) ([]*models.Team, error) {
	if n < 2 {
		return nil, models.NewConfigError("teams", "need at least 2 teams, got %d", n)
	}
	if rng == nil {
		return nil, models.NewConfigError("rng", "random source is required")
	}

	teams := make([]*models.Team, 0, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("team_%d", i)
		special := float64(40 + rng.Intn(41))
		team := &models.Team{
			ID:           id,
			Name:         fmt.Sprintf("Team %d", i),
			Abbreviation: fmt.Sprintf("T%d", i),
			Ratings:      models.TeamRatings{SpecialTeams: &special},
		}
		for _, slot := range defaultRoster {
			for j := 1; j <= slot.Count; j++ {
				rating := float64(50 + rng.Intn(31))
				pid := fmt.Sprintf("%s_%s_%d", id, slot.Position, j)
				team.Players = append(team.Players, models.Player{
					ID:       pid,
					Name:     "Player " + pid,
					Position: slot.Position,
					Rating:   &rating,
				})
			}
		}
		teams = append(teams, team)
	}
	return teams, nil
}
