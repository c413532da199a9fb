package batch

import (
	"strings"

	"github.com/stitts-dev/gridiron-sim/internal/models"
)

// Matchup is one scheduled game
type Matchup struct {
	Week   int    `json:"week" yaml:"week"`
	HomeID string `json:"home_id" yaml:"home_id"`
	AwayID string `json:"away_id" yaml:"away_id"`
}

// GenerateSchedule builds a balanced schedule of the given number of weeks with
// the circle method. Every team plays once a week (an odd field gives one team a
// bye each week), each pair meets once per cycle, and home and away swap on
// every repeat cycle.
func GenerateSchedule(teamIDs []string, weeks int) ([]Matchup, error) {
	if len(teamIDs) < 2 {
		return nil, models.NewConfigError("schedule", "need at least 2 teams, got %d", len(teamIDs))
	}
	if weeks <= 0 {
		return nil, models.NewConfigError("schedule.weeks", "must be positive, got %d", weeks)
	}
	seen := make(map[string]bool, len(teamIDs))
	for _, id := range teamIDs {
		if strings.TrimSpace(id) == "" {
			return nil, models.NewConfigError("schedule", "team id is required")
		}
		if seen[id] {
			return nil, models.NewConfigError("schedule", "duplicate team %s", id)
		}
		seen[id] = true
	}

	ring := make([]string, len(teamIDs))
	copy(ring, teamIDs)
	if len(ring)%2 == 1 {
		ring = append(ring, "") // bye
	}
	n := len(ring)
	perCycle := n - 1

	var schedule []Matchup
	for week := 0; week < weeks; week++ {
		round := week % perCycle
		flip := (week/perCycle)%2 == 1

		for i := 0; i < n/2; i++ {
			a, b := ring[i], ring[n-1-i]
			if a == "" || b == "" {
				continue
			}
			// the fixed slot alternates so nobody is home every week
			if (i == 0 && round%2 == 1) || (i > 0 && i%2 == 1) {
				a, b = b, a
			}
			if flip {
				a, b = b, a
			}
			schedule = append(schedule, Matchup{Week: week + 1, HomeID: a, AwayID: b})
		}

		// rotate everything but the first slot one place clockwise
		last := ring[n-1]
		copy(ring[2:], ring[1:n-1])
		ring[1] = last
	}
	return schedule, nil
}
