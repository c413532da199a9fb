package models

// Participant credits one player's stat delta on a play
type Participant struct {
	PlayerID string   `json:"player_id"`
	TeamID   string   `json:"team_id"`
	Role     Role     `json:"role"`
	Stats    StatLine `json:"stats"`
}

// PlayEvent is one completed play. Down, distance and field position describe
// the ball before the snap. Events are appended to a game's log and never modified.
type PlayEvent struct {
	Sequence    int        `json:"sequence"`
	Quarter     int        `json:"quarter"`
	Clock       int        `json:"clock"`
	PlayType    PlayType   `json:"play_type"`
	Result      PlayResult `json:"result"`
	Offense     string     `json:"offense"`
	Defense     string     `json:"defense"`
	Down        int        `json:"down"`
	ToGo        int        `json:"to_go"`
	YardLine    int        `json:"yard_line"`     // absolute
	OwnYardLine int        `json:"own_yard_line"` // offense's view
	Yards       int        `json:"yards"`
	Runoff      int        `json:"runoff"`

	Turnover           bool `json:"turnover,omitempty"`
	TurnoverOnDowns    bool `json:"turnover_on_downs,omitempty"`
	Touchdown          bool `json:"touchdown,omitempty"`
	DefensiveTouchdown bool `json:"defensive_touchdown,omitempty"`
	Safety             bool `json:"safety,omitempty"`
	FirstDown          bool `json:"first_down,omitempty"`
	Penalty            bool `json:"penalty,omitempty"`
	PenaltyOnDefense   bool `json:"penalty_on_defense,omitempty"`
	PenaltyYards       int  `json:"penalty_yards,omitempty"`

	Points       int           `json:"points,omitempty"`
	ScoringTeam  string        `json:"scoring_team,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
}

// ScoringPlay reports whether any points were scored on the play
func (e PlayEvent) ScoringPlay() bool {
	return e.Points > 0
}
