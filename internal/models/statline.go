package models

// StatLine is a player's box-score line. The same type carries a single play's
// delta and a game's running total.
type StatLine struct {
	PassAttempts   int `json:"pass_attempts"`
	Completions    int `json:"completions"`
	PassYards      int `json:"pass_yards"`
	PassTDs        int `json:"pass_tds"`
	Interceptions  int `json:"interceptions"`
	TimesSacked    int `json:"times_sacked"`
	SackYardsLost  int `json:"sack_yards_lost"`
	RushAttempts   int `json:"rush_attempts"`
	RushYards      int `json:"rush_yards"`
	RushTDs        int `json:"rush_tds"`
	Fumbles        int `json:"fumbles"`
	FumblesLost    int `json:"fumbles_lost"`
	Targets        int `json:"targets"`
	Receptions     int `json:"receptions"`
	ReceivingYards int `json:"receiving_yards"`
	ReceivingTDs   int `json:"receiving_tds"`

	Tackles          int `json:"tackles"`
	Sacks            int `json:"sacks"`
	DefInterceptions int `json:"def_interceptions"`
	ForcedFumbles    int `json:"forced_fumbles"`
	FumbleRecoveries int `json:"fumble_recoveries"`
	DefensiveTDs     int `json:"defensive_tds"`

	FieldGoalAttempts  int `json:"field_goal_attempts"`
	FieldGoalsMade     int `json:"field_goals_made"`
	ExtraPointAttempts int `json:"extra_point_attempts"`
	ExtraPointsMade    int `json:"extra_points_made"`
	Punts              int `json:"punts"`
	PuntYards          int `json:"punt_yards"`
}

// Add folds another line into this one
func (s *StatLine) Add(o StatLine) {
	s.PassAttempts += o.PassAttempts
	s.Completions += o.Completions
	s.PassYards += o.PassYards
	s.PassTDs += o.PassTDs
	s.Interceptions += o.Interceptions
	s.TimesSacked += o.TimesSacked
	s.SackYardsLost += o.SackYardsLost
	s.RushAttempts += o.RushAttempts
	s.RushYards += o.RushYards
	s.RushTDs += o.RushTDs
	s.Fumbles += o.Fumbles
	s.FumblesLost += o.FumblesLost
	s.Targets += o.Targets
	s.Receptions += o.Receptions
	s.ReceivingYards += o.ReceivingYards
	s.ReceivingTDs += o.ReceivingTDs
	s.Tackles += o.Tackles
	s.Sacks += o.Sacks
	s.DefInterceptions += o.DefInterceptions
	s.ForcedFumbles += o.ForcedFumbles
	s.FumbleRecoveries += o.FumbleRecoveries
	s.DefensiveTDs += o.DefensiveTDs
	s.FieldGoalAttempts += o.FieldGoalAttempts
	s.FieldGoalsMade += o.FieldGoalsMade
	s.ExtraPointAttempts += o.ExtraPointAttempts
	s.ExtraPointsMade += o.ExtraPointsMade
	s.Punts += o.Punts
	s.PuntYards += o.PuntYards
}

// StatNames lists the summarized player stats in a stable order
var StatNames = []string{
	"pass_attempts", "completions", "pass_yards", "pass_tds", "interceptions", "times_sacked",
	"rush_attempts", "rush_yards", "rush_tds", "fumbles_lost",
	"targets", "receptions", "receiving_yards", "receiving_tds",
	"tackles", "sacks", "def_interceptions", "forced_fumbles", "fumble_recoveries", "defensive_tds",
	"field_goal_attempts", "field_goals_made", "extra_point_attempts", "extra_points_made",
	"punts", "punt_yards",
}

// Values maps each of StatNames to its value
func (s StatLine) Values() map[string]float64 {
	return map[string]float64{
		"pass_attempts":        float64(s.PassAttempts),
		"completions":          float64(s.Completions),
		"pass_yards":           float64(s.PassYards),
		"pass_tds":             float64(s.PassTDs),
		"interceptions":        float64(s.Interceptions),
		"times_sacked":         float64(s.TimesSacked),
		"rush_attempts":        float64(s.RushAttempts),
		"rush_yards":           float64(s.RushYards),
		"rush_tds":             float64(s.RushTDs),
		"fumbles_lost":         float64(s.FumblesLost),
		"targets":              float64(s.Targets),
		"receptions":           float64(s.Receptions),
		"receiving_yards":      float64(s.ReceivingYards),
		"receiving_tds":        float64(s.ReceivingTDs),
		"tackles":              float64(s.Tackles),
		"sacks":                float64(s.Sacks),
		"def_interceptions":    float64(s.DefInterceptions),
		"forced_fumbles":       float64(s.ForcedFumbles),
		"fumble_recoveries":    float64(s.FumbleRecoveries),
		"defensive_tds":        float64(s.DefensiveTDs),
		"field_goal_attempts":  float64(s.FieldGoalAttempts),
		"field_goals_made":     float64(s.FieldGoalsMade),
		"extra_point_attempts": float64(s.ExtraPointAttempts),
		"extra_points_made":    float64(s.ExtraPointsMade),
		"punts":                float64(s.Punts),
		"punt_yards":           float64(s.PuntYards),
	}
}

// TeamStatLine is a team's box-score line for one game
type TeamStatLine struct {
	Points           int `json:"points"`
	PointsAllowed    int `json:"points_allowed"`
	Plays            int `json:"plays"`
	TotalYards       int `json:"total_yards"`
	PassYards        int `json:"pass_yards"`
	RushYards        int `json:"rush_yards"`
	FirstDowns       int `json:"first_downs"`
	Turnovers        int `json:"turnovers"`
	Penalties        int `json:"penalties"`
	PenaltyYards     int `json:"penalty_yards"`
	Sacks            int `json:"sacks"`
	TimeOfPossession int `json:"time_of_possession"` // seconds
}

// Add folds another team line into this one
func (t *TeamStatLine) Add(o TeamStatLine) {
	t.Points += o.Points
	t.PointsAllowed += o.PointsAllowed
	t.Plays += o.Plays
	t.TotalYards += o.TotalYards
	t.PassYards += o.PassYards
	t.RushYards += o.RushYards
	t.FirstDowns += o.FirstDowns
	t.Turnovers += o.Turnovers
	t.Penalties += o.Penalties
	t.PenaltyYards += o.PenaltyYards
	t.Sacks += o.Sacks
	t.TimeOfPossession += o.TimeOfPossession
}

// TeamStatNames lists the summarized team stats in a stable order
var TeamStatNames = []string{
	"points", "points_allowed", "plays", "total_yards", "pass_yards", "rush_yards",
	"first_downs", "turnovers", "penalties", "penalty_yards", "sacks", "time_of_possession",
}

// Values maps each of TeamStatNames to its value
func (t TeamStatLine) Values() map[string]float64 {
	return map[string]float64{
		"points":             float64(t.Points),
		"points_allowed":     float64(t.PointsAllowed),
		"plays":              float64(t.Plays),
		"total_yards":        float64(t.TotalYards),
		"pass_yards":         float64(t.PassYards),
		"rush_yards":         float64(t.RushYards),
		"first_downs":        float64(t.FirstDowns),
		"turnovers":          float64(t.Turnovers),
		"penalties":          float64(t.Penalties),
		"penalty_yards":      float64(t.PenaltyYards),
		"sacks":              float64(t.Sacks),
		"time_of_possession": float64(t.TimeOfPossession),
	}
}
