package models

import "fmt"

// Phase is the lifecycle stage of a game
type Phase int

const (
	PhasePreGame Phase = iota
	PhaseInProgress
	PhaseHalftime
	PhaseOvertime
	PhaseFinal
)

var phaseNames = map[Phase]string{
	PhasePreGame:    "pregame",
	PhaseInProgress: "in_progress",
	PhaseHalftime:   "halftime",
	PhaseOvertime:   "overtime",
	PhaseFinal:      "final",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Live reports whether plays can be run in this phase
func (p Phase) Live() bool {
	return p == PhaseInProgress || p == PhaseOvertime
}

// Side identifies the home or away team
type Side int

const (
	Home Side = iota
	Away
)

func (s Side) String() string {
	if s == Home {
		return "home"
	}
	return "away"
}

// Other returns the opposing side
func (s Side) Other() Side {
	if s == Home {
		return Away
	}
	return Home
}

const (
	RegulationQuarters = 4
	OvertimeQuarter    = 5
)

// GameState is the authoritative state of one game. YardLine is absolute:
// 0 is the home goal line, 100 the away goal line, and home drives toward 100.
type GameState struct {
	Phase      Phase       `json:"phase"`
	Quarter    int         `json:"quarter"`
	Clock      int         `json:"clock"`
	HomeID     string      `json:"home_id"`
	AwayID     string      `json:"away_id"`
	Possession Side        `json:"possession"`
	Down       int         `json:"down"`
	ToGo       int         `json:"to_go"`
	YardLine   int         `json:"yard_line"`
	HomeScore  int         `json:"home_score"`
	AwayScore  int         `json:"away_score"`
	Conditions Conditions  `json:"conditions"`
	Plays      []PlayEvent `json:"plays"`

	// Receiver of the opening kickoff; the other side receives after halftime
	OpeningReceiver Side `json:"opening_receiver"`

	// Drives completed in overtime, per side
	OvertimeDrives [2]int `json:"overtime_drives"`
}

// NewGameState builds the pre-game state for a matchup
func NewGameState(homeID, awayID string, conditions Conditions) *GameState {
	return &GameState{
		Phase:      PhasePreGame,
		Quarter:    1,
		HomeID:     homeID,
		AwayID:     awayID,
		Down:       1,
		ToGo:       10,
		YardLine:   50,
		Conditions: conditions,
	}
}

// TeamID returns the team id for a side
func (g *GameState) TeamID(s Side) string {
	if s == Home {
		return g.HomeID
	}
	return g.AwayID
}

// OffenseID is the team with the ball
func (g *GameState) OffenseID() string {
	return g.TeamID(g.Possession)
}

// DefenseID is the team without the ball
func (g *GameState) DefenseID() string {
	return g.TeamID(g.Possession.Other())
}

// Score returns a side's points
func (g *GameState) Score(s Side) int {
	if s == Home {
		return g.HomeScore
	}
	return g.AwayScore
}

// AddScore credits points to a side
func (g *GameState) AddScore(s Side, points int) {
	if s == Home {
		g.HomeScore += points
	} else {
		g.AwayScore += points
	}
}

// ScoreDiff is the offense's score minus the defense's
func (g *GameState) ScoreDiff() int {
	return g.Score(g.Possession) - g.Score(g.Possession.Other())
}

// OwnYardLine is the offense's distance from its own goal line
func (g *GameState) OwnYardLine() int {
	if g.Possession == Home {
		return g.YardLine
	}
	return 100 - g.YardLine
}

// SetOwnYardLine places the ball at a yard line in the offense's view, clamped to [0,100]
func (g *GameState) SetOwnYardLine(own int) {
	own = ClampYardLine(own)
	if g.Possession == Home {
		g.YardLine = own
	} else {
		g.YardLine = 100 - own
	}
}

// YardsToEndZone is the offense's distance to the opponent's goal line
func (g *GameState) YardsToEndZone() int {
	return 100 - g.OwnYardLine()
}

// IsOvertime reports whether the game is in its overtime period
func (g *GameState) IsOvertime() bool {
	return g.Quarter >= OvertimeQuarter
}

// Winner returns the winning side, or false for a tie
func (g *GameState) Winner() (Side, bool) {
	switch {
	case g.HomeScore > g.AwayScore:
		return Home, true
	case g.AwayScore > g.HomeScore:
		return Away, true
	default:
		return Home, false
	}
}

// Situation returns the read-only context for the play caller and sampler.
// quarterLength is the regulation period length in seconds.
func (g *GameState) Situation(quarterLength int) Situation {
	left := g.Clock
	if g.Quarter < RegulationQuarters {
		left += (RegulationQuarters - g.Quarter) * quarterLength
	}
	return Situation{
		Quarter:         g.Quarter,
		Clock:           g.Clock,
		Down:            g.Down,
		ToGo:            g.ToGo,
		OwnYardLine:     g.OwnYardLine(),
		ScoreDiff:       g.ScoreDiff(),
		Overtime:        g.IsOvertime(),
		GameSecondsLeft: left,
	}
}

// CheckInvariants verifies the field state after a transition
func (g *GameState) CheckInvariants() error {
	if g.YardLine < 0 || g.YardLine > 100 {
		return NewStateError("invariant", "yard line %d outside [0,100]", g.YardLine)
	}
	if g.Down < 1 || g.Down > 4 {
		return NewStateError("invariant", "down %d outside [1,4]", g.Down)
	}
	if g.Clock < 0 {
		return NewStateError("invariant", "clock %d is negative", g.Clock)
	}
	if g.ToGo < 1 {
		return NewStateError("invariant", "yards to go %d is not positive", g.ToGo)
	}
	if g.Phase.Live() && g.ToGo > g.YardsToEndZone() {
		return NewStateError("invariant", "yards to go %d beyond goal line %d away", g.ToGo, g.YardsToEndZone())
	}
	return nil
}

// ClampYardLine keeps a yard line inside the field
func ClampYardLine(y int) int {
	if y < 0 {
		return 0
	}
	if y > 100 {
		return 100
	}
	return y
}
