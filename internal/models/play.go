package models

import (
	"fmt"
	"strings"
)

// PlayType is the closed set of plays the engine can run
type PlayType int

const (
	PlayRun PlayType = iota
	PlayPass
	PlayPunt
	PlayFieldGoal
	PlayKneel
	PlayExtraPoint
)

// AllPlayTypes lists every play type in sampling order. Weighted draws walk
// this slice, never a map, so a seed always yields the same call.
var AllPlayTypes = []PlayType{PlayRun, PlayPass, PlayPunt, PlayFieldGoal, PlayKneel, PlayExtraPoint}

var playTypeNames = map[PlayType]string{
	PlayRun:        "run",
	PlayPass:       "pass",
	PlayPunt:       "punt",
	PlayFieldGoal:  "field_goal",
	PlayKneel:      "kneel",
	PlayExtraPoint: "extra_point",
}

func (p PlayType) String() string {
	if name, ok := playTypeNames[p]; ok {
		return name
	}
	return fmt.Sprintf("play_type(%d)", int(p))
}

// Valid reports whether p is one of the declared play types
func (p PlayType) Valid() bool {
	_, ok := playTypeNames[p]
	return ok
}

// IsScrimmage reports whether the play is a run or a pass
func (p PlayType) IsScrimmage() bool {
	return p == PlayRun || p == PlayPass
}

// ParsePlayType converts a play type name into a PlayType
func ParsePlayType(s string) (PlayType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for p, n := range playTypeNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown play type %q", s)
}

func (p PlayType) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid play type %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *PlayType) UnmarshalText(text []byte) error {
	parsed, err := ParsePlayType(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// PlayResult describes how a play ended
type PlayResult string

const (
	ResultRush           PlayResult = "rush"
	ResultComplete       PlayResult = "complete"
	ResultIncomplete     PlayResult = "incomplete"
	ResultSack           PlayResult = "sack"
	ResultInterception   PlayResult = "interception"
	ResultFumbleLost     PlayResult = "fumble_lost"
	ResultPunt           PlayResult = "punt"
	ResultTouchback      PlayResult = "touchback"
	ResultFieldGoalGood  PlayResult = "field_goal_good"
	ResultFieldGoalMiss  PlayResult = "field_goal_missed"
	ResultKneel          PlayResult = "kneel"
	ResultExtraPointGood PlayResult = "extra_point_good"
	ResultExtraPointMiss PlayResult = "extra_point_missed"
	ResultPenalty        PlayResult = "penalty"
)
