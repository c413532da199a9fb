package models

import (
	"fmt"
	"sort"
	"strings"
)

// LeagueAverageRating is used for any player or team rating that is not supplied
const LeagueAverageRating = 50.0

// TeamRatings are optional team-level skill values on a 0-100 scale
type TeamRatings struct {
	Offense      *float64 `json:"offense,omitempty" yaml:"offense,omitempty"`
	Defense      *float64 `json:"defense,omitempty" yaml:"defense,omitempty"`
	SpecialTeams *float64 `json:"special_teams,omitempty" yaml:"special_teams,omitempty"`
}

// Player is a roster entry. A nil rating means league average.
type Player struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Position string   `json:"position" yaml:"position"`
	Rating   *float64 `json:"rating,omitempty" yaml:"rating,omitempty"`
}

// RatingOrDefault resolves the optional rating
func (p Player) RatingOrDefault() float64 {
	if p.Rating == nil {
		return LeagueAverageRating
	}
	return *p.Rating
}

// Team is the read-only roster model handed to the engine
type Team struct {
	ID           string          `json:"id" yaml:"id"`
	Name         string          `json:"name" yaml:"name"`
	Abbreviation string          `json:"abbreviation" yaml:"abbreviation"`
	Ratings      TeamRatings     `json:"ratings" yaml:"ratings"`
	Players      []Player        `json:"players" yaml:"players"`
	Tendencies   *TeamTendencies `json:"tendencies,omitempty" yaml:"-"`
}

// Validate checks the fields a trial needs before it can be set up
func (t *Team) Validate() error {
	if t == nil {
		return NewConfigError("team", "team is missing")
	}
	if strings.TrimSpace(t.ID) == "" {
		return NewConfigError("team.id", "team id is required")
	}
	field := fmt.Sprintf("teams[%s]", t.ID)
	for name, r := range map[string]*float64{
		"offense":       t.Ratings.Offense,
		"defense":       t.Ratings.Defense,
		"special_teams": t.Ratings.SpecialTeams,
	} {
		if r != nil && (*r < 0 || *r > 100) {
			return NewConfigError(field+".ratings."+name, "rating %.1f outside [0,100]", *r)
		}
	}
	seen := make(map[string]bool, len(t.Players))
	for i, p := range t.Players {
		if strings.TrimSpace(p.ID) == "" {
			return NewConfigError(fmt.Sprintf("%s.players[%d].id", field, i), "player id is required")
		}
		if seen[p.ID] {
			return NewConfigError(field+".players", "duplicate player id %s", p.ID)
		}
		seen[p.ID] = true
		if p.Rating != nil && (*p.Rating < 0 || *p.Rating > 100) {
			return NewConfigError(field+".players."+p.ID, "rating %.1f outside [0,100]", *p.Rating)
		}
	}
	if t.Tendencies != nil {
		if err := t.Tendencies.Validate(field + ".tendencies"); err != nil {
			return err
		}
	}
	return nil
}

// Role is a depth chart slot the engine credits stats to
type Role string

const (
	RoleQB  Role = "QB"
	RoleRB  Role = "RB"
	RoleWR1 Role = "WR1"
	RoleWR2 Role = "WR2"
	RoleTE  Role = "TE"
	RoleK   Role = "K"
	RoleP   Role = "P"
	RoleDL  Role = "DL"
	RoleLB  Role = "LB"
	RoleCB  Role = "CB"
	RoleS   Role = "S"
)

// AllRoles lists depth chart slots in resolution order
var AllRoles = []Role{RoleQB, RoleRB, RoleWR1, RoleWR2, RoleTE, RoleK, RoleP, RoleDL, RoleLB, RoleCB, RoleS}

func (r Role) position() string {
	switch r {
	case RoleWR1, RoleWR2:
		return "WR"
	default:
		return string(r)
	}
}

// ResolvedPlayer is a roster slot with its rating settled
type ResolvedPlayer struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Position    string  `json:"position"`
	Rating      float64 `json:"rating"`
	Replacement bool    `json:"replacement"`
}

// DepthChart is the per-trial view of a team with every optional value resolved
type DepthChart struct {
	TeamID       string
	Roles        map[Role]ResolvedPlayer
	Offense      float64
	Defense      float64
	SpecialTeams float64
}

// ResolveDepthChart fills every role with the best rated player at that position
// or a league-average replacement, and settles the team ratings.
func ResolveDepthChart(t *Team) *DepthChart {
	byPosition := make(map[string][]Player)
	for _, p := range t.Players {
		pos := strings.ToUpper(strings.TrimSpace(p.Position))
		byPosition[pos] = append(byPosition[pos], p)
	}
	for pos := range byPosition {
		players := byPosition[pos]
		sort.SliceStable(players, func(i, j int) bool {
			ri, rj := players[i].RatingOrDefault(), players[j].RatingOrDefault()
			if ri != rj {
				return ri > rj
			}
			return players[i].ID < players[j].ID
		})
	}

	chart := &DepthChart{TeamID: t.ID, Roles: make(map[Role]ResolvedPlayer, len(AllRoles))}
	taken := make(map[string]int)
	for _, role := range AllRoles {
		pos := role.position()
		candidates := byPosition[pos]
		idx := taken[pos]
		if idx < len(candidates) {
			p := candidates[idx]
			chart.Roles[role] = ResolvedPlayer{ID: p.ID, Name: p.Name, Position: pos, Rating: p.RatingOrDefault()}
			taken[pos] = idx + 1
			continue
		}
		id := fmt.Sprintf("%s_%s_repl", t.ID, role)
		chart.Roles[role] = ResolvedPlayer{
			ID:          id,
			Name:        fmt.Sprintf("%s replacement %s", t.ID, role),
			Position:    pos,
			Rating:      LeagueAverageRating,
			Replacement: true,
		}
	}

	r := chart.Roles
	chart.Offense = resolveRating(t.Ratings.Offense,
		0.35*r[RoleQB].Rating+0.25*r[RoleRB].Rating+0.15*r[RoleWR1].Rating+0.1*r[RoleWR2].Rating+0.15*r[RoleTE].Rating)
	chart.Defense = resolveRating(t.Ratings.Defense,
		(r[RoleDL].Rating+r[RoleLB].Rating+r[RoleCB].Rating+r[RoleS].Rating)/4)
	chart.SpecialTeams = resolveRating(t.Ratings.SpecialTeams, (r[RoleK].Rating+r[RoleP].Rating)/2)
	return chart
}

func resolveRating(explicit *float64, derived float64) float64 {
	if explicit != nil {
		return *explicit
	}
	return derived
}

// Player returns the resolved player for a role
func (d *DepthChart) Player(role Role) ResolvedPlayer {
	return d.Roles[role]
}

// RushOffense blends the team offense with the ball carrier
func (d *DepthChart) RushOffense() float64 {
	return 0.6*d.Offense + 0.4*d.Roles[RoleRB].Rating
}

// PassOffense blends the team offense with the passer and a target
func (d *DepthChart) PassOffense(target Role) float64 {
	return 0.5*d.Offense + 0.3*d.Roles[RoleQB].Rating + 0.2*d.Roles[target].Rating
}

// RushDefense blends the team defense with the front seven
func (d *DepthChart) RushDefense() float64 {
	return 0.5*d.Defense + 0.25*d.Roles[RoleDL].Rating + 0.25*d.Roles[RoleLB].Rating
}

// PassDefense blends the team defense with the secondary
func (d *DepthChart) PassDefense() float64 {
	return 0.5*d.Defense + 0.25*d.Roles[RoleCB].Rating + 0.25*d.Roles[RoleS].Rating
}

// Kicking blends special teams with the specialist for the play
func (d *DepthChart) Kicking(role Role) float64 {
	return 0.5*d.SpecialTeams + 0.5*d.Roles[role].Rating
}

// PlayerList returns the resolved players in role order, each once
func (d *DepthChart) PlayerList() []ResolvedPlayer {
	out := make([]ResolvedPlayer, 0, len(AllRoles))
	seen := make(map[string]bool)
	for _, role := range AllRoles {
		p := d.Roles[role]
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}
