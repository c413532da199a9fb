package simulator

import (
	"github.com/stitts-dev/gridiron-sim/internal/models"
)

// credit attributes per-player stat deltas for a resolved play
func credit(ev *models.PlayEvent, o Outcome, off, def *models.DepthChart) {
	var parts []models.Participant
	add := func(chart *models.DepthChart, role models.Role, line models.StatLine) {
		p := chart.Player(role)
		for i := range parts {
			if parts[i].PlayerID == p.ID {
				parts[i].Stats.Add(line)
				return
			}
		}
		parts = append(parts, models.Participant{PlayerID: p.ID, TeamID: chart.TeamID, Role: role, Stats: line})
	}
	td := boolInt(ev.Touchdown)

	switch ev.Result {
	case models.ResultRush:
		add(off, models.RoleRB, models.StatLine{
			RushAttempts: 1, RushYards: ev.Yards, RushTDs: td, Fumbles: boolInt(o.Fumble),
		})
		if !ev.Touchdown {
			add(def, o.Defender, models.StatLine{Tackles: 1})
		}
	case models.ResultFumbleLost:
		add(off, models.RoleRB, models.StatLine{
			RushAttempts: 1, RushYards: ev.Yards, Fumbles: 1, FumblesLost: 1,
		})
		add(def, o.Defender, models.StatLine{
			Tackles: 1, ForcedFumbles: 1, FumbleRecoveries: 1, DefensiveTDs: boolInt(ev.DefensiveTouchdown),
		})
	case models.ResultKneel:
		add(off, models.RoleQB, models.StatLine{RushAttempts: 1, RushYards: ev.Yards})
	case models.ResultComplete:
		add(off, models.RoleQB, models.StatLine{PassAttempts: 1, Completions: 1, PassYards: ev.Yards, PassTDs: td})
		add(off, o.Target, models.StatLine{Targets: 1, Receptions: 1, ReceivingYards: ev.Yards, ReceivingTDs: td})
		if !ev.Touchdown {
			add(def, o.Defender, models.StatLine{Tackles: 1})
		}
	case models.ResultIncomplete:
		add(off, models.RoleQB, models.StatLine{PassAttempts: 1})
		add(off, o.Target, models.StatLine{Targets: 1})
	case models.ResultSack:
		add(off, models.RoleQB, models.StatLine{TimesSacked: 1, SackYardsLost: -ev.Yards})
		add(def, models.RoleDL, models.StatLine{Sacks: 1, Tackles: 1})
	case models.ResultInterception:
		add(off, models.RoleQB, models.StatLine{PassAttempts: 1, Interceptions: 1})
		add(off, o.Target, models.StatLine{Targets: 1})
		add(def, o.Defender, models.StatLine{DefInterceptions: 1, DefensiveTDs: boolInt(ev.DefensiveTouchdown)})
	case models.ResultPunt, models.ResultTouchback:
		add(off, models.RoleP, models.StatLine{Punts: 1, PuntYards: o.KickDistance})
	case models.ResultFieldGoalGood, models.ResultFieldGoalMiss:
		add(off, models.RoleK, models.StatLine{
			FieldGoalAttempts: 1, FieldGoalsMade: boolInt(ev.Result == models.ResultFieldGoalGood),
		})
	case models.ResultExtraPointGood, models.ResultExtraPointMiss:
		add(off, models.RoleK, models.StatLine{
			ExtraPointAttempts: 1, ExtraPointsMade: boolInt(ev.Result == models.ResultExtraPointGood),
		})
	}
	ev.Participants = parts
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
