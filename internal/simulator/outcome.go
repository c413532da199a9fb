package simulator

import (
	"math"
	"math/rand"

	"github.com/stitts-dev/gridiron-sim/internal/models"
)

// Built-in rates for play types an outcome table may omit
const (
	defaultExtraPointRate = 0.94
	kneelYards            = -1
)

// PlayContext is everything the sampler may read about the play
type PlayContext struct {
	Situation models.Situation
	Offense   *models.DepthChart
	Defense   *models.DepthChart
	Factors   models.ConditionFactors
}

// Outcome is a resolved play from the offense's point of view. Yards is the
// movement of the ball from the line of scrimmage before any change of possession
// (gross distance for punts); ReturnYards is gained by the team that takes over.
type Outcome struct {
	Result             models.PlayResult
	Yards              int
	ReturnYards        int
	KickDistance       int
	Fumble             bool
	Turnover           bool
	Touchdown          bool
	DefensiveTouchdown bool
	Penalty            bool
	PenaltyOnDefense   bool
	PenaltyYards       int
	Target             models.Role
	Defender           models.Role
}

// OutcomeSampler resolves a called play into an Outcome
type OutcomeSampler interface {
	Sample(play models.PlayType, ctx PlayContext, rng *rand.Rand) Outcome
}

type compiledOutcome struct {
	params      models.OutcomeDistribution
	yards       Distribution
	sackYards   Distribution
	returnYards Distribution
}

// OutcomeModel is the default OutcomeSampler. It draws from the outcome table and
// adjusts by the offense-versus-defense rating edge. Compiled once, shared read-only.
type OutcomeModel struct {
	settings Settings
	plays    map[models.PlayType]*compiledOutcome
}

// NewOutcomeModel validates the table and compiles its distributions
func NewOutcomeModel(table models.OutcomeTable, settings Settings) (*OutcomeModel, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	m := &OutcomeModel{settings: settings, plays: make(map[models.PlayType]*compiledOutcome)}
	for _, play := range models.AllPlayTypes {
		params, ok := table[play]
		if !ok {
			continue
		}
		field := "outcomes." + play.String()
		c := &compiledOutcome{params: params}
		var err error
		if !params.Yards.IsZero() {
			if c.yards, err = NewYardsDistribution(params.Yards, field+".yards"); err != nil {
				return nil, err
			}
		}
		if !params.SackYards.IsZero() {
			if c.sackYards, err = NewYardsDistribution(params.SackYards, field+".sack_yards"); err != nil {
				return nil, err
			}
		}
		if !params.ReturnYards.IsZero() {
			if c.returnYards, err = NewYardsDistribution(params.ReturnYards, field+".return_yards"); err != nil {
				return nil, err
			}
		}
		m.plays[play] = c
	}

	if _, ok := m.plays[models.PlayKneel]; !ok {
		m.plays[models.PlayKneel] = &compiledOutcome{yards: constantDistribution(kneelYards)}
	}
	if _, ok := m.plays[models.PlayExtraPoint]; !ok {
		m.plays[models.PlayExtraPoint] = &compiledOutcome{
			params: models.OutcomeDistribution{SuccessRate: defaultExtraPointRate},
		}
	}
	return m, nil
}

// Edge is the clamped rating differential used to bias a draw
func (m *OutcomeModel) Edge(offense, defense float64) float64 {
	return clamp((offense-defense)/100, -m.settings.MaxRatingEdge, m.settings.MaxRatingEdge)
}

// Sample resolves one play. Draws happen in a fixed order per play type so a
// seeded RNG replays identically.
func (m *OutcomeModel) Sample(play models.PlayType, ctx PlayContext, rng *rand.Rand) Outcome {
	c := m.plays[play]
	if ctx.Factors == (models.ConditionFactors{}) {
		ctx.Factors = models.DefaultConditions().Factors()
	}
	switch play {
	case models.PlayRun:
		return m.run(c, ctx, rng)
	case models.PlayPass:
		return m.pass(c, ctx, rng)
	case models.PlayPunt:
		return m.punt(c, ctx, rng)
	case models.PlayFieldGoal:
		return m.fieldGoal(c, ctx, rng)
	case models.PlayExtraPoint:
		return m.extraPoint(c, ctx, rng)
	default:
		return m.kneel(c, ctx, rng)
	}
}

func (m *OutcomeModel) run(c *compiledOutcome, ctx PlayContext, rng *rand.Rand) Outcome {
	p := c.params
	edge := m.Edge(ctx.Offense.RushOffense(), ctx.Defense.RushDefense())
	if rng.Float64() < penaltyRate(p.PenaltyRate, edge) {
		return m.penalty(ctx, edge, rng)
	}
	o := Outcome{Result: models.ResultRush, Target: models.RoleRB}

	fumbled := rng.Float64() < clamp01(p.TurnoverRate*(1-2*edge))
	lost := fumbled && rng.Float64() < p.FumbleLostRate

	o.Yards = m.gain(c, ctx, edge, ctx.Factors.Rushing, rng)
	o.Defender = pickRole(rng, runDefenders)
	o.Fumble = fumbled
	if lost {
		m.turnover(&o, c, ctx, rng)
		o.Result = models.ResultFumbleLost
		return o
	}
	o.Touchdown = o.Yards == ctx.Situation.YardsToEndZone()
	return o
}

func (m *OutcomeModel) pass(c *compiledOutcome, ctx PlayContext, rng *rand.Rand) Outcome {
	p := c.params
	target := pickRole(rng, passTargets)
	edge := m.Edge(ctx.Offense.PassOffense(target), ctx.Defense.PassDefense())
	if rng.Float64() < penaltyRate(p.PenaltyRate, edge) {
		return m.penalty(ctx, edge, rng)
	}
	o := Outcome{Target: target}
	sit := ctx.Situation

	sackRate := clamp01(p.SackRate * (1 - 2*edge))
	intRate := clamp01(p.TurnoverRate * (1 - 2*edge) / ctx.Factors.Passing)
	completion := clamp01((p.SuccessRate + edge*m.settings.RateSensitivity) * ctx.Factors.Passing)

	r := rng.Float64()
	switch {
	case r < sackRate:
		o.Result = models.ResultSack
		o.Defender = models.RoleDL
		lost := 6.0
		if c.sackYards != nil {
			lost = math.Abs(c.sackYards.Sample(rng))
		}
		o.Yards = -clampInt(int(math.Round(lost)), 1, sit.OwnYardLine)
	case r < sackRate+intRate:
		o.Result = models.ResultInterception
		o.Defender = pickRole(rng, coverageDefenders)
		air := 10.0
		if c.yards != nil {
			air = c.yards.Sample(rng)
		}
		o.Yards = clampInt(int(math.Round(air)), 1, sit.YardsToEndZone())
		o.Turnover = true
		if o.Yards < sit.YardsToEndZone() {
			m.turnover(&o, c, ctx, rng)
		}
	case rng.Float64() < completion:
		o.Result = models.ResultComplete
		o.Yards = m.gain(c, ctx, edge, 1, rng)
		o.Defender = pickRole(rng, passDefenders)
		o.Touchdown = o.Yards == sit.YardsToEndZone()
	default:
		o.Result = models.ResultIncomplete
	}
	return o
}

// gain draws scrimmage yards, scales gains by the rating edge and conditions, and
// keeps the ball between the offense's goal line and the end zone.
func (m *OutcomeModel) gain(c *compiledOutcome, ctx PlayContext, edge, factor float64, rng *rand.Rand) int {
	sit := ctx.Situation
	raw := 0.0
	if c.yards != nil {
		raw = c.yards.Sample(rng)
	}
	if raw > 0 {
		raw *= (1 + edge*m.settings.YardsSensitivity) * factor
	}
	yards := int(math.Round(raw))

	toGoal := sit.YardsToEndZone()
	if yards >= toGoal && toGoal > 20 && rng.Float64() >= clamp01(c.params.LongTouchdownRate*(1+edge)) {
		limit := toGoal - 1
		if c.params.LongGainCap > 0 && c.params.LongGainCap < limit {
			limit = c.params.LongGainCap
		}
		yards = limit
	}
	return clampInt(yards, -sit.OwnYardLine, toGoal)
}

// turnover moves the change of possession inside the field and samples the return
func (m *OutcomeModel) turnover(o *Outcome, c *compiledOutcome, ctx PlayContext, rng *rand.Rand) {
	sit := ctx.Situation
	o.Turnover = true
	o.Touchdown = false
	o.Yards = clampInt(o.Yards, 1-sit.OwnYardLine, sit.YardsToEndZone()-1)

	// distance from the change of possession to the returner's end zone
	runway := sit.OwnYardLine + o.Yards
	if c.returnYards == nil {
		return
	}
	ret := int(math.Round(c.returnYards.Sample(rng)))
	o.ReturnYards = clampInt(ret, 0, runway)
	o.DefensiveTouchdown = o.ReturnYards == runway
}

// penaltyRate shrinks as the offense's edge grows
func penaltyRate(base, edge float64) float64 {
	return clamp01(base * (1 - edge))
}

// penalty picks the flagged side; a positive edge puts more flags on the defense
func (m *OutcomeModel) penalty(ctx PlayContext, edge float64, rng *rand.Rand) Outcome {
	sit := ctx.Situation
	o := Outcome{Result: models.ResultPenalty, Penalty: true}
	if rng.Float64() < clamp01(0.5+edge) {
		yards := min(m.settings.DefensePenaltyYards, sit.YardsToEndZone()/2)
		o.PenaltyOnDefense = true
		o.PenaltyYards = yards
		o.Yards = yards
		return o
	}
	yards := min(m.settings.OffensePenaltyYards, sit.OwnYardLine/2)
	o.PenaltyYards = yards
	o.Yards = -yards
	return o
}

func (m *OutcomeModel) punt(c *compiledOutcome, ctx PlayContext, rng *rand.Rand) Outcome {
	sit := ctx.Situation
	edge := m.Edge(ctx.Offense.Kicking(models.RoleP), ctx.Defense.SpecialTeams)
	gross := 45.0
	if c.yards != nil {
		gross = c.yards.Sample(rng)
	}
	gross *= (1 + edge*m.settings.YardsSensitivity) * ctx.Factors.Kicking
	o := Outcome{Result: models.ResultPunt}
	o.KickDistance = clampInt(int(math.Round(gross)), 1, 100)
	o.Yards = o.KickDistance

	if o.Yards >= sit.YardsToEndZone() {
		o.Result = models.ResultTouchback
		return o
	}
	if c.returnYards != nil {
		// the return stops short of the kicking team's goal line
		spot := sit.OwnYardLine + o.Yards
		o.ReturnYards = clampInt(int(math.Round(c.returnYards.Sample(rng))), 0, spot-1)
	}
	return o
}

func (m *OutcomeModel) fieldGoal(c *compiledOutcome, ctx PlayContext, rng *rand.Rand) Outcome {
	p := c.params
	distance := FieldGoalDistance(ctx.Situation.OwnYardLine)
	edge := m.Edge(ctx.Offense.Kicking(models.RoleK), ctx.Defense.SpecialTeams)
	makeRate := p.SuccessRate - p.DistanceDecay*math.Max(0, float64(distance-30)) + edge*m.settings.RateSensitivity
	makeRate = clamp01(makeRate * ctx.Factors.Kicking)

	o := Outcome{Result: models.ResultFieldGoalMiss, KickDistance: distance}
	if rng.Float64() < makeRate {
		o.Result = models.ResultFieldGoalGood
	}
	return o
}

func (m *OutcomeModel) extraPoint(c *compiledOutcome, ctx PlayContext, rng *rand.Rand) Outcome {
	edge := m.Edge(ctx.Offense.Kicking(models.RoleK), ctx.Defense.SpecialTeams)
	makeRate := clamp01((c.params.SuccessRate + edge*m.settings.RateSensitivity) * ctx.Factors.Kicking)
	o := Outcome{Result: models.ResultExtraPointMiss}
	if rng.Float64() < makeRate {
		o.Result = models.ResultExtraPointGood
	}
	return o
}

func (m *OutcomeModel) kneel(c *compiledOutcome, ctx PlayContext, rng *rand.Rand) Outcome {
	yards := kneelYards
	if c != nil && c.yards != nil {
		yards = int(math.Round(c.yards.Sample(rng)))
	}
	// never kneel into a safety
	yards = clampInt(yards, 1-ctx.Situation.OwnYardLine, 0)
	return Outcome{Result: models.ResultKneel, Yards: yards, Target: models.RoleQB}
}

type roleWeight struct {
	role   models.Role
	weight float64
}

var (
	passTargets = []roleWeight{
		{models.RoleWR1, 0.34}, {models.RoleWR2, 0.26}, {models.RoleTE, 0.22}, {models.RoleRB, 0.18},
	}
	runDefenders = []roleWeight{
		{models.RoleLB, 0.45}, {models.RoleDL, 0.3}, {models.RoleS, 0.15}, {models.RoleCB, 0.1},
	}
	passDefenders = []roleWeight{
		{models.RoleCB, 0.4}, {models.RoleS, 0.3}, {models.RoleLB, 0.3},
	}
	coverageDefenders = []roleWeight{
		{models.RoleCB, 0.6}, {models.RoleS, 0.4},
	}
)

func pickRole(rng *rand.Rand, weights []roleWeight) models.Role {
	r := rng.Float64()
	for _, w := range weights {
		if r < w.weight {
			return w.role
		}
		r -= w.weight
	}
	return weights[len(weights)-1].role
}
