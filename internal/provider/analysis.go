package provider

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/gridiron-sim/internal/models"
)

// Sample floors below which analyzed values are ignored in favour of the league tables
const (
	MinBucketSamples  = 10
	MinOutcomeSamples = 30
)

// PlayRecord is one historical play-by-play row
type PlayRecord struct {
	Team         string          `json:"team" yaml:"team"`
	Down         int             `json:"down" yaml:"down"`
	ToGo         int             `json:"to_go" yaml:"to_go"`
	PlayType     models.PlayType `json:"play_type" yaml:"play_type"`
	Yards        int             `json:"yards" yaml:"yards"`
	Complete     bool            `json:"complete,omitempty" yaml:"complete,omitempty"`
	Sack         bool            `json:"sack,omitempty" yaml:"sack,omitempty"`
	Interception bool            `json:"interception,omitempty" yaml:"interception,omitempty"`
	Fumble       bool            `json:"fumble,omitempty" yaml:"fumble,omitempty"`
	FumbleLost   bool            `json:"fumble_lost,omitempty" yaml:"fumble_lost,omitempty"`
	Penalty      bool            `json:"penalty,omitempty" yaml:"penalty,omitempty"`
	KickDistance int             `json:"kick_distance,omitempty" yaml:"kick_distance,omitempty"`
	KickGood     bool            `json:"kick_good,omitempty" yaml:"kick_good,omitempty"`
}

// yard band edges used when binning observed gains
var (
	runBandEdges  = [][2]int{{-99, -1}, {0, 0}, {1, 4}, {5, 9}, {10, 19}, {20, 99}}
	passBandEdges = [][2]int{{-99, -1}, {0, 0}, {1, 5}, {6, 15}, {16, 25}, {26, 99}}
)

// AnalyzePlays derives a probability model from historical plays. Buckets and
// play types with too few samples keep the league values.
func AnalyzePlays(records []PlayRecord) (*Model, error) {
	league := LeagueTendencies()
	if analyzed := AnalyzeTendencies(records, ""); analyzed != nil {
		for key, mix := range analyzed.Buckets {
			league.Buckets[key] = mix
		}
		if analyzed.Default.Restrict(models.PlayRun, models.PlayPass).Total() > 0 {
			league.Default = analyzed.Default
		}
	}
	model := &Model{Tendencies: league, Outcomes: AnalyzeOutcomes(records)}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return model, nil
}

// AnalyzeTendencies builds the play-call mix per down and distance bucket.
// An empty team analyzes every record. It returns nil when nothing qualifies.
func AnalyzeTendencies(records []PlayRecord, team string) *models.TeamTendencies {
	counts := make(map[models.SituationKey]map[models.PlayType]int)
	overall := make(map[models.PlayType]int)
	for _, r := range records {
		if team != "" && r.Team != team {
			continue
		}
		if !r.PlayType.Valid() || r.PlayType == models.PlayExtraPoint {
			continue
		}
		if r.Down < 1 || r.Down > 4 || r.ToGo < 1 {
			continue
		}
		key := models.KeyFor(r.Down, r.ToGo)
		if counts[key] == nil {
			counts[key] = make(map[models.PlayType]int)
		}
		counts[key][r.PlayType]++
		overall[r.PlayType]++
	}

	t := &models.TeamTendencies{Buckets: make(map[models.SituationKey]models.PlayMix)}
	for key, c := range counts {
		if mix, ok := toMix(c); ok {
			t.Buckets[key] = mix
		}
	}
	if mix, ok := toMix(overall); ok {
		t.Default = mix
	}
	if len(t.Buckets) == 0 && len(t.Default) == 0 {
		return nil
	}
	return t
}

func toMix(counts map[models.PlayType]int) (models.PlayMix, bool) {
	total := 0
	for _, n := range counts {
		total += n
	}
	if total < MinBucketSamples {
		return nil, false
	}
	mix := make(models.PlayMix, len(counts))
	for p, n := range counts {
		mix[p] = float64(n) / float64(total)
	}
	return mix, true
}

// AnalyzeOutcomes derives outcome distributions per play type, keeping the
// league entry for any type that is under-sampled or fails validation.
func AnalyzeOutcomes(records []PlayRecord) models.OutcomeTable {
	table := LeagueOutcomes()
	byType := make(map[models.PlayType][]PlayRecord)
	for _, r := range records {
		byType[r.PlayType] = append(byType[r.PlayType], r)
	}

	derive := map[models.PlayType]func(models.OutcomeDistribution, []PlayRecord) models.OutcomeDistribution{
		models.PlayRun:       analyzeRuns,
		models.PlayPass:      analyzePasses,
		models.PlayPunt:      analyzePunts,
		models.PlayFieldGoal: analyzeFieldGoals,
	}
	for _, p := range models.AllPlayTypes {
		fn, ok := derive[p]
		if !ok || len(byType[p]) < MinOutcomeSamples {
			continue
		}
		dist := fn(table[p], byType[p])
		if dist.Validate(p) == nil {
			table[p] = dist
		}
	}
	return table
}

func analyzeRuns(base models.OutcomeDistribution, plays []PlayRecord) models.OutcomeDistribution {
	var gains []int
	fumbles, lost, penalties := 0, 0, 0
	for _, r := range plays {
		if r.Penalty {
			penalties++
			continue
		}
		if r.Fumble || r.FumbleLost {
			fumbles++
		}
		if r.FumbleLost {
			lost++
			continue
		}
		gains = append(gains, r.Yards)
	}
	n := float64(len(plays))
	dist := base
	dist.Yards = bandsFrom(gains, runBandEdges, base.Yards)
	dist.TurnoverRate = float64(fumbles) / n
	dist.PenaltyRate = float64(penalties) / n
	if fumbles > 0 {
		dist.FumbleLostRate = float64(lost) / float64(fumbles)
	}
	return dist
}

func analyzePasses(base models.OutcomeDistribution, plays []PlayRecord) models.OutcomeDistribution {
	var gains []int
	var sackYards []float64
	attempts, completions, picks, penalties := 0, 0, 0, 0
	for _, r := range plays {
		switch {
		case r.Penalty:
			penalties++
		case r.Sack:
			sackYards = append(sackYards, math.Abs(float64(r.Yards)))
		case r.Interception:
			attempts++
			picks++
		default:
			attempts++
			if r.Complete {
				completions++
				gains = append(gains, r.Yards)
			}
		}
	}
	n := float64(len(plays))
	dist := base
	dist.Yards = bandsFrom(gains, passBandEdges, base.Yards)
	dist.SackRate = float64(len(sackYards)) / n
	dist.TurnoverRate = float64(picks) / n
	dist.PenaltyRate = float64(penalties) / n
	if attempts-picks > 0 {
		dist.SuccessRate = float64(completions) / float64(attempts-picks)
	}
	if spec, ok := normalFrom(sackYards, 0); ok {
		dist.SackYards = spec
	}
	return dist
}

func analyzePunts(base models.OutcomeDistribution, plays []PlayRecord) models.OutcomeDistribution {
	distances := make([]float64, 0, len(plays))
	for _, r := range plays {
		if r.KickDistance > 0 {
			distances = append(distances, float64(r.KickDistance))
		}
	}
	dist := base
	if spec, ok := normalFrom(distances, -1); ok {
		dist.Yards = spec
	}
	return dist
}

// analyzeFieldGoals converts the observed make rate to its 30-yard equivalent
// using the league distance decay.
func analyzeFieldGoals(base models.OutcomeDistribution, plays []PlayRecord) models.OutcomeDistribution {
	made := 0
	distances := make([]float64, 0, len(plays))
	for _, r := range plays {
		if r.KickGood {
			made++
		}
		distances = append(distances, float64(r.KickDistance))
	}
	rate := float64(made) / float64(len(plays))
	beyond := math.Max(0, stat.Mean(distances, nil)-30)
	dist := base
	dist.SuccessRate = math.Min(1, rate+base.DistanceDecay*beyond)
	return dist
}

// bandsFrom bins observed gains. Each band's bounds shrink to the values
// actually seen so open-ended tail bands do not inflate the mean.
func bandsFrom(gains []int, edges [][2]int, fallback models.YardsSpec) models.YardsSpec {
	if len(gains) < MinOutcomeSamples {
		return fallback
	}
	type bin struct {
		lo, hi int
		n      int
	}
	bins := make([]bin, len(edges))
	for _, g := range gains {
		i := len(edges) - 1
		for j, e := range edges {
			if g <= e[1] {
				i = j
				break
			}
		}
		b := &bins[i]
		if b.n == 0 || g < b.lo {
			b.lo = g
		}
		if b.n == 0 || g > b.hi {
			b.hi = g
		}
		b.n++
	}
	spec := models.YardsSpec{Kind: models.YardsBands}
	for _, b := range bins {
		if b.n == 0 {
			continue
		}
		spec.Bands = append(spec.Bands, models.YardBand{Min: b.lo, Max: b.hi, Weight: float64(b.n)})
	}
	return spec
}

// normalFrom fits a truncated normal to the samples. floor < 0 uses the
// observed minimum as the lower bound.
func normalFrom(values []float64, floor float64) (models.YardsSpec, bool) {
	if len(values) < 5 {
		return models.YardsSpec{}, false
	}
	mean, sd := stat.MeanStdDev(values, nil)
	if sd <= 0 || math.IsNaN(sd) {
		return models.YardsSpec{}, false
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if floor >= 0 {
		lo = math.Min(lo, floor)
	}
	return models.YardsSpec{Kind: models.YardsNormal, Mean: mean, StdDev: sd, Min: lo, Max: hi}, true
}
