package provider

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stitts-dev/gridiron-sim/internal/models"
)

// The file formats use plain string keys ("run", "1:short") and are converted
// to the closed types after decoding, so an unknown name is a configuration
// error naming the field. JSON documents decode through the same path.

type mixFile map[string]float64

type tendencyFile struct {
	Default mixFile            `yaml:"default"`
	Buckets map[string]mixFile `yaml:"buckets"`
}

type modelFile struct {
	Tendencies *tendencyFile                         `yaml:"tendencies"`
	Outcomes   map[string]models.OutcomeDistribution `yaml:"outcomes"`
}

type teamFile struct {
	models.Team `yaml:",inline"`
	Tendencies  *tendencyFile `yaml:"tendencies"`
}

type teamsFile struct {
	Teams []teamFile `yaml:"teams"`
}

// ParseModel decodes a YAML or JSON model document. Sections the document omits
// fall back to the league defaults.
func ParseModel(data []byte) (*Model, error) {
	var raw modelFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, models.NewConfigError("model", "decode: %v", err)
	}

	model := LeagueDefaults()
	if raw.Tendencies != nil {
		t, err := raw.Tendencies.convert("tendencies")
		if err != nil {
			return nil, err
		}
		model.Tendencies = t
	}
	if len(raw.Outcomes) > 0 {
		table := make(models.OutcomeTable, len(raw.Outcomes))
		for name, dist := range raw.Outcomes {
			play, err := models.ParsePlayType(name)
			if err != nil {
				return nil, models.NewConfigError("outcomes."+name, "%v", err)
			}
			table[play] = dist
		}
		model.Outcomes = table
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return model, nil
}

// LoadModel reads a model file from disk
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file %s: %w", path, err)
	}
	return ParseModel(data)
}

// ParseTeams decodes a YAML or JSON roster document
func ParseTeams(data []byte) ([]*models.Team, error) {
	var raw teamsFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, models.NewConfigError("teams", "decode: %v", err)
	}
	if len(raw.Teams) == 0 {
		return nil, models.NewConfigError("teams", "no teams defined")
	}

	seen := make(map[string]bool, len(raw.Teams))
	teams := make([]*models.Team, 0, len(raw.Teams))
	for i := range raw.Teams {
		tf := raw.Teams[i]
		team := tf.Team
		if tf.Tendencies != nil {
			t, err := tf.Tendencies.convert(fmt.Sprintf("teams[%s].tendencies", team.ID))
			if err != nil {
				return nil, err
			}
			team.Tendencies = t
		}
		if err := team.Validate(); err != nil {
			return nil, err
		}
		if seen[team.ID] {
			return nil, models.NewConfigError("teams", "duplicate team id %s", team.ID)
		}
		seen[team.ID] = true
		teams = append(teams, &team)
	}
	return teams, nil
}

// LoadTeams reads a roster file from disk
func LoadTeams(path string) ([]*models.Team, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read teams file %s: %w", path, err)
	}
	return ParseTeams(data)
}

// LoadModelOrDefault loads the model at path, or the league defaults when no
// path is configured.
func LoadModelOrDefault(path string) (*Model, error) {
	if path == "" {
		return LeagueDefaults(), nil
	}
	return LoadModel(path)
}

// LoadTeamsOrDefault loads the rosters at path, or generates n demo teams from
// seed when no path is configured.
func LoadTeamsOrDefault(path string, n int, seed int64) ([]*models.Team, error) {
	if path == "" {
		return DefaultTeams(n, rand.New(rand.NewSource(seed)))
	}
	return LoadTeams(path)
}

func (m mixFile) convert(field string) (models.PlayMix, error) {
	mix := make(models.PlayMix, len(m))
	for name, w := range m {
		play, err := models.ParsePlayType(name)
		if err != nil {
			return nil, models.NewConfigError(field, "%v", err)
		}
		mix[play] = w
	}
	return mix, nil
}

func (f *tendencyFile) convert(field string) (*models.TeamTendencies, error) {
	t := &models.TeamTendencies{Buckets: make(map[models.SituationKey]models.PlayMix, len(f.Buckets))}
	if len(f.Default) > 0 {
		mix, err := f.Default.convert(field + ".default")
		if err != nil {
			return nil, err
		}
		t.Default = mix
	}
	for name, raw := range f.Buckets {
		var key models.SituationKey
		if err := key.UnmarshalText([]byte(name)); err != nil {
			return nil, models.NewConfigError(field+".buckets", "%v", err)
		}
		mix, err := raw.convert(fmt.Sprintf("%s.buckets[%s]", field, name))
		if err != nil {
			return nil, err
		}
		t.Buckets[key] = mix
	}
	if err := t.Validate(field); err != nil {
		return nil, err
	}
	return t, nil
}

type playsFile struct {
	Plays []PlayRecord `yaml:"plays"`
}

// ParsePlayRecords decodes a YAML or JSON document of historical plays
func ParsePlayRecords(data []byte) ([]PlayRecord, error) {
	var raw playsFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, models.NewConfigError("plays", "decode: %v", err)
	}
	if len(raw.Plays) == 0 {
		return nil, models.NewConfigError("plays", "no plays defined")
	}
	for i, p := range raw.Plays {
		if !p.PlayType.Valid() {
			return nil, models.NewConfigError(fmt.Sprintf("plays[%d].play_type", i), "unknown play type %d", int(p.PlayType))
		}
		if p.Down < 0 || p.Down > 4 {
			return nil, models.NewConfigError(fmt.Sprintf("plays[%d].down", i), "down %d outside 1-4", p.Down)
		}
	}
	return raw.Plays, nil
}

// LoadPlayRecords reads a play-by-play file from disk
func LoadPlayRecords(path string) ([]PlayRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plays file %s: %w", path, err)
	}
	return ParsePlayRecords(data)
}
