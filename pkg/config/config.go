package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/stitts-dev/gridiron-sim/internal/batch"
	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/internal/simulator"
)

type Config struct {
	// Server
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Database
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Redis
	RedisURL       string        `mapstructure:"REDIS_URL"`
	ResultCacheTTL time.Duration `mapstructure:"RESULT_CACHE_TTL"`

	// Models
	ModelPath string `mapstructure:"MODEL_PATH"`
	TeamsPath string `mapstructure:"TEAMS_PATH"`

	// Simulation
	SimTrials          int    `mapstructure:"SIM_TRIALS"`
	SimWorkers         int    `mapstructure:"SIM_WORKERS"`
	SimSeed            int64  `mapstructure:"SIM_SEED"`
	SimSeedPolicy      string `mapstructure:"SIM_SEED_POLICY"`
	SimMaxTrials       int    `mapstructure:"SIM_MAX_TRIALS"`
	SummaryPercentiles string `mapstructure:"SUMMARY_PERCENTILES"`

	// Game rules
	OvertimeRule        string  `mapstructure:"OVERTIME_RULE"`
	TwoMinuteSeconds    int     `mapstructure:"TWO_MINUTE_SECONDS"`
	GarbageTimeSeconds  int     `mapstructure:"GARBAGE_TIME_SECONDS"`
	GarbageTimeLead     int     `mapstructure:"GARBAGE_TIME_LEAD"`
	KneelSeconds        int     `mapstructure:"KNEEL_SECONDS"`
	FourthDownThreshold float64 `mapstructure:"FOURTH_DOWN_THRESHOLD"`
	FGMaxDistance       int     `mapstructure:"FG_MAX_DISTANCE"`
	ClockRunoff         string  `mapstructure:"CLOCK_RUNOFF"`

	// Jobs
	RunRetentionDays int    `mapstructure:"RUN_RETENTION_DAYS"`
	RetentionCron    string `mapstructure:"RETENTION_CRON"`

	// API
	APIRateLimit            float64 `mapstructure:"API_RATE_LIMIT"` // requests per second per client
	APIRateBurst            int     `mapstructure:"API_RATE_BURST"`
	CircuitBreakerThreshold int     `mapstructure:"CIRCUIT_BREAKER_THRESHOLD"`
}

func setDefaults(v *viper.Viper) {
	engine := simulator.DefaultSettings()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("DATABASE_URL", "sqlite://gridiron.db")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("RESULT_CACHE_TTL", "1h")
	v.SetDefault("MODEL_PATH", "")
	v.SetDefault("TEAMS_PATH", "")

	v.SetDefault("SIM_TRIALS", 1000)
	v.SetDefault("SIM_WORKERS", 4)
	v.SetDefault("SIM_SEED", 42)
	v.SetDefault("SIM_SEED_POLICY", string(simulator.SeedFixed))
	v.SetDefault("SIM_MAX_TRIALS", 10000)
	v.SetDefault("SUMMARY_PERCENTILES", "0.1,0.25,0.75,0.9")

	v.SetDefault("OVERTIME_RULE", string(engine.OvertimeRule))
	v.SetDefault("TWO_MINUTE_SECONDS", engine.TwoMinuteSeconds)
	v.SetDefault("GARBAGE_TIME_SECONDS", engine.GarbageTimeSeconds)
	v.SetDefault("GARBAGE_TIME_LEAD", engine.GarbageTimeLead)
	v.SetDefault("KNEEL_SECONDS", engine.KneelSeconds)
	v.SetDefault("FOURTH_DOWN_THRESHOLD", engine.FourthDownThreshold)
	v.SetDefault("FG_MAX_DISTANCE", engine.FieldGoalMaxDistance)
	v.SetDefault("CLOCK_RUNOFF", "") // key=seconds overrides on top of the stock table

	v.SetDefault("RUN_RETENTION_DAYS", 30)
	v.SetDefault("RETENTION_CRON", "0 3 * * *")

	v.SetDefault("API_RATE_LIMIT", 5)
	v.SetDefault("API_RATE_BURST", 10)
	v.SetDefault("CIRCUIT_BREAKER_THRESHOLD", 5) // fail after 5 consecutive failures
}

// LoadConfig reads .env (if present) and the environment on top of the defaults
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")

	setDefaults(v)

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// IsDevelopment reports whether the service runs in a development environment
func (c *Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development"
}

// Validate rejects settings the simulator or the service cannot run with
func (c *Config) Validate() error {
	if c.SimTrials <= 0 {
		return fmt.Errorf("SIM_TRIALS must be positive, got %d", c.SimTrials)
	}
	if c.SimMaxTrials > 0 && c.SimTrials > c.SimMaxTrials {
		return fmt.Errorf("SIM_TRIALS %d exceeds SIM_MAX_TRIALS %d", c.SimTrials, c.SimMaxTrials)
	}
	if c.SimWorkers < 0 {
		return fmt.Errorf("SIM_WORKERS cannot be negative")
	}
	switch simulator.SeedPolicy(c.SimSeedPolicy) {
	case simulator.SeedFixed, simulator.SeedRandom:
	default:
		return fmt.Errorf("SIM_SEED_POLICY must be fixed or random, got %q", c.SimSeedPolicy)
	}
	if _, err := c.Percentiles(); err != nil {
		return err
	}
	if _, err := c.EngineSettings(); err != nil {
		return fmt.Errorf("invalid engine settings: %w", err)
	}
	if c.APIRateLimit <= 0 || c.APIRateBurst <= 0 {
		return fmt.Errorf("API_RATE_LIMIT and API_RATE_BURST must be positive")
	}
	if c.RunRetentionDays < 0 {
		return fmt.Errorf("RUN_RETENTION_DAYS cannot be negative")
	}
	return nil
}

// Percentiles parses SUMMARY_PERCENTILES ("0.1,0.9")
func (c *Config) Percentiles() ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(c.SummaryPercentiles, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SUMMARY_PERCENTILES entry %q: %w", part, err)
		}
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("SUMMARY_PERCENTILES entry %v outside [0,1]", p)
		}
		out = append(out, p)
	}
	return out, nil
}

// EngineSettings builds the simulator configuration from the stock settings
// and the configured overrides.
func (c *Config) EngineSettings() (simulator.Settings, error) {
	s := simulator.DefaultSettings()

	rule, err := simulator.ParseOvertimeRule(c.OvertimeRule)
	if err != nil {
		return s, err
	}
	clock, err := simulator.ParseClockTable(c.ClockRunoff)
	if err != nil {
		return s, err
	}

	s.OvertimeRule = rule
	s.Clock = clock
	s.TwoMinuteSeconds = c.TwoMinuteSeconds
	s.GarbageTimeSeconds = c.GarbageTimeSeconds
	s.GarbageTimeLead = c.GarbageTimeLead
	s.KneelSeconds = c.KneelSeconds
	s.FourthDownThreshold = c.FourthDownThreshold
	s.FieldGoalMaxDistance = c.FGMaxDistance
	return s, s.Validate()
}

// BatchConfig returns the batch settings for a run of the given size; zero
// trials means SIM_TRIALS.
func (c *Config) BatchConfig(trials int) (batch.Config, error) {
	if trials == 0 {
		trials = c.SimTrials
	}
	if c.SimMaxTrials > 0 && trials > c.SimMaxTrials {
		return batch.Config{}, models.NewConfigError("trials", "%d trials exceeds the limit of %d", trials, c.SimMaxTrials)
	}
	percentiles, err := c.Percentiles()
	if err != nil {
		return batch.Config{}, err
	}
	cfg := batch.Config{
		Trials:      trials,
		Workers:     c.SimWorkers,
		BaseSeed:    c.SimSeed,
		SeedPolicy:  simulator.SeedPolicy(c.SimSeedPolicy),
		Percentiles: percentiles,
	}
	return cfg, cfg.Validate()
}
