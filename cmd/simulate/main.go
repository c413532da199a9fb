package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/stitts-dev/gridiron-sim/internal/batch"
	"github.com/stitts-dev/gridiron-sim/internal/fantasy"
	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/internal/provider"
	"github.com/stitts-dev/gridiron-sim/internal/simulator"
	"github.com/stitts-dev/gridiron-sim/internal/stats"
	"github.com/stitts-dev/gridiron-sim/pkg/config"
	"github.com/stitts-dev/gridiron-sim/pkg/logger"
)

const usage = `Usage: simulate <game|batch|season|analyze> [flags]

  game     play one game and print its play log and box score
  batch    run a Monte-Carlo batch between two teams
  season   play a schedule and print the standings
  analyze  derive a probability model from historical plays

Run "simulate <command> -h" for the command's flags.`

// common holds the flags every simulation command shares
type common struct {
	modelPath string
	teamsPath string
	demoTeams int
	scoring   string
	outPath   string
	seed      int64
	progress  bool
}

func (c *common) register(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&c.modelPath, "model", cfg.ModelPath, "probability model file (YAML or JSON); league defaults when empty")
	fs.StringVar(&c.teamsPath, "teams", cfg.TeamsPath, "roster file (YAML or JSON); demo teams when empty")
	fs.IntVar(&c.demoTeams, "demo-teams", 8, "number of demo teams to generate when no roster file is given")
	fs.StringVar(&c.scoring, "scoring", "standard", "fantasy scoring: standard, half_ppr or ppr")
	fs.StringVar(&c.outPath, "out", "", "write JSON to this file instead of stdout")
	fs.Int64Var(&c.seed, "seed", cfg.SimSeed, "base seed")
	fs.BoolVar(&c.progress, "progress", false, "log progress to stderr")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command, args := os.Args[1], os.Args[2:]
	switch command {
	case "game":
		err = runGame(ctx, cfg, args)
	case "batch":
		err = runBatch(ctx, cfg, args)
	case "season":
		err = runSeason(ctx, cfg, args)
	case "analyze":
		err = runAnalyze(args)
	case "-h", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", command, usage)
		os.Exit(2)
	}
	if err != nil {
		log.WithField("command", command).Fatalf("Simulation failed: %v", err)
	}
}

func runGame(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("game", flag.ExitOnError)
	var c common
	c.register(fs, cfg)
	home := fs.String("home", "", "home team id (first team when empty)")
	away := fs.String("away", "", "away team id (second team when empty)")
	randomConditions := fs.Bool("random-conditions", false, "draw weather from the seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	runner, teams, scoring, err := setup(cfg, &c)
	if err != nil {
		return err
	}
	h, a, err := pickMatchup(teams, *home, *away)
	if err != nil {
		return err
	}
	conditions := models.DefaultConditions()
	if *randomConditions {
		conditions = models.RandomConditions(simulator.NewRand(c.seed))
	}

	res, err := runner.RunGame(ctx, h, a, conditions, c.seed)
	if err != nil {
		return err
	}
	projections, err := fantasy.Project([]stats.GameSnapshot{res.Snapshot}, scoring, nil)
	if err != nil {
		return err
	}
	return writeJSON(c.outPath, struct {
		*batch.GameResult
		Scoring fantasy.ScoringSystem `json:"scoring"`
		Fantasy []fantasy.Projection  `json:"fantasy"`
	}{res, scoring, projections})
}

func runBatch(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	var c common
	c.register(fs, cfg)
	home := fs.String("home", "", "home team id (first team when empty)")
	away := fs.String("away", "", "away team id (second team when empty)")
	trials := fs.Int("trials", cfg.SimTrials, "number of trials")
	workers := fs.Int("workers", cfg.SimWorkers, "worker goroutines (0 means one per CPU)")
	seedPolicy := fs.String("seed-policy", cfg.SimSeedPolicy, "fixed or random")
	if err := fs.Parse(args); err != nil {
		return err
	}

	runner, teams, scoring, err := setup(cfg, &c)
	if err != nil {
		return err
	}
	h, a, err := pickMatchup(teams, *home, *away)
	if err != nil {
		return err
	}
	batchCfg, err := cfg.BatchConfig(*trials)
	if err != nil {
		return err
	}
	batchCfg.Workers = *workers
	batchCfg.BaseSeed = c.seed
	batchCfg.SeedPolicy = simulator.SeedPolicy(*seedPolicy)

	progress, done := logProgress(c.progress)
	res, err := runner.RunBatch(ctx, h, a, models.DefaultConditions(), batchCfg, progress)
	done()
	if err != nil {
		return err
	}
	projections, err := fantasy.Project(res.Snapshots, scoring, batchCfg.Percentiles)
	if err != nil {
		return err
	}
	return writeJSON(c.outPath, struct {
		*batch.Result
		Scoring     fantasy.ScoringSystem `json:"scoring"`
		Projections []fantasy.Projection  `json:"projections"`
	}{res, scoring, projections})
}

func runSeason(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("season", flag.ExitOnError)
	var c common
	c.register(fs, cfg)
	weeks := fs.Int("weeks", 0, "weeks to generate (one full round robin when 0)")
	schedulePath := fs.String("schedule", "", "schedule file with a list of {week, home_id, away_id}")
	workers := fs.Int("workers", cfg.SimWorkers, "worker goroutines (0 means one per CPU)")
	randomConditions := fs.Bool("random-conditions", false, "draw weather per game from its seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	runner, teams, scoring, err := setup(cfg, &c)
	if err != nil {
		return err
	}
	seasonCfg := batch.SeasonConfig{
		Weeks:            *weeks,
		Workers:          *workers,
		BaseSeed:         c.seed,
		SeedPolicy:       simulator.SeedPolicy(cfg.SimSeedPolicy),
		RandomConditions: *randomConditions,
	}
	if seasonCfg.Weeks == 0 {
		seasonCfg.Weeks = len(teams) - 1 + len(teams)%2
	}
	if *schedulePath != "" {
		if seasonCfg.Schedule, err = loadSchedule(*schedulePath); err != nil {
			return err
		}
	}
	percentiles, err := cfg.Percentiles()
	if err != nil {
		return err
	}

	progress, done := logProgress(c.progress)
	res, err := runner.RunSeason(ctx, teams, seasonCfg, progress)
	done()
	if err != nil {
		return err
	}
	projections, err := fantasy.Project(res.Snapshots, scoring, percentiles)
	if err != nil {
		return err
	}
	return writeJSON(c.outPath, struct {
		*batch.SeasonResult
		Scoring     fantasy.ScoringSystem `json:"scoring"`
		Projections []fantasy.Projection  `json:"projections"`
	}{res, scoring, projections})
}

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	playsPath := fs.String("plays", "", "play-by-play file (YAML or JSON)")
	outPath := fs.String("out", "", "write JSON to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *playsPath == "" {
		return fmt.Errorf("-plays is required")
	}
	plays, err := provider.LoadPlayRecords(*playsPath)
	if err != nil {
		return err
	}
	model, err := provider.AnalyzePlays(plays)
	if err != nil {
		return err
	}
	return writeJSON(*outPath, model)
}

func setup(cfg *config.Config, c *common) (*batch.Runner, []*models.Team, fantasy.ScoringSystem, error) {
	scoring, err := fantasy.ParseScoringSystem(c.scoring)
	if err != nil {
		return nil, nil, "", err
	}
	model, err := provider.LoadModelOrDefault(c.modelPath)
	if err != nil {
		return nil, nil, "", err
	}
	teams, err := provider.LoadTeamsOrDefault(c.teamsPath, c.demoTeams, cfg.SimSeed)
	if err != nil {
		return nil, nil, "", err
	}
	settings, err := cfg.EngineSettings()
	if err != nil {
		return nil, nil, "", err
	}
	engine, err := simulator.NewDefaultEngine(settings, model.Tendencies, model.Outcomes)
	if err != nil {
		return nil, nil, "", err
	}
	return batch.NewRunner(engine, logger.WithService("simulate")), teams, scoring, nil
}

func pickMatchup(teams []*models.Team, homeID, awayID string) (*models.Team, *models.Team, error) {
	if len(teams) < 2 {
		return nil, nil, fmt.Errorf("need at least 2 teams, have %d", len(teams))
	}
	find := func(id string, fallback *models.Team) (*models.Team, error) {
		if id == "" {
			return fallback, nil
		}
		for _, t := range teams {
			if t.ID == id {
				return t, nil
			}
		}
		return nil, fmt.Errorf("unknown team %q", id)
	}
	home, err := find(homeID, teams[0])
	if err != nil {
		return nil, nil, err
	}
	away, err := find(awayID, teams[1])
	if err != nil {
		return nil, nil, err
	}
	return home, away, nil
}

func loadSchedule(path string) ([]batch.Matchup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule file %s: %w", path, err)
	}
	var schedule []batch.Matchup
	if err := yaml.Unmarshal(data, &schedule); err != nil {
		return nil, models.NewConfigError("schedule", "decode: %v", err)
	}
	return schedule, nil
}

// logProgress returns a channel that logs updates when enabled, and a func that
// closes it once the run has returned
func logProgress(enabled bool) (chan<- batch.Progress, func()) {
	if !enabled {
		return nil, func() {}
	}
	ch := make(chan batch.Progress, 16)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for p := range ch {
			logger.GetLogger().WithFields(logrus.Fields{
				"run_id":    p.RunID,
				"completed": p.Completed,
				"failed":    p.Failed,
				"total":     p.Total,
				"eta":       p.EstimatedTimeRemaining.String(),
			}).Info("Progress")
		}
	}()
	return ch, func() {
		close(ch)
		<-finished
	}
}

func writeJSON(path string, v interface{}) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
