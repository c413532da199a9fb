package batch

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/internal/simulator"
	"github.com/stitts-dev/gridiron-sim/internal/stats"
	"github.com/stitts-dev/gridiron-sim/pkg/logger"
)

// Mode is the kind of run a result came from
type Mode string

const (
	ModeGame   Mode = "game"
	ModeBatch  Mode = "batch"
	ModeSeason Mode = "season"
)

// Config controls a Monte-Carlo batch. An empty RunID gets a fresh UUID.
type Config struct {
	RunID       string               `json:"run_id,omitempty"`
	Trials      int                  `json:"trials"`
	Workers     int                  `json:"workers"`
	BaseSeed    int64                `json:"base_seed"`
	SeedPolicy  simulator.SeedPolicy `json:"seed_policy"`
	Percentiles []float64            `json:"percentiles,omitempty"`
}

// Validate rejects a batch configuration before any trial runs
func (c Config) Validate() error {
	if c.Trials <= 0 {
		return models.NewConfigError("trials", "must be positive, got %d", c.Trials)
	}
	if c.Workers < 0 {
		return models.NewConfigError("workers", "cannot be negative")
	}
	switch c.SeedPolicy {
	case "", simulator.SeedFixed, simulator.SeedRandom:
	default:
		return models.NewConfigError("seed_policy", "unknown seed policy %q", c.SeedPolicy)
	}
	for _, p := range c.Percentiles {
		if p < 0 || p > 1 {
			return models.NewConfigError("percentiles", "%.3f outside [0,1]", p)
		}
	}
	return nil
}

func (c Config) workers(jobs int) int {
	n := runtime.NumCPU()
	if c.Workers > 0 {
		n = c.Workers
	}
	if n > jobs {
		n = jobs
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (c Config) percentiles() []float64 {
	if len(c.Percentiles) == 0 {
		return stats.DefaultPercentiles
	}
	return c.Percentiles
}

// Progress reports how far a run has got
type Progress struct {
	RunID                  string        `json:"run_id"`
	Total                  int           `json:"total"`
	Completed              int           `json:"completed"`
	Failed                 int           `json:"failed"`
	StartTime              time.Time     `json:"start_time"`
	EstimatedTimeRemaining time.Duration `json:"estimated_time_remaining"`
}

// TrialFailure is a trial that ended in an error. It is kept apart from the
// completed trials and never folded into the summary.
type TrialFailure struct {
	Trial int    `json:"trial"`
	Seed  int64  `json:"seed"`
	Error string `json:"error"`
}

// GameResult is a single simulated game with its full play log
type GameResult struct {
	RunID      string             `json:"run_id"`
	Seed       int64              `json:"seed"`
	Conditions models.Conditions  `json:"conditions"`
	Final      *models.GameState  `json:"final"`
	Snapshot   stats.GameSnapshot `json:"snapshot"`
	Events     []models.PlayEvent `json:"events"`
}

// Result is the outcome of a Monte-Carlo batch
type Result struct {
	RunID     string             `json:"run_id"`
	Mode      Mode               `json:"mode"`
	HomeID    string             `json:"home_id"`
	AwayID    string             `json:"away_id"`
	Trials    int                `json:"trials"`
	Completed int                `json:"completed"`
	BaseSeed  int64              `json:"base_seed"`
	Failures  []TrialFailure     `json:"failures,omitempty"`
	Summary   stats.BatchSummary `json:"summary"`
	StartedAt time.Time          `json:"started_at"`
	Duration  time.Duration      `json:"duration"`

	// Snapshots are the completed trials ordered by trial index
	Snapshots []stats.GameSnapshot `json:"-"`
}

// Runner drives an Engine through single games, batches and seasons
type Runner struct {
	engine *simulator.Engine
	log    *logrus.Entry
}

// NewRunner wraps an engine. A nil log uses the global logger.
func NewRunner(engine *simulator.Engine, log *logrus.Entry) *Runner {
	if log == nil {
		log = logrus.NewEntry(logger.GetLogger())
	}
	return &Runner{engine: engine, log: log}
}

// Engine returns the wrapped engine
func (r *Runner) Engine() *simulator.Engine {
	return r.engine
}

func runID(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}

func validateMatchup(home, away *models.Team) error {
	if err := home.Validate(); err != nil {
		return err
	}
	if err := away.Validate(); err != nil {
		return err
	}
	if home.ID == away.ID {
		return models.NewConfigError("matchup", "team %s cannot play itself", home.ID)
	}
	return nil
}

// RunGame plays one game from a seed and returns its play log and statistics
func (r *Runner) RunGame(ctx context.Context, home, away *models.Team, conditions models.Conditions, seed int64) (*GameResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateMatchup(home, away); err != nil {
		return nil, err
	}
	g, err := r.engine.Simulate(home, away, conditions, seed)
	if err != nil {
		return nil, err
	}
	snap, err := g.Snapshot()
	if err != nil {
		return nil, err
	}
	snap.Seed = seed
	return &GameResult{
		RunID:      uuid.New().String(),
		Seed:       seed,
		Conditions: conditions,
		Final:      g.State(),
		Snapshot:   snap,
		Events:     g.Events(),
	}, nil
}

// RunBatch plays cfg.Trials independent games between the same two teams.
// Trials run on a worker pool; each one draws from its own RNG seeded with
// DeriveSeed(base, trial). A failed trial is recorded and its siblings carry
// on. Cancelling ctx stops the batch between trials and returns ctx.Err().
// Progress updates are sent without blocking and may be dropped.
func (r *Runner) RunBatch(ctx context.Context, home, away *models.Team, conditions models.Conditions, cfg Config, progress chan<- Progress) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateMatchup(home, away); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:     runID(cfg.RunID),
		Mode:      ModeBatch,
		HomeID:    home.ID,
		AwayID:    away.ID,
		Trials:    cfg.Trials,
		BaseSeed:  simulator.ResolveBaseSeed(cfg.SeedPolicy, cfg.BaseSeed),
		StartedAt: time.Now(),
	}
	log := r.log.WithFields(logger.RunFields(result.RunID, string(ModeBatch))).WithFields(logrus.Fields{
		"home":      home.ID,
		"away":      away.ID,
		"trials":    cfg.Trials,
		"base_seed": result.BaseSeed,
	})
	log.Info("Starting batch")

	reporter := newProgressReporter(result.RunID, cfg.Trials, result.StartedAt, progress)
	workers := cfg.workers(cfg.Trials)
	accs := make([]*stats.BatchAccumulator, workers)
	failures := make([][]TrialFailure, workers)

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < cfg.Trials; i++ {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		w := w // per-iteration copy; go directive is 1.21 (pre-1.22 loop semantics)
		accs[w] = stats.NewBatchAccumulator()
		g.Go(func() error {
			for trial := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				seed := simulator.DeriveSeed(result.BaseSeed, trial)
				snap, err := r.runTrial(home, away, conditions, trial, seed)
				if err != nil {
					if errors.Is(err, models.ErrInvalidConfiguration) {
						return err
					}
					logger.WithTrialContext(result.RunID, trial, seed).WithError(err).Warn("Trial failed")
					failures[w] = append(failures[w], TrialFailure{Trial: trial, Seed: seed, Error: err.Error()})
					reporter.fail()
					continue
				}
				accs[w].Add(snap)
				reporter.complete()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			log.WithField("completed", reporter.done()).Warn("Batch cancelled")
			return nil, ctx.Err()
		}
		log.WithError(err).Error("Batch aborted")
		return nil, err
	}

	merged := stats.NewBatchAccumulator()
	for w := range accs {
		merged.Merge(accs[w])
		result.Failures = append(result.Failures, failures[w]...)
	}
	sort.Slice(result.Failures, func(i, j int) bool { return result.Failures[i].Trial < result.Failures[j].Trial })

	result.Completed = merged.Len()
	result.Summary = merged.Summarize(cfg.percentiles())
	result.Snapshots = merged.Snapshots()
	result.Duration = time.Since(result.StartedAt)

	log.WithFields(logrus.Fields{
		"completed": result.Completed,
		"failed":    len(result.Failures),
		"duration":  result.Duration.String(),
	}).Info("Batch complete")
	return result, nil
}

func (r *Runner) runTrial(home, away *models.Team, conditions models.Conditions, trial int, seed int64) (stats.GameSnapshot, error) {
	g, err := r.engine.Simulate(home, away, conditions, seed)
	if err != nil {
		return stats.GameSnapshot{}, err
	}
	snap, err := g.Snapshot()
	if err != nil {
		return stats.GameSnapshot{}, err
	}
	snap.Trial = trial
	snap.Seed = seed
	return snap, nil
}

type progressReporter struct {
	runID     string
	total     int
	start     time.Time
	completed atomic.Int64
	failed    atomic.Int64
	mu        sync.Mutex
	ch        chan<- Progress
}

func newProgressReporter(runID string, total int, start time.Time, ch chan<- Progress) *progressReporter {
	return &progressReporter{runID: runID, total: total, start: start, ch: ch}
}

func (p *progressReporter) complete() {
	p.completed.Add(1)
	p.send()
}

func (p *progressReporter) fail() {
	p.failed.Add(1)
	p.send()
}

func (p *progressReporter) done() int {
	return int(p.completed.Load() + p.failed.Load())
}

func (p *progressReporter) send() {
	if p.ch == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	completed := int(p.completed.Load())
	failed := int(p.failed.Load())
	update := Progress{
		RunID:     p.runID,
		Total:     p.total,
		Completed: completed,
		Failed:    failed,
		StartTime: p.start,
	}
	if done := completed + failed; done > 0 {
		elapsed := time.Since(p.start)
		perTrial := elapsed / time.Duration(done)
		update.EstimatedTimeRemaining = perTrial * time.Duration(p.total-done)
	}

	select {
	case p.ch <- update:
	default:
		// don't block the workers on a slow listener
	}
}
