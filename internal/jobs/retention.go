package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs the service's housekeeping jobs on cron schedules
type Scheduler struct {
	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
	jobs      map[string]cron.EntryID
	logger    *logrus.Logger
}

func NewScheduler(logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		jobs:   make(map[string]cron.EntryID),
		logger: logger,
	}
}

// Schedule registers fn under name with a standard five-field cron spec or a
// descriptor such as "@every 10m"
func (s *Scheduler) Schedule(name, spec string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("job %s is already scheduled", name)
	}
	id, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		fn()
		s.logger.WithFields(logrus.Fields{
			"job":      name,
			"duration": time.Since(start).String(),
		}).Debug("Scheduled job finished")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	s.jobs[name] = id
	return nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return
	}
	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobs)).Info("Job scheduler started")
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.isRunning = false
	s.logger.Info("Job scheduler stopped")
}

// Status returns when each job runs next
func (s *Scheduler) Status() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]time.Time, len(s.jobs))
	for name, id := range s.jobs {
		next[name] = s.cron.Entry(id).Next
	}
	return map[string]interface{}{
		"is_running": s.isRunning,
		"next_runs":  next,
	}
}

// Pruner deletes finished runs created before a cutoff
type Pruner interface {
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// RunPruner removes stored runs older than the retention window
type RunPruner struct {
	runs      Pruner
	retention time.Duration
	logger    *logrus.Logger
	now       func() time.Time
}

func NewRunPruner(runs Pruner, retentionDays int, logger *logrus.Logger) *RunPruner {
	return &RunPruner{
		runs:      runs,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    logger,
		now:       time.Now,
	}
}

// Prune deletes runs past the window and returns how many went
func (p *RunPruner) Prune() (int64, error) {
	cutoff := p.now().UTC().Add(-p.retention)
	deleted, err := p.runs.DeleteOlderThan(cutoff)
	if err != nil {
		return 0, err
	}
	p.logger.WithFields(logrus.Fields{
		"deleted": deleted,
		"cutoff":  cutoff,
	}).Info("Pruned old simulation runs")
	return deleted, nil
}

// Run is the cron entry point
func (p *RunPruner) Run() {
	if _, err := p.Prune(); err != nil {
		p.logger.WithError(err).Error("Failed to prune simulation runs")
	}
}
