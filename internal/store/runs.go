package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/stitts-dev/gridiron-sim/pkg/utils"
)

// Run statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is a persisted simulation run. The result is stored as a JSON document so
// the batch and season shapes share one table.
type Run struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Mode        string     `gorm:"not null;index" json:"mode"`
	Status      string     `gorm:"not null;index" json:"status"`
	HomeID      string     `json:"home_id,omitempty"`
	AwayID      string     `json:"away_id,omitempty"`
	Trials      int        `json:"trials"`
	Completed   int        `json:"completed"`
	Failed      int        `json:"failed"`
	BaseSeed    int64      `json:"base_seed"`
	Request     string     `gorm:"type:text" json:"-"`
	Result      string     `gorm:"type:text" json:"-"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TableName specifies the table name for GORM
func (Run) TableName() string {
	return "simulation_runs"
}

// DecodeResult unmarshals the stored result document
func (r *Run) DecodeResult(dest interface{}) error {
	if r.Result == "" {
		return fmt.Errorf("run %s has no result: %w", r.ID, utils.ErrNotFound)
	}
	return json.Unmarshal([]byte(r.Result), dest)
}

// RunStore persists runs with gorm
type RunStore struct {
	db *gorm.DB
}

func NewRunStore(db *gorm.DB) *RunStore {
	return &RunStore{db: db}
}

// Migrate creates or updates the runs table
func (s *RunStore) Migrate() error {
	return s.db.AutoMigrate(&Run{})
}

// Start records a run that has begun
func (s *RunStore) Start(run *Run, request interface{}) error {
	if request != nil {
		data, err := json.Marshal(request)
		if err != nil {
			return fmt.Errorf("failed to marshal run request: %w", err)
		}
		run.Request = string(data)
	}
	run.Status = StatusRunning
	if err := s.db.Create(run).Error; err != nil {
		return fmt.Errorf("failed to create run %s: %w", run.ID, err)
	}
	return nil
}

// Complete stores the result of a finished run
func (s *RunStore) Complete(id string, completed, failed int, result interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal run result: %w", err)
	}
	now := time.Now().UTC()
	return s.update(id, map[string]interface{}{
		"status":       StatusCompleted,
		"completed":    completed,
		"failed":       failed,
		"result":       string(data),
		"completed_at": &now,
	})
}

// Fail marks a run as failed with the error that stopped it
func (s *RunStore) Fail(id string, runErr error) error {
	now := time.Now().UTC()
	return s.update(id, map[string]interface{}{
		"status":       StatusFailed,
		"error":        runErr.Error(),
		"completed_at": &now,
	})
}

func (s *RunStore) update(id string, fields map[string]interface{}) error {
	res := s.db.Model(&Run{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update run %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("run %s: %w", id, utils.ErrNotFound)
	}
	return nil
}

// Get loads one run
func (s *RunStore) Get(id string) (*Run, error) {
	var run Run
	if err := s.db.First(&run, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run %s: %w", id, utils.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return &run, nil
}

// List returns runs newest first, optionally filtered by mode, with the total count
func (s *RunStore) List(mode string, limit, offset int) ([]Run, int64, error) {
	filtered := func() *gorm.DB {
		query := s.db.Model(&Run{})
		if mode != "" {
			query = query.Where("mode = ?", mode)
		}
		return query
	}
	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count runs: %w", err)
	}
	var runs []Run
	if err := filtered().Omit("result", "request").Order("created_at DESC").Limit(limit).Offset(offset).Find(&runs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, total, nil
}

// DeleteOlderThan removes finished runs created before cutoff
func (s *RunStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res := s.db.Where("created_at < ? AND status <> ?", cutoff, StatusRunning).Delete(&Run{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", res.Error)
	}
	return res.RowsAffected, nil
}
