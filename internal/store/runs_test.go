package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stitts-dev/gridiron-sim/pkg/utils"
)

func setupTestStore(t *testing.T) *RunStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	s := NewRunStore(db)
	require.NoError(t, s.Migrate())
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := setupTestStore(t)

	run := &Run{ID: "run-1", Mode: "batch", HomeID: "h", AwayID: "a", Trials: 10, BaseSeed: 42}
	require.NoError(t, s.Start(run, map[string]int{"trials": 10}))

	got, err := s.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.JSONEq(t, `{"trials":10}`, got.Request)

	var empty map[string]int
	assert.True(t, errors.Is(got.DecodeResult(&empty), utils.ErrNotFound))

	require.NoError(t, s.Complete("run-1", 9, 1, map[string]int{"games": 9}))
	got, err = s.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 9, got.Completed)
	assert.Equal(t, 1, got.Failed)
	require.NotNil(t, got.CompletedAt)

	var result map[string]int
	require.NoError(t, got.DecodeResult(&result))
	assert.Equal(t, 9, result["games"])
}

func TestRunFailAndMissing(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.Start(&Run{ID: "run-2", Mode: "season"}, nil))
	require.NoError(t, s.Fail("run-2", errors.New("invalid configuration: teams: no teams defined")))

	got, err := s.Get("run-2")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.Error, "no teams")

	_, err = s.Get("nope")
	assert.True(t, errors.Is(err, utils.ErrNotFound))
	assert.True(t, errors.Is(s.Complete("nope", 0, 0, nil), utils.ErrNotFound))
}

func TestListAndPrune(t *testing.T) {
	s := setupTestStore(t)
	old := time.Now().UTC().Add(-72 * time.Hour)

	require.NoError(t, s.Start(&Run{ID: "old-batch", Mode: "batch", CreatedAt: old}, nil))
	require.NoError(t, s.Complete("old-batch", 1, 0, map[string]int{}))
	require.NoError(t, s.Start(&Run{ID: "old-running", Mode: "batch", CreatedAt: old}, nil))
	require.NoError(t, s.Start(&Run{ID: "new-season", Mode: "season"}, nil))

	runs, total, err := s.List("", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, runs, 3)
	assert.Equal(t, "new-season", runs[0].ID)
	assert.Empty(t, runs[0].Result)

	runs, total, err = s.List("batch", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, runs, 1)

	deleted, err := s.DeleteOlderThan(time.Now().UTC().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = s.Get("old-batch")
	assert.True(t, errors.Is(err, utils.ErrNotFound))
	_, err = s.Get("old-running")
	assert.NoError(t, err)
}
