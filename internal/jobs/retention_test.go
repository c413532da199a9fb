package jobs

import (
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakePruner struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakePruner) DeleteOlderThan(cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

func TestRunPruner(t *testing.T) {
	fake := &fakePruner{deleted: 4}
	p := NewRunPruner(fake, 30, quietLogger())
	now := time.Date(2024, 9, 30, 3, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	deleted, err := p.Prune()
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
	assert.Equal(t, time.Date(2024, 8, 31, 3, 0, 0, 0, time.UTC), fake.cutoff)

	fake.err = errors.New("disk full")
	_, err = p.Prune()
	assert.Error(t, err)
	p.Run()
}

func TestSchedulerRunsJobs(t *testing.T) {
	s := NewScheduler(quietLogger())
	var calls atomic.Int32
	require.NoError(t, s.Schedule("tick", "@every 1s", func() { calls.Add(1) }))
	assert.Error(t, s.Schedule("tick", "@every 1s", func() {}), "names are unique")

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	status := s.Status()
	assert.Equal(t, true, status["is_running"])
	assert.Contains(t, status["next_runs"], "tick")
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(quietLogger())
	assert.Error(t, s.Schedule("prune", "every tuesday", func() {}))
	assert.Error(t, s.Schedule("prune", "61 * * * *", func() {}))
}
