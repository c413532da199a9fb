package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name  string
		level string
		dev   bool
		want  logrus.Level
	}{
		{"explicit debug", "debug", false, logrus.DebugLevel},
		{"upper case", "WARN", false, logrus.WarnLevel},
		{"invalid falls back to info", "chatty", true, logrus.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := InitLogger(tt.level, tt.dev)
			assert.Equal(t, tt.want, log.GetLevel())
			assert.Same(t, log, GetLogger())
		})
	}
}

func TestInitLogger_ProductionIsJSON(t *testing.T) {
	InitLogger("info", false)
	var buf bytes.Buffer
	SetOutput(&buf)

	WithTrialContext("run-1", 7, 42).Warn("trial failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, float64(7), entry["trial"])
	assert.Equal(t, float64(42), entry["seed"])
	assert.Equal(t, "warning", entry["level"])
}

func TestRunFields(t *testing.T) {
	InitLogger("info", false)
	entry := GetLogger().WithFields(RunFields("abc", "batch"))
	assert.Equal(t, "abc", entry.Data["run_id"])
	assert.Equal(t, "batch", entry.Data["mode"])
	assert.Equal(t, "gridiron-sim", WithService("gridiron-sim").Data["service"])
}
