package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/gridiron-sim/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, time.Minute)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, rl.Allow("10.0.0.2"), "other clients have their own bucket")
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute)
	rl.Allow("a")
	rl.Allow("b")

	assert.Equal(t, 2, rl.Sweep(time.Now()))
	assert.Equal(t, 0, rl.Sweep(time.Now().Add(2*time.Minute)))
}

func TestRateLimiterMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(NewRateLimiter(0.001, 1, time.Minute).Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "RATE_LIMITED", body.Error.Code)
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger.InitLogger("info", false)
	logger.SetOutput(&buf)

	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/runs/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs/abc?x=1", nil))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "Client Error", entry["msg"])
	assert.Equal(t, logrus.WarnLevel.String(), entry["level"])
	assert.Equal(t, "abc", entry["run_id"])
	assert.Equal(t, "x=1", entry["query"])
	assert.EqualValues(t, 404, entry["status"])
}
