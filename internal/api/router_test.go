package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/gridiron-sim/internal/api/handlers"
	"github.com/stitts-dev/gridiron-sim/internal/api/middleware"
	"github.com/stitts-dev/gridiron-sim/internal/batch"
	"github.com/stitts-dev/gridiron-sim/internal/provider"
	"github.com/stitts-dev/gridiron-sim/internal/simulator"
	"github.com/stitts-dev/gridiron-sim/internal/store"
	"github.com/stitts-dev/gridiron-sim/internal/websocket"
	"github.com/stitts-dev/gridiron-sim/pkg/config"
	"github.com/stitts-dev/gridiron-sim/pkg/database"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Page       int   `json:"page"`
		PerPage    int   `json:"per_page"`
		Total      int64 `json:"total"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta"`
}

type testServer struct {
	router *gin.Engine
	sim    *handlers.SimulationHandler
	hub    *websocket.ProgressHub
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)

	db, err := database.NewConnection("sqlite://:memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	runs := store.NewRunStore(db.DB)
	require.NoError(t, runs.Migrate())

	model := provider.LeagueDefaults()
	engine, err := simulator.NewDefaultEngine(simulator.DefaultSettings(), model.Tendencies, model.Outcomes)
	require.NoError(t, err)
	teams, err := provider.DefaultTeams(4, rand.New(rand.NewSource(5)))
	require.NoError(t, err)

	cfg := &config.Config{
		SimTrials:     12,
		SimWorkers:    2,
		SimSeed:       42,
		SimSeedPolicy: "fixed",
		SimMaxTrials:  50,
	}

	ctx, cancel := context.WithCancel(context.Background())
	hub := websocket.NewProgressHub(log)
	go hub.Run(ctx)

	sim := handlers.NewSimulationHandler(ctx, batch.NewRunner(engine, logrus.NewEntry(log)), teams, runs, nil, hub, cfg, log)
	health := handlers.NewHealthHandler(db, nil, hub, log)
	t.Cleanup(func() {
		sim.Wait()
		cancel()
	})

	router := gin.New()
	SetupRoutes(router, sim, health, hub, middleware.NewRateLimiter(1000, 1000, time.Minute))
	return &testServer{router: router, sim: sim, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func teamIDs(t *testing.T, s *testServer) []string {
	t.Helper()
	code, env := s.do(t, http.MethodGet, "/api/v1/teams", nil)
	require.Equal(t, http.StatusOK, code)
	var teams []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &teams))
	ids := make([]string, len(teams))
	for i, team := range teams {
		ids[i] = team.ID
	}
	return ids
}

type runView struct {
	Run struct {
		ID        string `json:"id"`
		Mode      string `json:"mode"`
		Status    string `json:"status"`
		Trials    int    `json:"trials"`
		Completed int    `json:"completed"`
		BaseSeed  int64  `json:"base_seed"`
	} `json:"run"`
	Result json.RawMessage `json:"result"`
}

func getRun(t *testing.T, s *testServer, id string) runView {
	t.Helper()
	code, env := s.do(t, http.MethodGet, "/api/v1/runs/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	var view runView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	return view
}

func TestHealthAndReady(t *testing.T) {
	s := setupServer(t)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var health handlers.HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "ok", health.Checks["database"])
	assert.Equal(t, "disabled", health.Checks["cache"])

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSimulateGame(t *testing.T) {
	s := setupServer(t)
	ids := teamIDs(t, s)
	require.Len(t, ids, 4)

	req := gin.H{"home_id": ids[0], "away_id": ids[1], "seed": 7, "scoring": "ppr"}
	code, env := s.do(t, http.MethodPost, "/api/v1/simulate/game", req)
	require.Equal(t, http.StatusOK, code)

	var game struct {
		RunID    string `json:"run_id"`
		Seed     int64  `json:"seed"`
		Scoring  string `json:"scoring"`
		Snapshot struct {
			HomeScore int `json:"home_score"`
			AwayScore int `json:"away_score"`
			Plays     int `json:"plays"`
		} `json:"snapshot"`
		Events  []json.RawMessage `json:"events"`
		Fantasy []json.RawMessage `json:"fantasy"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &game))
	assert.Equal(t, int64(7), game.Seed)
	assert.Equal(t, "ppr", game.Scoring)
	assert.Positive(t, game.Snapshot.Plays)
	assert.NotEmpty(t, game.Events)
	assert.NotEmpty(t, game.Fantasy)

	// the same seed replays the same game
	_, again := s.do(t, http.MethodPost, "/api/v1/simulate/game", req)
	var replay struct {
		Snapshot struct {
			HomeScore int `json:"home_score"`
			AwayScore int `json:"away_score"`
		} `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(again.Data, &replay))
	assert.Equal(t, game.Snapshot.HomeScore, replay.Snapshot.HomeScore)
	assert.Equal(t, game.Snapshot.AwayScore, replay.Snapshot.AwayScore)

	view := getRun(t, s, game.RunID)
	assert.Equal(t, "game", view.Run.Mode)
	assert.Equal(t, store.StatusCompleted, view.Run.Status)
	assert.Equal(t, 1, view.Run.Completed)
	assert.NotEmpty(t, view.Result)
}

type batchView struct {
	RunID     string            `json:"run_id"`
	Trials    int               `json:"trials"`
	Completed int               `json:"completed"`
	BaseSeed  int64             `json:"base_seed"`
	Failures  []json.RawMessage `json:"failures"`
	Summary   struct {
		Games int               `json:"games"`
		Teams []json.RawMessage `json:"teams"`
	} `json:"summary"`
	Projections []struct {
		PlayerID string  `json:"player_id"`
		Mean     float64 `json:"mean"`
	} `json:"projections"`
}

func TestSimulateBatch_Wait(t *testing.T) {
	s := setupServer(t)
	ids := teamIDs(t, s)

	req := gin.H{"home_id": ids[0], "away_id": ids[1], "trials": 10, "seed": 3, "wait": true}
	code, env := s.do(t, http.MethodPost, "/api/v1/simulate/batch", req)
	require.Equal(t, http.StatusOK, code)

	var first batchView
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.Equal(t, 10, first.Trials)
	assert.Equal(t, int64(3), first.BaseSeed)
	assert.Equal(t, 10, first.Completed+len(first.Failures))
	assert.Equal(t, first.Completed, first.Summary.Games)
	assert.Len(t, first.Summary.Teams, 2)
	require.NotEmpty(t, first.Projections)
	for i := 1; i < len(first.Projections); i++ {
		assert.GreaterOrEqual(t, first.Projections[i-1].Mean, first.Projections[i].Mean)
	}

	_, env = s.do(t, http.MethodPost, "/api/v1/simulate/batch", req)
	var second batchView
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Summary, second.Summary, "a fixed seed reproduces the batch")
	assert.Equal(t, first.Projections, second.Projections)

	view := getRun(t, s, first.RunID)
	assert.Equal(t, "batch", view.Run.Mode)
	assert.Equal(t, store.StatusCompleted, view.Run.Status)
	assert.Equal(t, first.Completed, view.Run.Completed)
}

func TestSimulateBatch_Background(t *testing.T) {
	s := setupServer(t)
	ids := teamIDs(t, s)

	code, env := s.do(t, http.MethodPost, "/api/v1/simulate/batch", gin.H{"home_id": ids[2], "away_id": ids[3]})
	require.Equal(t, http.StatusAccepted, code)

	var accepted handlers.RunAccepted
	require.NoError(t, json.Unmarshal(env.Data, &accepted))
	assert.Equal(t, batch.ModeBatch, accepted.Mode)
	assert.Equal(t, 12, accepted.Total, "trials default to SIM_TRIALS")
	assert.Equal(t, "/ws/runs/"+accepted.RunID, accepted.ProgressURL)

	s.sim.Wait()
	view := getRun(t, s, accepted.RunID)
	assert.Equal(t, store.StatusCompleted, view.Run.Status)
	assert.Equal(t, int64(42), view.Run.BaseSeed)

	var result batchView
	require.NoError(t, json.Unmarshal(view.Result, &result))
	assert.Equal(t, 12, result.Trials)
}

func TestSimulateSeason(t *testing.T) {
	s := setupServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/simulate/season", gin.H{"weeks": 3, "seed": 9, "random_conditions": true, "wait": true})
	require.Equal(t, http.StatusOK, code)

	var season struct {
		Schedule  []batch.Matchup   `json:"schedule"`
		Games     []json.RawMessage `json:"games"`
		Failures  []json.RawMessage `json:"failures"`
		Standings []struct {
			TeamID string `json:"team_id"`
			Played int    `json:"played"`
		} `json:"standings"`
		Players     []json.RawMessage `json:"players"`
		Projections []json.RawMessage `json:"projections"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &season))
	assert.Len(t, season.Schedule, 6)
	assert.Equal(t, 6, len(season.Games)+len(season.Failures))
	require.Len(t, season.Standings, 4)
	assert.NotEmpty(t, season.Players)
	assert.NotEmpty(t, season.Projections)

	played := 0
	for _, row := range season.Standings {
		played += row.Played
	}
	assert.Equal(t, 2*len(season.Games), played)
}

func TestSimulate_Errors(t *testing.T) {
	s := setupServer(t)
	ids := teamIDs(t, s)

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"malformed json", "/api/v1/simulate/batch", "{", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing teams", "/api/v1/simulate/game", gin.H{}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown team", "/api/v1/simulate/game", gin.H{"home_id": ids[0], "away_id": "nope"}, http.StatusNotFound, "NOT_FOUND"},
		{"self matchup", "/api/v1/simulate/batch", gin.H{"home_id": ids[0], "away_id": ids[0]}, http.StatusBadRequest, "INVALID_CONFIGURATION"},
		{"too many trials", "/api/v1/simulate/batch", gin.H{"home_id": ids[0], "away_id": ids[1], "trials": 51}, http.StatusBadRequest, "INVALID_CONFIGURATION"},
		{"unknown scoring", "/api/v1/simulate/batch", gin.H{"home_id": ids[0], "away_id": ids[1], "scoring": "superflex"}, http.StatusBadRequest, "INVALID_CONFIGURATION"},
		{"unknown seed policy", "/api/v1/simulate/batch", gin.H{"home_id": ids[0], "away_id": ids[1], "seed_policy": "lucky"}, http.StatusBadRequest, "INVALID_CONFIGURATION"},
		{"season unknown team", "/api/v1/simulate/season", gin.H{"team_ids": []string{ids[0], "ghost"}}, http.StatusNotFound, "NOT_FOUND"},
		{"season negative weeks", "/api/v1/simulate/season", gin.H{"weeks": -1}, http.StatusBadRequest, "INVALID_CONFIGURATION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := s.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, code)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}

	code, env := s.do(t, http.MethodGet, "/api/v1/runs/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestListRuns(t *testing.T) {
	s := setupServer(t)
	ids := teamIDs(t, s)

	for i := 0; i < 3; i++ {
		code, _ := s.do(t, http.MethodPost, "/api/v1/simulate/game", gin.H{"home_id": ids[0], "away_id": ids[1], "seed": i})
		require.Equal(t, http.StatusOK, code)
	}
	code, _ := s.do(t, http.MethodPost, "/api/v1/simulate/batch", gin.H{"home_id": ids[0], "away_id": ids[1], "trials": 2, "wait": true})
	require.Equal(t, http.StatusOK, code)

	code, env := s.do(t, http.MethodGet, "/api/v1/runs?mode=game&per_page=2", nil)
	require.Equal(t, http.StatusOK, code)
	var runs []store.Run
	require.NoError(t, json.Unmarshal(env.Data, &runs))
	assert.Len(t, runs, 2)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(3), env.Meta.Total)
	assert.Equal(t, 2, env.Meta.TotalPages)

	code, env = s.do(t, http.MethodGet, "/api/v1/runs", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(4), env.Meta.Total)

	code, _ = s.do(t, http.MethodGet, "/api/v1/runs?mode=tournament", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/runs?per_page=500", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
