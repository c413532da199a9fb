package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gridiron-sim/internal/batch"
	"github.com/stitts-dev/gridiron-sim/internal/fantasy"
	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/internal/simulator"
	"github.com/stitts-dev/gridiron-sim/internal/stats"
	"github.com/stitts-dev/gridiron-sim/internal/store"
	"github.com/stitts-dev/gridiron-sim/internal/websocket"
	"github.com/stitts-dev/gridiron-sim/pkg/cache"
	"github.com/stitts-dev/gridiron-sim/pkg/config"
	"github.com/stitts-dev/gridiron-sim/pkg/logger"
	"github.com/stitts-dev/gridiron-sim/pkg/utils"
)

// SimulationHandler serves game, batch and season runs against the loaded rosters
type SimulationHandler struct {
	runner *batch.Runner
	teams  []*models.Team
	byID   map[string]*models.Team
	runs   *store.RunStore
	cache  *cache.ResultCache
	wsHub  *websocket.ProgressHub
	config *config.Config
	logger *logrus.Logger

	// background runs stop when ctx is cancelled
	ctx     context.Context
	running sync.WaitGroup
}

// NewSimulationHandler creates a new simulation handler. cache and wsHub may be nil.
func NewSimulationHandler(
	ctx context.Context,
	runner *batch.Runner,
	teams []*models.Team,
	runs *store.RunStore,
	cache *cache.ResultCache,
	wsHub *websocket.ProgressHub,
	config *config.Config,
	logger *logrus.Logger,
) *SimulationHandler {
	byID := make(map[string]*models.Team, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}
	return &SimulationHandler{
		runner: runner,
		teams:  teams,
		byID:   byID,
		runs:   runs,
		cache:  cache,
		wsHub:  wsHub,
		config: config,
		logger: logger,
		ctx:    ctx,
	}
}

// Wait blocks until every background run has finished
func (h *SimulationHandler) Wait() {
	h.running.Wait()
}

// GameRequest asks for one simulated game
type GameRequest struct {
	HomeID     string             `json:"home_id" binding:"required"`
	AwayID     string             `json:"away_id" binding:"required"`
	Seed       *int64             `json:"seed,omitempty"`
	Conditions *models.Conditions `json:"conditions,omitempty"`
	Scoring    string             `json:"scoring,omitempty"`
}

// BatchRequest asks for a Monte-Carlo batch between two teams
type BatchRequest struct {
	HomeID     string             `json:"home_id" binding:"required"`
	AwayID     string             `json:"away_id" binding:"required"`
	Trials     int                `json:"trials"`
	Seed       *int64             `json:"seed,omitempty"`
	SeedPolicy string             `json:"seed_policy,omitempty"`
	Conditions *models.Conditions `json:"conditions,omitempty"`
	Scoring    string             `json:"scoring,omitempty"`
	Wait       bool               `json:"wait,omitempty"`
}

// SeasonRequest asks for a season. No team_ids means every loaded team; no
// schedule means a generated one of weeks weeks (one full cycle when weeks is 0).
type SeasonRequest struct {
	TeamIDs          []string           `json:"team_ids,omitempty"`
	Weeks            int                `json:"weeks,omitempty"`
	Schedule         []batch.Matchup    `json:"schedule,omitempty"`
	Seed             *int64             `json:"seed,omitempty"`
	SeedPolicy       string             `json:"seed_policy,omitempty"`
	RandomConditions bool               `json:"random_conditions,omitempty"`
	Conditions       *models.Conditions `json:"conditions,omitempty"`
	Scoring          string             `json:"scoring,omitempty"`
	Wait             bool               `json:"wait,omitempty"`
}

// GameResponse is a single game with fantasy points for its skill players
type GameResponse struct {
	*batch.GameResult
	Scoring     fantasy.ScoringSystem `json:"scoring"`
	Projections []fantasy.Projection  `json:"fantasy"`
}

// BatchResponse is a batch summary with per-player fantasy projections
type BatchResponse struct {
	*batch.Result
	Scoring     fantasy.ScoringSystem `json:"scoring"`
	Projections []fantasy.Projection  `json:"projections"`
}

// SeasonResponse is a season table with per-player fantasy projections
type SeasonResponse struct {
	*batch.SeasonResult
	Scoring     fantasy.ScoringSystem `json:"scoring"`
	Projections []fantasy.Projection  `json:"projections"`
}

// RunAccepted is returned when a run continues in the background
type RunAccepted struct {
	RunID       string     `json:"run_id"`
	Mode        batch.Mode `json:"mode"`
	Status      string     `json:"status"`
	Total       int        `json:"total"`
	ProgressURL string     `json:"progress_url"`
	ResultURL   string     `json:"result_url"`
}

// RunResponse is a stored run with its result document
type RunResponse struct {
	Run    *store.Run      `json:"run"`
	Result json.RawMessage `json:"result,omitempty"`
}

type runOutcome struct {
	response  interface{}
	completed int
	failed    int
}

type runJob func(ctx context.Context, progress chan<- batch.Progress) (runOutcome, error)

// ListTeams returns the loaded rosters
func (h *SimulationHandler) ListTeams(c *gin.Context) {
	utils.SendSuccess(c, h.teams)
}

// SimulateGame plays one game synchronously
func (h *SimulationHandler) SimulateGame(c *gin.Context) {
	var req GameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request format", err.Error())
		return
	}
	scoring, err := fantasy.ParseScoringSystem(req.Scoring)
	if err != nil {
		utils.SendFailure(c, err)
		return
	}
	home, away, err := h.matchup(req.HomeID, req.AwayID)
	if err != nil {
		utils.SendFailure(c, err)
		return
	}

	policy, err := h.seedPolicy("", req.Seed)
	if err != nil {
		utils.SendFailure(c, err)
		return
	}
	fixed := policy == simulator.SeedFixed
	seed := h.baseSeed(policy, req.Seed)
	req.Seed = &seed
	conditions := conditionsOrDefault(req.Conditions)

	key := h.cacheKey("game", fixed, req)
	if h.serveCached(c, key) {
		return
	}

	runID := uuid.New().String()
	run := &store.Run{ID: runID, Mode: string(batch.ModeGame), HomeID: home.ID, AwayID: away.ID, Trials: 1, BaseSeed: seed}
	if err := h.runs.Start(run, req); err != nil {
		utils.SendFailure(c, err)
		return
	}

	job := func(ctx context.Context, _ chan<- batch.Progress) (runOutcome, error) {
		res, err := h.runner.RunGame(ctx, home, away, conditions, seed)
		if err != nil {
			return runOutcome{}, err
		}
		res.RunID = runID
		projections, err := fantasy.Project([]stats.GameSnapshot{res.Snapshot}, scoring, nil)
		if err != nil {
			return runOutcome{}, err
		}
		return runOutcome{response: GameResponse{GameResult: res, Scoring: scoring, Projections: projections}, completed: 1}, nil
	}
	out, err := h.execute(c.Request.Context(), runID, batch.ModeGame, key, job)
	if err != nil {
		utils.SendFailure(c, err)
		return
	}
	utils.SendSuccess(c, out)
}

// SimulateBatch runs a Monte-Carlo batch. The run continues in the background
// unless the request sets wait.
func (h *SimulationHandler) SimulateBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request format", err.Error())
		return
	}
	scoring, err := fantasy.ParseScoringSystem(req.Scoring)
	if err != nil {
		utils.SendFailure(c, err)
		return
	}
	home, away, err := h.matchup(req.HomeID, req.AwayID)
	if err != nil {
		utils.SendFailure(c, err)
		return
	}
	cfg, err := h.config.BatchConfig(req.Trials)
	if err != nil {
		utils.SendFailure(c, err)
		return
	}

	policy, err := h.seedPolicy(req.SeedPolicy, req.Seed)
	if err != nil {
		utils.SendFailure(c, err)
		return
	}
	// the base seed is resolved here so the stored run can be replayed
	fixed := policy == simulator.SeedFixed
	cfg.BaseSeed = h.baseSeed(policy, req.Seed)
	cfg.SeedPolicy = simulator.SeedFixed
	conditions := conditionsOrDefault(req.Conditions)

	wait := req.Wait
	req.Wait = false
	req.Trials = cfg.Trials
	req.Seed = &cfg.BaseSeed
	req.SeedPolicy = string(policy)
	key := h.cacheKey("batch", fixed, req)
	if h.serveCached(c, key) {
		return
	}

	cfg.RunID = uuid.New().String()
	run := &store.Run{ID: cfg.RunID, Mode: string(batch.ModeBatch), HomeID: home.ID, AwayID: away.ID, Trials: cfg.Trials, BaseSeed: cfg.BaseSeed}
	if err := h.runs.Start(run, req); err != nil {
		utils.SendFailure(c, err)
		return
	}

	job := func(ctx context.Context, progress chan<- batch.Progress) (runOutcome, error) {
		res, err := h.runner.RunBatch(ctx, home, away, conditions, cfg, progress)
		if err != nil {
			return runOutcome{}, err
		}
		projections, err := fantasy.Project(res.Snapshots, scoring, cfg.Percentiles)
		if err != nil {
			return runOutcome{}, err
		}
		return runOutcome{
			response:  BatchResponse{Result: res, Scoring: scoring, Projections: projections},
			completed: res.Completed,
			failed:    len(res.Failures),
		}, nil
	}
	h.dispatch(c, wait, cfg.RunID, batch.ModeBatch, cfg.Trials, key, job)
}

// SimulateSeason plays a season. The run continues in the background unless
// the request sets wait.
func (h *SimulationHandler) SimulateSeason(c *gin.Context) {
	var req SeasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request format", err.Error())
		return
	}
	scoring, err := fantasy.ParseScoringSystem(req.Scoring)
	if err != nil {
		utils.SendFailure(c, err)
		return
	}
	teams, err := h.seasonTeams(req.TeamIDs)
	if err != nil {
		utils.SendFailure(c, err)
		return
	}
	schedule := req.Schedule
	if len(schedule) == 0 {
		weeks := req.Weeks
		if weeks == 0 {
			weeks = len(teams) - 1 + len(teams)%2
		}
		ids := make([]string, len(teams))
		for i, t := range teams {
			ids[i] = t.ID
		}
		if schedule, err = batch.GenerateSchedule(ids, weeks); err != nil {
			utils.SendFailure(c, err)
			return
		}
	}
	percentiles, err := h.config.Percentiles()
	if err != nil {
		utils.SendFailure(c, err)
		return
	}

	policy, err := h.seedPolicy(req.SeedPolicy, req.Seed)
	if err != nil {
		utils.SendFailure(c, err)
		return
	}
	fixed := policy == simulator.SeedFixed
	cfg := batch.SeasonConfig{
		Schedule:         schedule,
		Workers:          h.config.SimWorkers,
		BaseSeed:         h.baseSeed(policy, req.Seed),
		SeedPolicy:       simulator.SeedFixed,
		RandomConditions: req.RandomConditions,
		Conditions:       req.Conditions,
	}

	wait := req.Wait
	req.Wait = false
	req.Schedule = schedule
	req.Seed = &cfg.BaseSeed
	req.SeedPolicy = string(policy)
	key := h.cacheKey("season", fixed, req)
	if h.serveCached(c, key) {
		return
	}

	cfg.RunID = uuid.New().String()
	run := &store.Run{ID: cfg.RunID, Mode: string(batch.ModeSeason), Trials: len(schedule), BaseSeed: cfg.BaseSeed}
	if err := h.runs.Start(run, req); err != nil {
		utils.SendFailure(c, err)
		return
	}

	job := func(ctx context.Context, progress chan<- batch.Progress) (runOutcome, error) {
		res, err := h.runner.RunSeason(ctx, teams, cfg, progress)
		if err != nil {
			return runOutcome{}, err
		}
		projections, err := fantasy.Project(res.Snapshots, scoring, percentiles)
		if err != nil {
			return runOutcome{}, err
		}
		return runOutcome{
			response:  SeasonResponse{SeasonResult: res, Scoring: scoring, Projections: projections},
			completed: len(res.Games),
			failed:    len(res.Failures),
		}, nil
	}
	h.dispatch(c, wait, cfg.RunID, batch.ModeSeason, len(schedule), key, job)
}

// GetRun returns a stored run and, once finished, its result
func (h *SimulationHandler) GetRun(c *gin.Context) {
	run, err := h.runs.Get(c.Param("id"))
	if err != nil {
		utils.SendFailure(c, err)
		return
	}
	resp := RunResponse{Run: run}
	if run.Result != "" {
		resp.Result = json.RawMessage(run.Result)
	}
	utils.SendSuccess(c, resp)
}

// ListRuns pages through stored runs, newest first
func (h *SimulationHandler) ListRuns(c *gin.Context) {
	mode := c.Query("mode")
	switch batch.Mode(mode) {
	case "", batch.ModeGame, batch.ModeBatch, batch.ModeSeason:
	default:
		utils.SendValidationError(c, "Invalid mode", fmt.Sprintf("unknown mode %q", mode))
		return
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		utils.SendValidationError(c, "Invalid page", c.Query("page"))
		return
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if err != nil || perPage < 1 || perPage > 100 {
		utils.SendValidationError(c, "Invalid per_page", "per_page must be between 1 and 100")
		return
	}

	runs, total, err := h.runs.List(mode, perPage, (page-1)*perPage)
	if err != nil {
		utils.SendFailure(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, runs, &utils.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: int((total + int64(perPage) - 1) / int64(perPage)),
	})
}

func (h *SimulationHandler) dispatch(c *gin.Context, wait bool, runID string, mode batch.Mode, total int, key string, job runJob) {
	if wait {
		out, err := h.execute(c.Request.Context(), runID, mode, key, job)
		if err != nil {
			utils.SendFailure(c, err)
			return
		}
		utils.SendSuccess(c, out)
		return
	}

	h.running.Add(1)
	go func() {
		defer h.running.Done()
		if _, err := h.execute(h.ctx, runID, mode, key, job); err != nil {
			h.logger.WithFields(logger.RunFields(runID, string(mode))).WithError(err).Warn("Background run failed")
		}
	}()

	utils.SendAccepted(c, RunAccepted{
		RunID:       runID,
		Mode:        mode,
		Status:      store.StatusRunning,
		Total:       total,
		ProgressURL: "/ws/runs/" + runID,
		ResultURL:   "/api/v1/runs/" + runID,
	})
}

// execute runs a job, streams its progress to the hub and records the outcome
func (h *SimulationHandler) execute(ctx context.Context, runID string, mode batch.Mode, key string, job runJob) (interface{}, error) {
	progress := make(chan batch.Progress, 64)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		if h.wsHub == nil {
			for range progress {
			}
			return
		}
		h.wsHub.Forward(runID, progress)
	}()

	out, err := job(ctx, progress)
	close(progress)
	<-forwarded

	log := h.logger.WithFields(logger.RunFields(runID, string(mode)))
	if err != nil {
		if ferr := h.runs.Fail(runID, err); ferr != nil {
			log.WithError(ferr).Error("Failed to record run failure")
		}
		h.publish(runID, websocket.MessageFailed, gin.H{"error": err.Error()})
		return nil, err
	}

	if err := h.runs.Complete(runID, out.completed, out.failed, out.response); err != nil {
		log.WithError(err).Error("Failed to store run result")
		return nil, err
	}
	if key != "" {
		if err := h.cache.Set(ctx, key, out.response); err != nil {
			log.WithError(err).Warn("Failed to cache run result")
		}
	}
	h.publish(runID, websocket.MessageCompleted, gin.H{
		"completed":  out.completed,
		"failed":     out.failed,
		"result_url": "/api/v1/runs/" + runID,
	})
	return out.response, nil
}

func (h *SimulationHandler) publish(runID, msgType string, data interface{}) {
	if h.wsHub != nil {
		h.wsHub.Publish(runID, msgType, data)
	}
}

func (h *SimulationHandler) serveCached(c *gin.Context, key string) bool {
	if key == "" {
		return false
	}
	var cached json.RawMessage
	err := h.cache.Get(c.Request.Context(), key, &cached)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			h.logger.WithError(err).Warn("Result cache lookup failed")
		}
		return false
	}
	c.Header("X-Cache", "HIT")
	utils.SendSuccess(c, cached)
	return true
}

// cacheKey fingerprints a normalized request; only fixed-seed runs are reproducible
func (h *SimulationHandler) cacheKey(kind string, fixed bool, req interface{}) string {
	if !fixed || h.cache == nil {
		return ""
	}
	key, err := cache.RequestKey(kind, req)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to build cache key")
		return ""
	}
	return key
}

func (h *SimulationHandler) team(id string) (*models.Team, error) {
	t, ok := h.byID[id]
	if !ok {
		return nil, fmt.Errorf("team %s: %w", id, utils.ErrNotFound)
	}
	return t, nil
}

func (h *SimulationHandler) matchup(homeID, awayID string) (*models.Team, *models.Team, error) {
	if homeID == awayID {
		return nil, nil, models.NewConfigError("matchup", "team %s cannot play itself", homeID)
	}
	home, err := h.team(homeID)
	if err != nil {
		return nil, nil, err
	}
	away, err := h.team(awayID)
	if err != nil {
		return nil, nil, err
	}
	return home, away, nil
}

func (h *SimulationHandler) seasonTeams(ids []string) ([]*models.Team, error) {
	if len(ids) == 0 {
		return h.teams, nil
	}
	teams := make([]*models.Team, 0, len(ids))
	for _, id := range ids {
		t, err := h.team(id)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, nil
}

// seedPolicy picks the requested policy, else fixed when the request carries a
// seed, else the configured policy
func (h *SimulationHandler) seedPolicy(requested string, seed *int64) (simulator.SeedPolicy, error) {
	policy := simulator.SeedPolicy(requested)
	switch {
	case requested != "":
	case seed != nil:
		policy = simulator.SeedFixed
	case h.config.SimSeedPolicy != "":
		policy = simulator.SeedPolicy(h.config.SimSeedPolicy)
	default:
		policy = simulator.SeedFixed
	}
	if policy != simulator.SeedFixed && policy != simulator.SeedRandom {
		return "", models.NewConfigError("seed_policy", "unknown seed policy %q", policy)
	}
	return policy, nil
}

func (h *SimulationHandler) baseSeed(policy simulator.SeedPolicy, seed *int64) int64 {
	configured := h.config.SimSeed
	if seed != nil {
		configured = *seed
	}
	return simulator.ResolveBaseSeed(policy, configured)
}

func conditionsOrDefault(c *models.Conditions) models.Conditions {
	if c == nil {
		return models.DefaultConditions()
	}
	return *c
}
