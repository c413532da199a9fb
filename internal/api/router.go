package api

import (
	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/gridiron-sim/internal/api/handlers"
	"github.com/stitts-dev/gridiron-sim/internal/api/middleware"
	"github.com/stitts-dev/gridiron-sim/internal/websocket"
)

// SetupRoutes registers every route. wsHub and limiter may be nil.
func SetupRoutes(router *gin.Engine, sim *handlers.SimulationHandler, health *handlers.HealthHandler, wsHub *websocket.ProgressHub, limiter *middleware.RateLimiter) {
	router.GET("/health", health.GetHealth)
	router.GET("/ready", health.GetReady)

	// progress stream lives at the root, outside /api/v1
	if wsHub != nil {
		router.GET("/ws/runs/:id", wsHub.HandleWebSocket)
	}

	apiV1 := router.Group("/api/v1")
	apiV1.GET("/teams", sim.ListTeams)
	apiV1.GET("/runs", sim.ListRuns)
	apiV1.GET("/runs/:id", sim.GetRun)

	simulate := apiV1.Group("/simulate")
	if limiter != nil {
		simulate.Use(limiter.Middleware())
	}
	{
		simulate.POST("/game", sim.SimulateGame)
		simulate.POST("/batch", sim.SimulateBatch)
		simulate.POST("/season", sim.SimulateSeason)
	}
}
