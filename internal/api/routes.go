// Package api exposes simulations and stored runs over HTTP.
package api

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/san-kum/magbrake/internal/storage"
)

// NewRouter builds the engine with middleware and all routes attached.
func NewRouter(st *storage.Store, origins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(), CORS(origins))
	SetupRoutes(router, st)
	return router
}

func SetupRoutes(router *gin.Engine, st *storage.Store) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", HealthCheck)
		v1.GET("/presets", ListPresets)
		v1.POST("/simulate", Simulate(st))

		runs := v1.Group("/runs")
		{
			runs.GET("", ListRuns(st))
			runs.GET("/:id", GetRun(st))
			runs.DELETE("/:id", DeleteRun(st))
		}
	}
}

// CORS allows the given origins, or any origin when none are configured.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Length", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		slog.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
