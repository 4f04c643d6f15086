// Package server exposes onboarding sessions over HTTP
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ppiankov/yojana/internal/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	SessionHandler *SessionHandler
	AIEnabled      bool
	CORSOrigins    []string
	Logger         *zap.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestMetrics(), requestLogger(logger.OrNop(cfg.Logger)))

	// Cors
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Content-Type", "X-Requested-With"},
			MaxAge:       12 * time.Hour,
		}))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ai": cfg.AIEnabled})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/options", Options)
		api.GET("/catalog/:category", Catalog)
		api.POST("/profile/validate", ValidateProfile)

		sessions := api.Group("/sessions")
		sessions.POST("", cfg.SessionHandler.Create)
		sessions.GET("/:id", cfg.SessionHandler.Get)
		sessions.DELETE("/:id", cfg.SessionHandler.Delete)
		sessions.POST("/:id/profile", cfg.SessionHandler.SubmitProfile)
		sessions.GET("/:id/result", cfg.SessionHandler.Result)
		sessions.POST("/:id/restart", cfg.SessionHandler.Restart)
	}

	return router
}
