package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mag7qa/internal/middleware"
)

type RouterDeps struct {
	Sessions  *SessionHandler
	Health    *HealthHandler
	Metrics   http.Handler
	JWTSecret []byte
	RateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", deps.Health.Health)
	if deps.Metrics != nil {
		api.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/sessions", deps.Sessions.Create)
	authGroup.GET("/sessions", deps.Sessions.List)
	authGroup.POST("/sessions/:id/ask", middleware.RateLimit(deps.RateLimit), deps.Sessions.Ask)
	authGroup.GET("/sessions/:id/history", deps.Sessions.History)
	authGroup.GET("/sessions/:id/logs", deps.Sessions.Logs)
	authGroup.POST("/sessions/:id/reset", deps.Sessions.Reset)
	authGroup.DELETE("/sessions/:id", deps.Sessions.Delete)
}
