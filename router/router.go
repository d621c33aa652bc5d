// Package router wires the HTTP routes and global middleware.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pushbridge/pushbridge/config"
	"github.com/pushbridge/pushbridge/handlers"
	"github.com/pushbridge/pushbridge/middleware"
)

// Dependencies struct holds all dependencies required for setting up routes.
type Dependencies struct {
	Config               *config.Config
	TokenExchangeHandler *handlers.TokenExchangeHandler
	HealthHandler        *handlers.HealthHandler
	Logger               *zap.SugaredLogger
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.Default()

	// Global Middleware
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))

	// Health and Metrics Routes
	r.GET("/health", deps.HealthHandler.DetailedHealth)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Versioned API Group (v1)
	v1 := r.Group("/v1")
	{
		tokenRoutes := v1.Group("/tokens")
		{
			tokenRoutes.POST("/exchange", deps.TokenExchangeHandler.ExchangeToken)
		}
	}

	return r
}
