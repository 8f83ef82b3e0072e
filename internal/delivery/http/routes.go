package http

import (
	"github.com/gin-gonic/gin"

	"github.com/tallaby/backend/config"
	"github.com/tallaby/backend/internal/infrastructure/ratelimit"
)

// SetupRouter creates and configures the Gin router. A nil limiter disables rate limiting.
func SetupRouter(cfg *config.Config, handler *Handler, limiter *ratelimit.Store) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)

	api := router.Group("/api")
	if limiter != nil {
		api.Use(RateLimitMiddleware(limiter))
	}
	{
		// Path used by the dashboards
		api.POST("/fetch-product", handler.FetchProduct)

		v1 := api.Group("/v1")
		{
			products := v1.Group("/products")
			{
				products.POST("/fetch", handler.FetchProduct)
			}
		}
	}

	return router
}
