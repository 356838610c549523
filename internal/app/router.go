package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/handler"
	"dispatch/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	JobHandler     *handler.JobHandler
	CourierHandler *handler.CourierHandler
	OfferHandler   *handler.OfferHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Job routes.
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", deps.JobHandler.CreateJob)
			jobs.GET("/:id", deps.JobHandler.GetJob)
		}

		// Courier routes.
		couriers := v1.Group("/couriers")
		{
			couriers.POST("/register", deps.CourierHandler.Register)
			couriers.GET("", deps.CourierHandler.GetAll)
			couriers.POST("/:id/location", deps.CourierHandler.UpdateLocation)
			couriers.POST("/:id/shift", deps.CourierHandler.SetShift)
			couriers.PUT("/:id/auto-accept", deps.CourierHandler.ReplaceAutoAcceptRules)
		}

		// Offer routes.
		offers := v1.Group("/offers")
		{
			offers.GET("/:id", deps.OfferHandler.Get)
			offers.POST("/:id/accept", deps.OfferHandler.Accept)
			offers.POST("/:id/decline", deps.OfferHandler.Decline)
		}
	}

	return router
}
