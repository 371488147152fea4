package api

import (
	"context"
	"net/http"
	"time"

	"github.com/JaeTrim/Traffic-AI/internal/config"
	"github.com/JaeTrim/Traffic-AI/internal/metrics"
	"github.com/JaeTrim/Traffic-AI/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const serviceName = "traffic-ai"

// HealthChecker pings the backing database
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, db HealthChecker, m *metrics.Metrics, log zerolog.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	authHandler := NewAuthHandler(services, log)
	modelHandler := NewModelHandler(services, cfg, log)
	collectionHandler := NewCollectionHandler(services, log)
	predictionHandler := NewPredictionHandler(services, cfg, m, log)
	activityHandler := NewActivityHandler(services, log)

	authenticated := requireAuth(services.Auth, log)
	adminOnly := requireAdmin(services.User, log)

	// Operational endpoints
	router.GET("/health", healthCheck(db))
	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/stats", statsHandler(services, log))

	// API v1
	v1 := router.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/signup", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/verify-token", authHandler.VerifyToken)
			authGroup.GET("/user", authenticated, authHandler.CurrentUser)
		}

		admin := v1.Group("/admin", authenticated, adminOnly)
		{
			admin.GET("/users", authHandler.ListUsers)
			admin.POST("/promote", authHandler.Promote)
			admin.POST("/revoke", authHandler.Revoke)
		}

		modelsGroup := v1.Group("/models", authenticated)
		{
			modelsGroup.POST("", modelHandler.Create)
			modelsGroup.GET("", modelHandler.List)
			modelsGroup.GET("/:id", modelHandler.Get)
			modelsGroup.PATCH("/:id", modelHandler.Update)
			modelsGroup.DELETE("/:id", modelHandler.Delete)
		}

		collections := v1.Group("/collections", authenticated)
		{
			collections.GET("", collectionHandler.List)
			collections.POST("", collectionHandler.Create)
			collections.GET("/:id", collectionHandler.Get)
			collections.DELETE("/:id", collectionHandler.Delete)
			collections.POST("/:id/predictions", collectionHandler.AddPredictions)
			collections.GET("/:id/export", collectionHandler.Export)
		}

		predict := v1.Group("/predict", authenticated)
		{
			predict.POST("/csv", predictionHandler.PredictCSV)
			predict.POST("/single", predictionHandler.PredictSingle)
		}

		v1.POST("/train", authenticated, adminOnly, predictionHandler.Train)

		logGroup := v1.Group("/log", authenticated)
		{
			logGroup.GET("", activityHandler.Recent)
			logGroup.POST("", activityHandler.Create)
			logGroup.DELETE("", adminOnly, activityHandler.Clear)
		}
	}

	return router
}

// healthCheck reports healthy only when the database answers a ping
func healthCheck(db HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := contextWithTimeout(c, 5*time.Second)
		defer cancel()

		status, code := "healthy", http.StatusOK
		body := gin.H{"service": serviceName}
		if err := db.HealthCheck(ctx); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
			body["error"] = "database unavailable"
		}
		body["status"] = status
		body["timestamp"] = time.Now().Format(time.RFC3339)
		c.JSON(code, body)
	}
}

// statsHandler returns record counts
func statsHandler(services *service.Services, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := services.Stats.Counts(c.Request.Context())
		if err != nil {
			respondError(c, log, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"database":  counts,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// contextWithTimeout creates a context with timeout for handlers
func contextWithTimeout(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), timeout)
}
