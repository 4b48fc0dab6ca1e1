package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/quillmail/syncengine/api/handlers"
	"github.com/quillmail/syncengine/api/middleware"
	"github.com/quillmail/syncengine/internal/repository"
	"github.com/quillmail/syncengine/internal/tracing"
	"github.com/quillmail/syncengine/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, s *services.Services, repos *repository.Repositories, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	r.Use(gin.Recovery())

	// Health check endpoint (no auth, no tracing)
	r.GET("/health", handlers.HealthCheck)

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-QUILLMAIL-API-KEY",
		ValidAPIKey: apikey,
	})

	v1 := r.Group("/v1")
	v1.Use(apiKeyMiddleware)
	{
		// Provider action endpoints
		actionsGroup := v1.Group("/actions")
		{
			actionsGroup.POST("",
				tracing.TracingEnhancer(ctx, "POST /v1/actions"),
				handlers.ApplyAction(s.ActionService))
			actionsGroup.POST("/batch",
				tracing.TracingEnhancer(ctx, "POST /v1/actions/batch"),
				handlers.ApplyBatchAction(s.ActionService))
		}

		// Checkpoint lifecycle endpoints, keyed by account with an optional
		// folderId query parameter
		syncGroup := v1.Group("/sync/:accountId")
		{
			syncGroup.POST("/checkpoint",
				tracing.TracingEnhancer(ctx, "POST /v1/sync/:accountId/checkpoint"),
				handlers.CreateCheckpoint(s.CheckpointStore))
			syncGroup.PATCH("/checkpoint",
				tracing.TracingEnhancer(ctx, "PATCH /v1/sync/:accountId/checkpoint"),
				handlers.UpdateCheckpoint(s.CheckpointStore))
			syncGroup.GET("/checkpoint",
				tracing.TracingEnhancer(ctx, "GET /v1/sync/:accountId/checkpoint"),
				handlers.GetCheckpoint(s.CheckpointStore))
			syncGroup.POST("/complete",
				tracing.TracingEnhancer(ctx, "POST /v1/sync/:accountId/complete"),
				handlers.CompleteCheckpoint(s.CheckpointStore))
			syncGroup.POST("/fail",
				tracing.TracingEnhancer(ctx, "POST /v1/sync/:accountId/fail"),
				handlers.FailCheckpoint(s.CheckpointStore))
			syncGroup.POST("/pause",
				tracing.TracingEnhancer(ctx, "POST /v1/sync/:accountId/pause"),
				handlers.PauseCheckpoint(s.CheckpointStore))
			syncGroup.POST("/resume",
				tracing.TracingEnhancer(ctx, "POST /v1/sync/:accountId/resume"),
				handlers.ResumeCheckpoint(s.CheckpointStore))
			syncGroup.GET("/progress",
				tracing.TracingEnhancer(ctx, "GET /v1/sync/:accountId/progress"),
				handlers.GetProgress(s.CheckpointStore))
			syncGroup.GET("/history",
				tracing.TracingEnhancer(ctx, "GET /v1/sync/:accountId/history"),
				handlers.GetHistory(repos.CheckpointRepository))
			syncGroup.DELETE("",
				tracing.TracingEnhancer(ctx, "DELETE /v1/sync/:accountId"),
				handlers.ClearCheckpoints(s.CheckpointStore))
		}
	}
}
