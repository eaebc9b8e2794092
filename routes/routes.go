package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/aIcoder504/apbmt-2025-conference-system/config"
	"github.com/aIcoder504/apbmt-2025-conference-system/controllers"
	"github.com/aIcoder504/apbmt-2025-conference-system/middleware"
	"github.com/aIcoder504/apbmt-2025-conference-system/monitor"
)

// Dependencies are the handlers and settings the router needs.
type Dependencies struct {
	Settings   *config.Settings
	BulkUpdate *controllers.BulkUpdateController
	Database   string
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":   "ok",
				"message":  "Abstract review API is running",
				"database": deps.Database,
			})
		})

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(deps.Settings.JWTSecret), middleware.RequireRole(middleware.RoleAdmin))
		{
			abstracts := admin.Group("/abstracts")
			abstracts.Use(middleware.RequestID(), middleware.PipelineRecovery(deps.Database))
			{
				abstracts.POST("/bulk-update", deps.BulkUpdate.UpdateStatus)
				abstracts.PUT("/bulk-update", deps.BulkUpdate.UpdateStatus)
				abstracts.GET("/bulk-update", deps.BulkUpdate.Status)

				// single-record alias used by the review modal
				abstracts.POST("/status", deps.BulkUpdate.UpdateStatus)
				abstracts.GET("/status", deps.BulkUpdate.Status)

				abstracts.POST("/status-emails", deps.BulkUpdate.SendStatusEmails)
			}

			monitor.RegisterLogsRoute(admin, config.LogFilePath())
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "Endpoint not found"})
	})
}
