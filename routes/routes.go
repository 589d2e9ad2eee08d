package routes

import (
	"loan-management-api/controllers"
	"loan-management-api/middleware"
	"loan-management-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Authentication
			public.POST("/login", controllers.Login)
			public.POST("/refresh", controllers.RefreshToken)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Loan Management API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Notifications
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", controllers.GetMyNotifications)
				notifications.PUT("/:id/read", controllers.MarkNotificationRead)
				notifications.PUT("/read-all", controllers.MarkAllNotificationsRead)
			}

			// Loan applications
			applications := protected.Group("/applications")
			{
				applications.GET("", controllers.GetApplications)
				applications.GET("/:id", controllers.GetApplication)
				applications.GET("/:id/review-status", controllers.GetApplicationReviewStatus)

				// Only applicants create/update/delete their applications
				applications.POST("", middleware.RequireRole(models.RoleApplicant), controllers.CreateApplication)
				applications.PUT("/:id", middleware.RequireRole(models.RoleApplicant), controllers.UpdateApplication)
				applications.DELETE("/:id", middleware.RequireRole(models.RoleApplicant), controllers.DeleteApplication)

				// Only admins attach reviewer pools
				applications.POST("/:id/assign", middleware.RequireRole(models.RoleAdmin), controllers.AssignReviewers)
			}

			// DSA review workflow
			reviews := protected.Group("/reviews")
			reviews.Use(middleware.RequireRole(models.RoleDSA))
			{
				reviews.GET("/assigned", controllers.GetAssignedReviews)
				reviews.POST("/:id/decision", controllers.SubmitReviewDecision)
			}

			// DSA reactivation workflow
			reactivation := protected.Group("/reactivation")
			reactivation.Use(middleware.RequireRole(models.RoleDSA))
			{
				reactivation.POST("", controllers.CreateReactivationRequest)
				reactivation.GET("", controllers.GetMyReactivationRequests)
			}

			// Admin workflow
			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole(models.RoleAdmin))
			{
				admin.POST("/sweep", controllers.TriggerSweep)
				admin.GET("/dsas/:id/statistics", controllers.GetReviewerStatistics)
				admin.GET("/reactivation-requests", controllers.GetPendingReactivationRequests)
				admin.POST("/dsas/:id/reactivation-decision", controllers.DecideReactivation)
			}
		}
	}
}
