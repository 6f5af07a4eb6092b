package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/annoreview/internal/config"
	"github.com/huangang/annoreview/internal/handlers"
	"github.com/huangang/annoreview/internal/middleware"
	"github.com/huangang/annoreview/internal/models"
	"github.com/huangang/annoreview/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))

	uploadLimiter := middleware.NewRateLimiter(cfg.Upload.RatePerSecond, cfg.Upload.Burst)
	loginLimiter := middleware.NewRateLimiter(1, 5)
	svc.rateLimiters = append(svc.rateLimiters, uploadLimiter, loginLimiter)

	db := models.GetDB()
	r.GET("/health", handlers.NewHealthHandler(db, svc.exportQueue).CheckHealth)

	api := r.Group("/api")
	{
		auth := api.Group("/auth", middleware.AuditLog())
		{
			auth.POST("/register", loginLimiter.Middleware(), svc.authHandler.Register)
			auth.POST("/login", loginLimiter.Middleware(), svc.authHandler.Login)
			auth.GET("/config", svc.authHandler.GetAuthConfig)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthRequired(svc.jwt), middleware.AuditLog())
		{
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			projectHandler := handlers.NewProjectHandler(db)
			protected.GET("/projects", projectHandler.List)
			protected.POST("/projects", projectHandler.Create)
			protected.GET("/projects/:id", projectHandler.GetByID)
			protected.PUT("/projects/:id", projectHandler.Update)
			protected.DELETE("/projects/:id", projectHandler.Delete)

			exportHandler := handlers.NewExportHandler(db, svc.exportService, svc.exportQueue)
			protected.GET("/projects/:id/export", exportHandler.Download)
			protected.POST("/projects/:id/export/jobs", exportHandler.CreateJob)

			taskHandler := handlers.NewTaskHandler(db, cfg.Upload.MaxBytes)
			protected.GET("/projects/:id/tasks", taskHandler.List)
			protected.POST("/projects/:id/tasks", taskHandler.Create)
			protected.POST("/projects/:id/tasks/upload", uploadLimiter.Middleware(), taskHandler.Upload)
			protected.GET("/projects/:id/tasks/:task_id", taskHandler.Get)
			protected.PUT("/projects/:id/tasks/:task_id", taskHandler.Update)
			protected.DELETE("/projects/:id/tasks/:task_id", taskHandler.Delete)

			reviewHandler := handlers.NewReviewHandler(db)
			protected.GET("/projects/:id/tasks/:task_id/reviews", reviewHandler.ListByTask)
			protected.POST("/projects/:id/tasks/:task_id/reviews", reviewHandler.Create)
			protected.POST("/projects/:id/tasks/:task_id/review", reviewHandler.Create)
			protected.GET("/projects/:id/tasks/:task_id/reviews/:review_id", reviewHandler.Get)
			protected.PUT("/projects/:id/tasks/:task_id/reviews/:review_id", reviewHandler.Update)
			protected.DELETE("/projects/:id/tasks/:task_id/reviews/:review_id", reviewHandler.Delete)
			protected.GET("/reviews/mine", reviewHandler.ListMine)
		}

		admin := api.Group("")
		admin.Use(middleware.AuthRequired(svc.jwt), middleware.AdminRequired(), middleware.AuditLog())
		{
			userHandler := handlers.NewUserHandler(db)
			admin.GET("/users", userHandler.List)
			admin.PUT("/users/:id", userHandler.Update)

			systemLogHandler := handlers.NewSystemLogHandler(db)
			admin.GET("/system-logs", systemLogHandler.List)
			admin.GET("/system-logs/modules", systemLogHandler.GetModules)
		}
	}
}
