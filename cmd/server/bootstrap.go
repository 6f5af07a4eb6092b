package main

import (
	"github.com/huangang/annoreview/internal/config"
	"github.com/huangang/annoreview/internal/handlers"
	"github.com/huangang/annoreview/internal/middleware"
	"github.com/huangang/annoreview/internal/models"
	"github.com/huangang/annoreview/internal/services"
	"github.com/huangang/annoreview/internal/utils"
	"github.com/huangang/annoreview/pkg/logger"
)

// appServices holds the long-lived pieces the routes and shutdown need.
type appServices struct {
	jwt           *utils.JWTManager
	exportService *services.ExportService
	exportQueue   services.ExportQueue
	worker        *services.Worker
	retention     *services.RetentionService
	rateLimiters  []*middleware.RateLimiter
	authHandler   *handlers.AuthHandler
}

// bootstrap opens the database and starts the export queue, worker and
// retention sweeper.
func bootstrap(cfg *config.Config) *appServices {
	jwt, err := utils.NewJWTManager(&cfg.JWT)
	if err != nil {
		logger.Fatalf("Invalid JWT settings: %v", err)
	}

	if err := models.InitDB(&cfg.Database, logger.NewGormLogger(cfg.Log.Level)); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	db := models.GetDB()

	services.InitSystemLogger(db)

	exportService := services.NewExportService(db, cfg.Export.Dir)
	processor := services.ExportJobProcessor(exportService)
	exportQueue := services.InitExportQueue(&cfg.Redis, processor)

	var worker *services.Worker
	if exportQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis, processor)
	}
	if worker != nil {
		if err := worker.Start(); err != nil {
			logger.Error().Err(err).Msg("Failed to start export worker")
			worker = nil
		}
	}

	retention := services.NewRetentionService(db, cfg)
	if err := retention.Start(); err != nil {
		logger.Fatalf("Invalid export.cleanup_schedule: %v", err)
	}

	var ldap services.LDAPAuthenticator
	if cfg.LDAP.Enabled {
		ldap = services.NewLDAPService(&cfg.LDAP)
	}

	return &appServices{
		jwt:           jwt,
		exportService: exportService,
		exportQueue:   exportQueue,
		worker:        worker,
		retention:     retention,
		authHandler:   handlers.NewAuthHandler(db, ldap, jwt),
	}
}

// shutdown stops background work once the HTTP server has drained.
func (s *appServices) shutdown() {
	s.retention.Stop()
	for _, rl := range s.rateLimiters {
		rl.Stop()
	}
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.exportQueue != nil {
		if err := s.exportQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Closing export queue")
		}
	}
}
