package services

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangang/annoreview/internal/config"
	"github.com/huangang/annoreview/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// RetentionService prunes stale export files and old audit entries on a
// cron schedule.
type RetentionService struct {
	exportDir    string
	exportMaxAge time.Duration
	logRetention int
	logs         *SystemLogService
	cron         *cron.Cron
	schedule     string
	now          func() time.Time
}

func NewRetentionService(db *gorm.DB, cfg *config.Config) *RetentionService {
	return &RetentionService{
		exportDir:    cfg.Export.Dir,
		exportMaxAge: time.Duration(cfg.Export.RetentionHours) * time.Hour,
		logRetention: cfg.SystemLog.RetentionDays,
		logs:         NewSystemLogService(db),
		schedule:     cfg.Export.CleanupSchedule,
		now:          time.Now,
	}
}

// Start runs one sweep immediately and then follows the schedule. An empty
// schedule disables the sweeper.
func (s *RetentionService) Start() error {
	if s.schedule == "" {
		logger.Infof("[Retention] sweeper disabled")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, s.Sweep); err != nil {
		return err
	}
	s.cron = c
	go s.Sweep()
	c.Start()
	logger.Infof("[Retention] sweeper scheduled: %s", s.schedule)
	return nil
}

func (s *RetentionService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *RetentionService) Sweep() {
	if removed, err := s.SweepExports(); err != nil {
		logger.Warnf("[Retention] export sweep failed: %v", err)
	} else if removed > 0 {
		logger.Infof("[Retention] removed %d export files older than %s", removed, s.exportMaxAge)
	}

	if deleted, err := s.logs.CleanupOldLogs(s.logRetention); err != nil {
		logger.Warnf("[Retention] system log cleanup failed: %v", err)
	} else if deleted > 0 {
		logger.Infof("[Retention] cleaned up %d logs older than %d days", deleted, s.logRetention)
	}
}

// SweepExports removes export files whose modification time is older than
// the configured age. A zero age keeps every file.
func (s *RetentionService) SweepExports() (int, error) {
	if s.exportMaxAge <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(s.exportDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-s.exportMaxAge)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "project_") || !strings.HasSuffix(name, "_reviews.jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.exportDir, name)); err != nil && !os.IsNotExist(err) {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
