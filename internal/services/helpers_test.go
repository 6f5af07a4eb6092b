package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/huangang/annoreview/internal/config"
	"github.com/huangang/annoreview/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := models.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}, logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedProject(t *testing.T, db *gorm.DB, ownerID uint, name string) *models.Project {
	t.Helper()
	project, err := NewProjectService(db).Create(&ProjectRequest{Name: name}, ownerID)
	if err != nil {
		t.Fatalf("create project %q: %v", name, err)
	}
	return project
}

func seedTask(t *testing.T, db *gorm.DB, projectID uint, id, article, events string) *models.Task {
	t.Helper()
	req := &CreateTaskRequest{ID: id, Article: article}
	if events != "" {
		req.Events = []byte(events)
	}
	task, err := NewTaskService(db).Create(projectID, req)
	if err != nil {
		t.Fatalf("create task %q: %v", id, err)
	}
	return task
}

func seedReview(t *testing.T, db *gorm.DB, projectID uint, taskID string, reviewerID uint, events, comment string) *models.Review {
	t.Helper()
	req := &ReviewRequest{Events: []byte(events)}
	if comment != "" {
		req.Comment = &comment
	}
	review, err := NewReviewService(db).Create(projectID, taskID, reviewerID, req)
	if err != nil {
		t.Fatalf("create review on %q: %v", taskID, err)
	}
	return review
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
