package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/huangang/annoreview/internal/apperr"
	"github.com/huangang/annoreview/internal/models"
	"github.com/huangang/annoreview/pkg/logger"
	"github.com/natefinch/atomic"
	"gorm.io/gorm"
)

const exportPageSize = 500

// ExportRecord is one line of the export file.
type ExportRecord struct {
	ID             string          `json:"id"`
	Article        string          `json:"article"`
	OriginalEvents json.RawMessage `json:"original_events"`
	ReviewedEvents []ReviewedEvent `json:"reviewed_events"`
}

// ReviewedEvent is the latest review of one reviewer.
type ReviewedEvent struct {
	ReviewerID uint            `json:"reviewer_id"`
	Events     json.RawMessage `json:"events"`
	Comment    *string         `json:"comment"`
}

type ExportResult struct {
	ProjectID uint      `json:"project_id"`
	Path      string    `json:"path"`
	Records   int       `json:"records"`
	CreatedAt time.Time `json:"created_at"`
}

type ExportService struct {
	db  *gorm.DB
	dir string
}

func NewExportService(db *gorm.DB, dir string) *ExportService {
	return &ExportService{db: db, dir: dir}
}

// Path is where Export writes the file for project.
func (s *ExportService) Path(project *models.Project) string {
	return filepath.Join(s.dir, fmt.Sprintf("project_%d_%s_reviews.jsonl", project.ID, slug(project.Name)))
}

// Export writes every reviewed task of the project to its export file,
// replacing the previous file atomically.
func (s *ExportService) Export(ctx context.Context, projectID uint) (*ExportResult, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, projectID).Error; err != nil {
		return nil, apperr.FromDB(err, "project")
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	path := s.Path(&project)

	pr, pw := io.Pipe()
	type outcome struct {
		records int
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		n, err := s.WriteJSONL(ctx, projectID, pw)
		pw.CloseWithError(err)
		done <- outcome{n, err}
	}()

	writeErr := atomic.WriteFile(path, pr)
	pr.CloseWithError(io.ErrClosedPipe)
	res := <-done
	if res.err != nil {
		return nil, res.err
	}
	if writeErr != nil {
		return nil, fmt.Errorf("write export file: %w", writeErr)
	}

	logger.Info().
		Uint("project_id", projectID).
		Str("path", path).
		Int("records", res.records).
		Msg("project exported")

	return &ExportResult{
		ProjectID: projectID,
		Path:      path,
		Records:   res.records,
		CreatedAt: time.Now(),
	}, nil
}

// WriteJSONL streams the export records of a project to w and returns how
// many were written. Tasks without reviews are skipped.
func (s *ExportService) WriteJSONL(ctx context.Context, projectID uint, w io.Writer) (int, error) {
	db := s.db.WithContext(ctx)
	if err := projectExists(db, projectID); err != nil {
		return 0, err
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	hasReview := db.Model(&models.Review{}).Select("1").Where("reviews.task_id = tasks.id")
	written := 0
	for offset := 0; ; offset += exportPageSize {
		var tasks []models.Task
		err := db.Where("tasks.project_id = ? AND EXISTS (?)", projectID, hasReview).
			Order("tasks.created_at ASC, tasks.id ASC").
			Offset(offset).Limit(exportPageSize).
			Find(&tasks).Error
		if err != nil {
			return written, apperr.FromDB(err, "task")
		}
		if len(tasks) == 0 {
			return written, nil
		}

		latest, err := latestReviews(db, tasks)
		if err != nil {
			return written, apperr.FromDB(err, "review")
		}
		for _, task := range tasks {
			reviewed := latest[task.ID]
			if len(reviewed) == 0 {
				continue
			}
			record := ExportRecord{
				ID:             task.ID,
				Article:        task.Article,
				OriginalEvents: validOrNull(models.RawJSON(task.Events)),
				ReviewedEvents: reviewed,
			}
			if err := enc.Encode(&record); err != nil {
				return written, err
			}
			written++
		}
		if len(tasks) < exportPageSize {
			return written, nil
		}
	}
}

// latestReviews keeps the most recent review per (task, reviewer): latest
// created_at, then highest id. Each task's slice is ordered by reviewer id.
func latestReviews(db *gorm.DB, tasks []models.Task) (map[string][]ReviewedEvent, error) {
	ids := make([]string, len(tasks))
	for i := range tasks {
		ids[i] = tasks[i].ID
	}

	var reviews []models.Review
	err := db.Where("task_id IN ?", ids).
		Order("task_id ASC, reviewer_id ASC, created_at DESC, id DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}

	latest := make(map[string][]ReviewedEvent, len(tasks))
	for i, r := range reviews {
		if i > 0 && reviews[i-1].TaskID == r.TaskID && reviews[i-1].ReviewerID == r.ReviewerID {
			continue
		}
		latest[r.TaskID] = append(latest[r.TaskID], ReviewedEvent{
			ReviewerID: r.ReviewerID,
			Events:     validOrNull(models.RawJSON(r.Events)),
			Comment:    r.Comment,
		})
	}
	return latest, nil
}

// validOrNull drops payloads that cannot be decoded so they export as null.
func validOrNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || !json.Valid(raw) {
		return nil
	}
	return raw
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slug(name string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(name), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "untitled"
	}
	return s
}
