package services

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/huangang/annoreview/internal/apperr"
	"github.com/huangang/annoreview/internal/models"
	"gorm.io/gorm"
)

type TaskService struct {
	db *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db}
}

// TaskListRequest filters a project's tasks. Status, when set, keeps only
// tasks the caller has (true) or has not (false) reviewed.
type TaskListRequest struct {
	Skip   int   `form:"skip" binding:"min=0"`
	Limit  int   `form:"limit" binding:"min=0,max=1000"`
	Status *bool `form:"status"`
}

// TaskItem is a task as seen by one user.
type TaskItem struct {
	models.Task
	Reviewed bool `json:"reviewed"`
}

type TaskListResponse struct {
	Tasks []TaskItem `json:"tasks"`
	Total int64      `json:"total"`
	Skip  int        `json:"skip"`
	Limit int        `json:"limit"`
}

type CreateTaskRequest struct {
	ID      string          `json:"id"`
	Article string          `json:"article" binding:"required"`
	Events  json.RawMessage `json:"events"`
}

// UpdateTaskRequest replaces article and events. Omitted events clear the column.
type UpdateTaskRequest struct {
	Article string          `json:"article" binding:"required"`
	Events  json.RawMessage `json:"events"`
}

// List returns one page of the project's tasks with the caller's review status.
func (s *TaskService) List(projectID, userID uint, req *TaskListRequest) (*TaskListResponse, error) {
	if err := projectExists(s.db, projectID); err != nil {
		return nil, err
	}
	req.Skip, req.Limit = normalizePage(req.Skip, req.Limit)

	query := s.db.Model(&models.Task{}).Where("tasks.project_id = ?", projectID)
	if req.Status != nil {
		if *req.Status {
			query = query.Where("EXISTS (?)", reviewedBy(s.db, userID))
		} else {
			query = query.Where("NOT EXISTS (?)", reviewedBy(s.db, userID))
		}
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperr.FromDB(err, "task")
	}

	var tasks []models.Task
	if err := query.Order("tasks.created_at ASC, tasks.id ASC").Offset(req.Skip).Limit(req.Limit).Find(&tasks).Error; err != nil {
		return nil, apperr.FromDB(err, "task")
	}

	ids := make([]string, len(tasks))
	for i := range tasks {
		ids[i] = tasks[i].ID
	}
	reviewed, err := reviewedTaskIDs(s.db, userID, ids)
	if err != nil {
		return nil, apperr.FromDB(err, "review")
	}

	items := make([]TaskItem, len(tasks))
	for i, task := range tasks {
		items[i] = TaskItem{Task: task, Reviewed: reviewed[task.ID]}
	}

	return &TaskListResponse{
		Tasks: items,
		Total: total,
		Skip:  req.Skip,
		Limit: req.Limit,
	}, nil
}

func (s *TaskService) Get(projectID uint, taskID string, userID uint) (*TaskItem, error) {
	task, err := findTask(s.db, projectID, taskID)
	if err != nil {
		return nil, err
	}
	reviewed, err := reviewedTaskIDs(s.db, userID, []string{task.ID})
	if err != nil {
		return nil, apperr.FromDB(err, "review")
	}
	return &TaskItem{Task: *task, Reviewed: reviewed[task.ID]}, nil
}

func (s *TaskService) Create(projectID uint, req *CreateTaskRequest) (*models.Task, error) {
	if err := projectExists(s.db, projectID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Article) == "" {
		return nil, apperr.Validation(nil, "article is required")
	}
	events, err := eventsOrValidation(req.Events, "events", compactEvents)
	if err != nil {
		return nil, err
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}

	task := models.Task{
		ID:        id,
		ProjectID: projectID,
		Article:   req.Article,
		Events:    models.JSONValue(events),
	}
	if err := s.db.Create(&task).Error; err != nil {
		return nil, apperr.FromDB(err, "task")
	}
	return &task, nil
}

func (s *TaskService) Update(projectID uint, taskID string, req *UpdateTaskRequest) (*models.Task, error) {
	if strings.TrimSpace(req.Article) == "" {
		return nil, apperr.Validation(nil, "article is required")
	}
	events, err := eventsOrValidation(req.Events, "events", compactEvents)
	if err != nil {
		return nil, err
	}

	var task models.Task
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND project_id = ?", taskID, projectID).First(&task).Error; err != nil {
			return err
		}
		task.Article = req.Article
		task.Events = models.JSONValue(events)
		return tx.Save(&task).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "task")
	}
	return &task, nil
}

// Delete removes the task and every review attached to it.
func (s *TaskService) Delete(projectID uint, taskID string) (*models.Task, error) {
	var task models.Task
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND project_id = ?", taskID, projectID).First(&task).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		return tx.Delete(&task).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "task")
	}
	return &task, nil
}

func findTask(db *gorm.DB, projectID uint, taskID string) (*models.Task, error) {
	var task models.Task
	if err := db.Where("id = ? AND project_id = ?", taskID, projectID).First(&task).Error; err != nil {
		return nil, apperr.FromDB(err, "task")
	}
	return &task, nil
}
