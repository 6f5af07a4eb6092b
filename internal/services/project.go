package services

import (
	"strings"

	"github.com/huangang/annoreview/internal/apperr"
	"github.com/huangang/annoreview/internal/models"
	"gorm.io/gorm"
)

type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

type ProjectListRequest struct {
	Skip  int    `form:"skip" binding:"min=0"`
	Limit int    `form:"limit" binding:"min=0,max=1000"`
	Name  string `form:"name"`
}

type ProjectListResponse struct {
	Total int64            `json:"total"`
	Skip  int              `json:"skip"`
	Limit int              `json:"limit"`
	Items []models.Project `json:"items"`
}

// ProjectRequest is used for both create and full replace.
type ProjectRequest struct {
	Name        string  `json:"name" binding:"required,max=200"`
	Description *string `json:"description"`
}

// List returns the caller's projects, newest first.
func (s *ProjectService) List(ownerID uint, req *ProjectListRequest) (*ProjectListResponse, error) {
	req.Skip, req.Limit = normalizePage(req.Skip, req.Limit)

	var projects []models.Project
	var total int64

	query := s.db.Model(&models.Project{}).Where("owner_id = ?", ownerID)
	if req.Name != "" {
		query = query.Where("name LIKE ? ESCAPE '!'", containsPattern(req.Name))
	}
	query = query.Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, apperr.FromDB(err, "project")
	}
	if err := query.Offset(req.Skip).Limit(req.Limit).Order("created_at DESC, id DESC").Find(&projects).Error; err != nil {
		return nil, apperr.FromDB(err, "project")
	}

	return &ProjectListResponse{
		Total: total,
		Skip:  req.Skip,
		Limit: req.Limit,
		Items: projects,
	}, nil
}

func (s *ProjectService) Get(id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.First(&project, id).Error; err != nil {
		return nil, apperr.FromDB(err, "project")
	}
	return &project, nil
}

func (s *ProjectService) Create(req *ProjectRequest, ownerID uint) (*models.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation(nil, "project name is required")
	}

	project := models.Project{
		OwnerID:     ownerID,
		Name:        name,
		Description: req.Description,
	}
	if err := s.db.Create(&project).Error; err != nil {
		return nil, apperr.FromDB(err, "project")
	}
	return &project, nil
}

// Update replaces name and description. Projects owned by someone else are
// reported as missing.
func (s *ProjectService) Update(id, ownerID uint, req *ProjectRequest) (*models.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation(nil, "project name is required")
	}

	var project models.Project
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&project).Error; err != nil {
			return err
		}
		project.Name = name
		project.Description = req.Description
		return tx.Save(&project).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "project")
	}
	return &project, nil
}

// Delete removes the project with its tasks and their reviews.
func (s *ProjectService) Delete(id, ownerID uint) (*models.Project, error) {
	var project models.Project
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&project).Error; err != nil {
			return err
		}
		taskIDs := tx.Model(&models.Task{}).Select("id").Where("project_id = ?", id)
		if err := tx.Where("task_id IN (?)", taskIDs).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		return tx.Delete(&project).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "project")
	}
	return &project, nil
}

// projectExists reports NotFound when the project is missing.
func projectExists(db *gorm.DB, id uint) error {
	var count int64
	if err := db.Model(&models.Project{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return apperr.FromDB(err, "project")
	}
	if count == 0 {
		return apperr.NotFound("project not found")
	}
	return nil
}
