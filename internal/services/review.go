package services

import (
	"encoding/json"

	"github.com/huangang/annoreview/internal/apperr"
	"github.com/huangang/annoreview/internal/models"
	"gorm.io/gorm"
)

type ReviewService struct {
	db *gorm.DB
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// ReviewRequest is used for both create and full replace.
type ReviewRequest struct {
	Events  json.RawMessage `json:"events"`
	Comment *string         `json:"comment"`
}

type ReviewListRequest struct {
	Skip  int `form:"skip" binding:"min=0"`
	Limit int `form:"limit" binding:"min=0,max=1000"`
}

type ReviewListResponse struct {
	Total int64           `json:"total"`
	Skip  int             `json:"skip"`
	Limit int             `json:"limit"`
	Items []models.Review `json:"items"`
}

// Create attaches a review to a task. The task lookup and the insert share a
// transaction so a concurrently deleted task cannot gain an orphan review.
func (s *ReviewService) Create(projectID uint, taskID string, reviewerID uint, req *ReviewRequest) (*models.Review, error) {
	events, err := eventsOrValidation(req.Events, "events", reviewEvents)
	if err != nil {
		return nil, err
	}

	review := models.Review{
		TaskID:     taskID,
		ReviewerID: reviewerID,
		Events:     models.JSONValue(events),
		Comment:    req.Comment,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := findTask(tx, projectID, taskID); err != nil {
			return err
		}
		return tx.Create(&review).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "review")
	}
	return &review, nil
}

func (s *ReviewService) ListByTask(projectID uint, taskID string, req *ReviewListRequest) (*ReviewListResponse, error) {
	if _, err := findTask(s.db, projectID, taskID); err != nil {
		return nil, err
	}
	query := s.db.Model(&models.Review{}).Where("task_id = ?", taskID).Session(&gorm.Session{})
	return s.list(query, req)
}

// ListByReviewer returns everything reviewerID has written, across projects.
func (s *ReviewService) ListByReviewer(reviewerID uint, req *ReviewListRequest) (*ReviewListResponse, error) {
	query := s.db.Model(&models.Review{}).Where("reviewer_id = ?", reviewerID).Session(&gorm.Session{})
	return s.list(query, req)
}

func (s *ReviewService) list(query *gorm.DB, req *ReviewListRequest) (*ReviewListResponse, error) {
	req.Skip, req.Limit = normalizePage(req.Skip, req.Limit)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperr.FromDB(err, "review")
	}
	var reviews []models.Review
	if err := query.Order("created_at ASC, id ASC").Offset(req.Skip).Limit(req.Limit).Find(&reviews).Error; err != nil {
		return nil, apperr.FromDB(err, "review")
	}

	return &ReviewListResponse{
		Total: total,
		Skip:  req.Skip,
		Limit: req.Limit,
		Items: reviews,
	}, nil
}

func (s *ReviewService) Get(projectID uint, taskID string, reviewID uint) (*models.Review, error) {
	return findReview(s.db, projectID, taskID, reviewID)
}

// Update replaces events and comment. Only the author may edit a review;
// anyone else gets NotFound.
func (s *ReviewService) Update(projectID uint, taskID string, reviewID, reviewerID uint, req *ReviewRequest) (*models.Review, error) {
	events, err := eventsOrValidation(req.Events, "events", reviewEvents)
	if err != nil {
		return nil, err
	}

	var review *models.Review
	err = s.db.Transaction(func(tx *gorm.DB) error {
		found, err := findReview(tx, projectID, taskID, reviewID)
		if err != nil {
			return err
		}
		if found.ReviewerID != reviewerID {
			return apperr.NotFound("review not found")
		}
		found.Events = models.JSONValue(events)
		found.Comment = req.Comment
		review = found
		return tx.Save(found).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "review")
	}
	return review, nil
}

func (s *ReviewService) Delete(projectID uint, taskID string, reviewID, reviewerID uint) (*models.Review, error) {
	var review *models.Review
	err := s.db.Transaction(func(tx *gorm.DB) error {
		found, err := findReview(tx, projectID, taskID, reviewID)
		if err != nil {
			return err
		}
		if found.ReviewerID != reviewerID {
			return apperr.NotFound("review not found")
		}
		review = found
		return tx.Delete(found).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "review")
	}
	return review, nil
}

// findReview resolves a review through its task so ids from another project
// never match.
func findReview(db *gorm.DB, projectID uint, taskID string, reviewID uint) (*models.Review, error) {
	if _, err := findTask(db, projectID, taskID); err != nil {
		return nil, err
	}
	var review models.Review
	if err := db.Where("id = ? AND task_id = ?", reviewID, taskID).First(&review).Error; err != nil {
		return nil, apperr.FromDB(err, "review")
	}
	return &review, nil
}
