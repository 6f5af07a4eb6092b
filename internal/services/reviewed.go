package services

import (
	"github.com/huangang/annoreview/internal/models"
	"gorm.io/gorm"
)

// reviewedBy is the correlated subquery selecting reviews of the outer task
// row written by userID. Use with EXISTS / NOT EXISTS.
func reviewedBy(db *gorm.DB, userID uint) *gorm.DB {
	return db.Model(&models.Review{}).
		Select("1").
		Where("reviews.task_id = tasks.id AND reviews.reviewer_id = ?", userID)
}

// reviewedTaskIDs returns the subset of taskIDs that userID has reviewed.
func reviewedTaskIDs(db *gorm.DB, userID uint, taskIDs []string) (map[string]bool, error) {
	reviewed := make(map[string]bool, len(taskIDs))
	if len(taskIDs) == 0 {
		return reviewed, nil
	}

	var ids []string
	err := db.Model(&models.Review{}).
		Distinct("task_id").
		Where("reviewer_id = ? AND task_id IN ?", userID, taskIDs).
		Pluck("task_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		reviewed[id] = true
	}
	return reviewed, nil
}
