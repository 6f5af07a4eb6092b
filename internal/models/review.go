package models

import (
	"time"

	"gorm.io/datatypes"
)

// Review is a reviewer's correction or confirmation of a task's events.
// At most one review per (task, reviewer) is expected but not enforced.
type Review struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	TaskID     string          `gorm:"size:191;not null;index:idx_reviews_task_reviewer,priority:1" json:"task_id"`
	ReviewerID uint            `gorm:"not null;index:idx_reviews_task_reviewer,priority:2;index" json:"reviewer_id"`
	Events     *datatypes.JSON `json:"events"`
	Comment    *string         `gorm:"type:text" json:"comment"`
	CreatedAt  time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (Review) TableName() string { return "reviews" }
