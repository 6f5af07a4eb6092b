package models

import (
	"time"

	"gorm.io/datatypes"
)

// Task is one unit of annotation work. ID is supplied by the uploader and acts
// as the natural key across all projects.
type Task struct {
	ID        string          `gorm:"primaryKey;size:191" json:"id"`
	ProjectID uint            `gorm:"index;not null" json:"project_id"`
	Article   string          `gorm:"type:text;not null" json:"article"`
	Events    *datatypes.JSON `json:"events"` // original annotation payload, NULL when absent
	CreatedAt time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Task) TableName() string { return "tasks" }
