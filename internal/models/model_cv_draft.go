package models

import (
	"time"

	"gorm.io/datatypes"
)

// CVDraft is a user's résumé draft. CVData is stored as submitted.
type CVDraft struct {
	ID        string         `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID    string         `gorm:"column:user_id;type:varchar(64);not null;index:idx_cv_draft_user_updated,priority:1" json:"user_id"`
	Title     string         `gorm:"column:title;type:varchar(255)" json:"title"`
	CVData    datatypes.JSON `gorm:"column:cv_data;type:jsonb" json:"cv_data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `gorm:"index:idx_cv_draft_user_updated,priority:2,sort:desc" json:"updated_at"`
}

func (CVDraft) TableName() string {
	return "cv_draft"
}
