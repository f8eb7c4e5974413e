package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Dream is a journal entry. VideoURL is set once a generated video is linked.
type Dream struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Title     string    `gorm:"column:title;not null"`
	Content   string    `gorm:"column:content;not null"`
	ImageURL  *string   `gorm:"column:image_url"`
	VideoURL  *string   `gorm:"column:video_url"`
	IsPublic  bool      `gorm:"column:is_public;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Dream) TableName() string {
	return "dream_entries"
}

func (d *Dream) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
