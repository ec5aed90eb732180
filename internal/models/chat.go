package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Chat struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	Title        string    `gorm:"size:255;not null"`
	Model        string    `gorm:"size:100;not null"`
	SystemPrompt *string
	UserID       uuid.UUID `gorm:"type:uuid;index;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time `gorm:"index"` // freshness: latest turn activity
	Messages     []Message `gorm:"foreignKey:ChatID"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
