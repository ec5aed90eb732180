package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is one turn of a chat. Turns are immutable once written.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	ChatID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Role      Role      `gorm:"type:varchar(10);index;not null"`
	Content   string    `gorm:"not null"`
	Tokens    int       `gorm:"not null;default:0"` // whitespace-delimited word count
	CreatedAt time.Time `gorm:"index"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
