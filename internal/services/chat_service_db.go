package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "chatseek_go_backend/internal/errors"
	"chatseek_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatPatch lists every updatable chat field; nil means "leave unchanged".
type ChatPatch struct {
	Title        *string
	Model        *string
	SystemPrompt *string
}

func (p ChatPatch) updates(now time.Time) map[string]interface{} {
	fields := map[string]interface{}{"updated_at": now}
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Model != nil {
		fields["model"] = *p.Model
	}
	if p.SystemPrompt != nil {
		fields["system_prompt"] = *p.SystemPrompt
	}
	return fields
}

// ChatServiceDB defines the storage operations for chats and their turns
type ChatServiceDB interface {
	ChatStore
	CreateChat(ctx context.Context, chat *models.Chat) error
	ListChatsForOwner(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Chat, int64, error)
	UpdateChat(ctx context.Context, chatID, userID uuid.UUID, patch ChatPatch) (*models.Chat, error)
	DeleteChat(ctx context.Context, chatID, userID uuid.UUID) error
	ListTurns(ctx context.Context, chatID uuid.UUID, offset, limit int) ([]models.Message, int64, error)
	CountTurns(ctx context.Context, chatID uuid.UUID) (int64, error)
}

// DefaultChatService implements ChatServiceDB
type DefaultChatService struct {
	db *gorm.DB
}

// NewChatServiceDB creates a new DefaultChatService
func NewChatServiceDB(db *gorm.DB) ChatServiceDB {
	return &DefaultChatService{db: db}
}

func chatNotFound() error {
	return apperrors.New404Error("Chat not found")
}

func (s *DefaultChatService) CreateChat(ctx context.Context, chat *models.Chat) error {
	return s.db.WithContext(ctx).Create(chat).Error
}

// GetChatForOwner returns the chat only when it belongs to userID.
func (s *DefaultChatService) GetChatForOwner(ctx context.Context, chatID, userID uuid.UUID) (*models.Chat, error) {
	var chat models.Chat
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", chatID, userID).First(&chat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, chatNotFound()
		}
		return nil, err
	}
	return &chat, nil
}

func (s *DefaultChatService) ListChatsForOwner(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Chat, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Chat{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var chats []models.Chat
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("updated_at desc").
		Offset(offset).
		Limit(limit).
		Find(&chats)
	if result.Error != nil {
		return nil, 0, result.Error
	}
	return chats, total, nil
}

func (s *DefaultChatService) UpdateChat(ctx context.Context, chatID, userID uuid.UUID, patch ChatPatch) (*models.Chat, error) {
	result := s.db.WithContext(ctx).Model(&models.Chat{}).
		Where("id = ? AND user_id = ?", chatID, userID).
		Updates(patch.updates(time.Now().UTC()))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, chatNotFound()
	}
	return s.GetChatForOwner(ctx, chatID, userID)
}

// DeleteChat deletes a chat and its associated messages
func (s *DefaultChatService) DeleteChat(ctx context.Context, chatID, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat models.Chat
		if err := tx.Where("id = ? AND user_id = ?", chatID, userID).First(&chat).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return chatNotFound()
			}
			return err
		}
		if err := tx.Where("chat_id = ?", chat.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&chat).Error
	})
}

func (s *DefaultChatService) CreateTurn(ctx context.Context, turn *models.Message) error {
	if !turn.Role.Valid() {
		return fmt.Errorf("invalid role %q", turn.Role)
	}
	return s.db.WithContext(ctx).Create(turn).Error
}

// UpdateChatFreshness sets only updated_at. The explicit value wins over
// gorm's autoUpdateTime.
func (s *DefaultChatService) UpdateChatFreshness(ctx context.Context, chatID uuid.UUID, ts time.Time) error {
	return s.db.WithContext(ctx).Model(&models.Chat{}).
		Where("id = ?", chatID).
		Update("updated_at", ts).Error
}

// GetRecentTurns returns up to limit turns, newest first.
func (s *DefaultChatService) GetRecentTurns(ctx context.Context, chatID uuid.UUID, limit int) ([]models.Message, error) {
	var turns []models.Message
	result := s.db.WithContext(ctx).Where("chat_id = ?", chatID).
		Order("created_at desc").
		Limit(limit).
		Find(&turns)
	if result.Error != nil {
		return nil, result.Error
	}
	return turns, nil
}

func (s *DefaultChatService) ListTurns(ctx context.Context, chatID uuid.UUID, offset, limit int) ([]models.Message, int64, error) {
	total, err := s.CountTurns(ctx, chatID)
	if err != nil {
		return nil, 0, err
	}

	var turns []models.Message
	result := s.db.WithContext(ctx).Where("chat_id = ?", chatID).
		Order("created_at asc").
		Offset(offset).
		Limit(limit).
		Find(&turns)
	if result.Error != nil {
		return nil, 0, result.Error
	}
	return turns, total, nil
}

func (s *DefaultChatService) CountTurns(ctx context.Context, chatID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).Where("chat_id = ?", chatID).Count(&count).Error
	return count, err
}
