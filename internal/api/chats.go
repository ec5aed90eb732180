package api

import (
	"net/http"
	"time"

	apperrors "chatseek_go_backend/internal/errors"
	"chatseek_go_backend/internal/models"
	"chatseek_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type createChatRequest struct {
	Title        string  `json:"title" binding:"required,max=255"`
	Model        string  `json:"model" binding:"max=100"`
	SystemPrompt *string `json:"system_prompt"`
}

type updateChatRequest struct {
	Title        *string `json:"title" binding:"omitempty,max=255"`
	Model        *string `json:"model" binding:"omitempty,max=100"`
	SystemPrompt *string `json:"system_prompt"`
}

type ChatResponse struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Title        string    `json:"title"`
	Model        string    `json:"model"`
	SystemPrompt *string   `json:"system_prompt"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int64     `json:"message_count"`
}

type ChatListResponse struct {
	Items      []ChatResponse `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

func newChatResponse(chat *models.Chat, messageCount int64) ChatResponse {
	return ChatResponse{
		ID:           chat.ID,
		UserID:       chat.UserID,
		Title:        chat.Title,
		Model:        chat.Model,
		SystemPrompt: chat.SystemPrompt,
		CreatedAt:    chat.CreatedAt,
		UpdatedAt:    chat.UpdatedAt,
		MessageCount: messageCount,
	}
}

func chatResponse(c *gin.Context, chatService services.ChatServiceDB, chat *models.Chat) (ChatResponse, error) {
	count, err := chatService.CountTurns(c.Request.Context(), chat.ID)
	if err != nil {
		return ChatResponse{}, err
	}
	return newChatResponse(chat, count), nil
}

func createChatHandler(chatService services.ChatServiceDB, defaultModel string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		var req createChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.HandleError(c, apperrors.New400Error(err.Error()))
			return
		}
		if req.Model == "" {
			req.Model = defaultModel
		}

		chat := &models.Chat{
			Title:        req.Title,
			Model:        req.Model,
			SystemPrompt: req.SystemPrompt,
			UserID:       user.ID,
		}
		if err := chatService.CreateChat(c.Request.Context(), chat); err != nil {
			apperrors.HandleError(c, err)
			return
		}

		zerolog.Ctx(c.Request.Context()).Info().Str("chat_id", chat.ID.String()).Msg("Chat created")
		c.JSON(http.StatusCreated, newChatResponse(chat, 0))
	}
}

func listChatsHandler(chatService services.ChatServiceDB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		p, ok := parsePage(c, 20)
		if !ok {
			return
		}

		chats, total, err := chatService.ListChatsForOwner(c.Request.Context(), user.ID, p.offset(), p.Size)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		items := make([]ChatResponse, 0, len(chats))
		for i := range chats {
			resp, err := chatResponse(c, chatService, &chats[i])
			if err != nil {
				apperrors.HandleError(c, err)
				return
			}
			items = append(items, resp)
		}

		c.JSON(http.StatusOK, ChatListResponse{
			Items:      items,
			Total:      total,
			Page:       p.Number,
			PageSize:   p.Size,
			TotalPages: totalPages(total, p.Size),
		})
	}
}

func getChatHandler(chatService services.ChatServiceDB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		chatID, ok := pathUUID(c, "id")
		if !ok {
			return
		}

		chat, err := chatService.GetChatForOwner(c.Request.Context(), chatID, user.ID)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		resp, err := chatResponse(c, chatService, chat)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func updateChatHandler(chatService services.ChatServiceDB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		chatID, ok := pathUUID(c, "id")
		if !ok {
			return
		}

		var req updateChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.HandleError(c, apperrors.New400Error(err.Error()))
			return
		}

		chat, err := chatService.UpdateChat(c.Request.Context(), chatID, user.ID, services.ChatPatch{
			Title:        req.Title,
			Model:        req.Model,
			SystemPrompt: req.SystemPrompt,
		})
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		resp, err := chatResponse(c, chatService, chat)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func deleteChatHandler(chatService services.ChatServiceDB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		chatID, ok := pathUUID(c, "id")
		if !ok {
			return
		}

		if err := chatService.DeleteChat(c.Request.Context(), chatID, user.ID); err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
