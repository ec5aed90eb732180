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

type streamMessageRequest struct {
	ChatID  string `json:"chat_id" binding:"required,uuid"`
	Message string `json:"message" binding:"required,min=1"`
}

type MessageResponse struct {
	ID        uuid.UUID   `json:"id"`
	ChatID    uuid.UUID   `json:"chat_id"`
	Role      models.Role `json:"role"`
	Content   string      `json:"content"`
	Tokens    int         `json:"tokens"`
	CreatedAt time.Time   `json:"created_at"`
}

type MessageListResponse struct {
	Items []MessageResponse `json:"items"`
	Total int64             `json:"total"`
}

func listMessagesHandler(chatService services.ChatServiceDB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		chatID, ok := pathUUID(c, "id")
		if !ok {
			return
		}
		p, ok := parsePage(c, 50)
		if !ok {
			return
		}

		if _, err := chatService.GetChatForOwner(c.Request.Context(), chatID, user.ID); err != nil {
			apperrors.HandleError(c, err)
			return
		}

		turns, total, err := chatService.ListTurns(c.Request.Context(), chatID, p.offset(), p.Size)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		items := make([]MessageResponse, 0, len(turns))
		for _, t := range turns {
			items = append(items, MessageResponse{
				ID:        t.ID,
				ChatID:    t.ChatID,
				Role:      t.Role,
				Content:   t.Content,
				Tokens:    t.Tokens,
				CreatedAt: t.CreatedAt,
			})
		}
		c.JSON(http.StatusOK, MessageListResponse{Items: items, Total: total})
	}
}

// streamMessageHandler answers with a conventional JSON error until the
// user turn is stored; after that the response is an event stream.
func streamMessageHandler(coordinator *services.SessionCoordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		var req streamMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.HandleError(c, apperrors.New400Error(err.Error()))
			return
		}
		chatID, err := uuid.Parse(req.ChatID)
		if err != nil {
			apperrors.HandleError(c, apperrors.New400Error("Invalid chat_id"))
			return
		}

		ctx := c.Request.Context()
		session, err := coordinator.Submit(ctx, chatID, user.ID, req.Message)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		outcome := session.Stream(ctx, services.NewStreamRelay(c.Writer))
		zerolog.Ctx(ctx).Debug().
			Str("chat_id", chatID.String()).
			Stringer("outcome", outcome).
			Msg("Stream finished")
	}
}
