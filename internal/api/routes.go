package api

import (
	"math"
	"net/http"
	"strconv"

	apperrors "chatseek_go_backend/internal/errors"
	"chatseek_go_backend/internal/models"
	"chatseek_go_backend/internal/services"
	authutil "chatseek_go_backend/internal/utils/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxPageSize = 100

func SetupRoutes(rg *gin.RouterGroup, chatService services.ChatServiceDB, coordinator *services.SessionCoordinator, modelLister services.ModelLister, defaultModel string, authMiddleware gin.HandlerFunc) {
	chats := rg.Group("/chats", authMiddleware)
	{
		chats.POST("", createChatHandler(chatService, defaultModel))
		chats.GET("", listChatsHandler(chatService))
		chats.GET("/:id", getChatHandler(chatService))
		chats.PUT("/:id", updateChatHandler(chatService))
		chats.DELETE("/:id", deleteChatHandler(chatService))
	}

	messages := rg.Group("/messages", authMiddleware)
	{
		messages.GET("/chat/:id", listMessagesHandler(chatService))
		messages.POST("/stream", streamMessageHandler(coordinator))
	}

	rg.GET("/ollama/models", authMiddleware, listModelsHandler(modelLister))
}

// SetupHealthRoute mounts the unauthenticated health probe at the root.
func SetupHealthRoute(r *gin.Engine, modelLister services.ModelLister) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"inference": modelLister.CheckHealth(c.Request.Context()),
		})
	})
}

func listModelsHandler(modelLister services.ModelLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, modelLister.ListModels(c.Request.Context()))
	}
}

func currentUser(c *gin.Context) (*models.User, bool) {
	user, ok := authutil.CurrentUser(c)
	if !ok {
		apperrors.HandleError(c, apperrors.New401Error("User not found in context"))
		return nil, false
	}
	return user, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		apperrors.HandleError(c, apperrors.New400Error("Invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

type page struct {
	Number int
	Size   int
}

func (p page) offset() int {
	return (p.Number - 1) * p.Size
}

func totalPages(total int64, size int) int {
	if total == 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(size)))
}

// parsePage reads ?page and ?page_size; page starts at 1 and page_size is
// capped at maxPageSize.
func parsePage(c *gin.Context, defaultSize int) (page, bool) {
	p := page{Number: 1, Size: defaultSize}

	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			apperrors.HandleError(c, apperrors.New400Error("page must be a positive integer"))
			return p, false
		}
		p.Number = n
	}
	if raw := c.Query("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageSize {
			apperrors.HandleError(c, apperrors.New400Error("page_size must be between 1 and 100"))
			return p, false
		}
		p.Size = n
	}
	return p, true
}
