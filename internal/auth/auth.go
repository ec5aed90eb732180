package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	apperrors "chatseek_go_backend/internal/errors"
	"chatseek_go_backend/internal/models"
	"chatseek_go_backend/internal/services"
	authutil "chatseek_go_backend/internal/utils/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type UserAccounts interface {
	Register(ctx context.Context, reg services.Registration) (*models.User, error)
	Authenticate(ctx context.Context, login, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Username string `json:"username" binding:"required,min=3,max=100"`
	FullName string `json:"full_name" binding:"max=255"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	FullName    string    `json:"full_name"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		FullName:    u.FullName,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt.UTC(),
	}
}

// SetupRoutes mounts the public auth endpoints and the authenticated user
// endpoint on rg.
func SetupRoutes(rg *gin.RouterGroup, users UserAccounts, tokens *authutil.TokenManager, authMiddleware gin.HandlerFunc) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", registerHandler(users))
		auth.POST("/login", loginHandler(users, tokens))
		auth.POST("/refresh", refreshHandler(users, tokens))
	}
	rg.GET("/users/me", authMiddleware, getUser)
}

func registerHandler(users UserAccounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.HandleError(c, apperrors.New400Error(err.Error()))
			return
		}

		user, err := users.Register(c.Request.Context(), services.Registration{
			Email:    req.Email,
			Username: req.Username,
			FullName: req.FullName,
			Password: req.Password,
		})
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		zerolog.Ctx(c.Request.Context()).Info().Str("user_id", user.ID.String()).Msg("User registered")
		c.JSON(http.StatusCreated, NewUserResponse(user))
	}
}

func loginHandler(users UserAccounts, tokens *authutil.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.HandleError(c, apperrors.New400Error(err.Error()))
			return
		}

		user, err := users.Authenticate(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		pair, err := tokens.IssuePair(user)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, pair)
	}
}

func refreshHandler(users UserAccounts, tokens *authutil.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.HandleError(c, apperrors.New400Error(err.Error()))
			return
		}

		userID, err := tokens.Parse(req.RefreshToken, authutil.TokenTypeRefresh)
		if err != nil {
			apperrors.HandleError(c, apperrors.New401Error("Invalid refresh token"))
			return
		}

		user, err := users.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				apperrors.HandleError(c, apperrors.New401Error("User not found or inactive"))
				return
			}
			apperrors.HandleError(c, err)
			return
		}
		if !user.IsActive {
			apperrors.HandleError(c, apperrors.New401Error("User not found or inactive"))
			return
		}

		pair, err := tokens.IssuePair(user)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, pair)
	}
}

func getUser(c *gin.Context) {
	user, ok := authutil.CurrentUser(c)
	if !ok {
		apperrors.HandleError(c, apperrors.New401Error("User not found in context"))
		return
	}
	c.JSON(http.StatusOK, NewUserResponse(user))
}
