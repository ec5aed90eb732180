package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"chatseek_go_backend/cmd/api/config"
	"chatseek_go_backend/internal/api"
	"chatseek_go_backend/internal/auth"
	"chatseek_go_backend/internal/database"
	"chatseek_go_backend/internal/services"
	authutil "chatseek_go_backend/internal/utils/auth"
	"chatseek_go_backend/internal/utils/broker"
	"chatseek_go_backend/internal/wsocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Debug {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	zerolog.DefaultContextLogger = &log.Logger
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	setupLogger(cfg)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	db, err := database.InitDB(cfg.DatabaseURL, cfg.Debug)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	messageBroker := broker.NewBroker()
	chatServiceDB := services.NewChatServiceDB(db)
	userService := services.NewUserService(db)
	tokens := authutil.NewTokenManager(cfg.SecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Ollama always backs model listing and the health probe.
	ollamaClient := services.NewOllamaClient(cfg.OllamaBaseURL, cfg.DefaultModel, cfg.GenerationTimeout)

	var generator services.Generator = ollamaClient
	if cfg.Provider == config.ProviderGemini {
		genaiClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GoogleAIAPIKey))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GenAI client")
		}
		defer genaiClient.Close()
		generator = services.NewGeminiClient(genaiClient, cfg.DefaultModel, cfg.GenerationTimeout)
	}
	log.Info().Str("provider", cfg.Provider).Str("default_model", cfg.DefaultModel).Msg("Generation provider configured")

	coordinator := services.NewSessionCoordinator(chatServiceDB, generator, messageBroker, cfg.ContextWindowSize)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(api.RequestLogger(log.Logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authMiddleware := authutil.AuthMiddleware(tokens, userService)

	v1 := r.Group(cfg.APIPrefix)
	auth.SetupRoutes(v1, userService, tokens, authMiddleware)
	api.SetupRoutes(v1, chatServiceDB, coordinator, ollamaClient, cfg.DefaultModel, authMiddleware)
	api.SetupHealthRoute(r, ollamaClient)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range cfg.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	wsHandler := wsocket.NewHandler(messageBroker, upgrader, cfg.WebsocketPingEvery)

	r.GET("/ws", authMiddleware, func(c *gin.Context) {
		user, ok := authutil.CurrentUser(c)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		wsHandler.HandleWebSocket(c.Writer, c.Request, user)
	})

	log.Info().Str("port", cfg.Port).Msg("Server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
