package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"chatseek_go_backend/internal/database"
)

const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

type Config struct {
	Port               string
	DatabaseURL        string
	SecretKey          string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	OllamaBaseURL      string
	DefaultModel       string
	GenerationTimeout  time.Duration
	ContextWindowSize  int
	Provider           string
	GoogleAIAPIKey     string
	AllowedOrigins     []string
	APIPrefix          string
	Debug              bool
	LogLevel           string
	WebsocketPingEvery time.Duration
}

// Load reads the configuration from the environment, applying defaults.
// Call Validate before use.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "3000"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SecretKey:          os.Getenv("SECRET_KEY"),
		OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		DefaultModel:       getEnv("DEFAULT_MODEL", "llama3"),
		Provider:           strings.ToLower(getEnv("GENERATION_PROVIDER", ProviderOllama)),
		GoogleAIAPIKey:     os.Getenv("GOOGLE_AI_STUDIO_API_KEY"),
		AllowedOrigins:     splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		APIPrefix:          getEnv("API_PREFIX", "/api/v1"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		WebsocketPingEvery: 30 * time.Second,
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = database.DSNFromEnv()
	}

	var err error
	accessMinutes, err := getInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60)
	if err != nil {
		return nil, err
	}
	cfg.AccessTokenTTL = time.Duration(accessMinutes) * time.Minute

	refreshDays, err := getInt("REFRESH_TOKEN_EXPIRE_DAYS", 30)
	if err != nil {
		return nil, err
	}
	cfg.RefreshTokenTTL = time.Duration(refreshDays) * 24 * time.Hour

	if cfg.GenerationTimeout, err = getDuration("GENERATION_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ContextWindowSize, err = getInt("CONTEXT_WINDOW_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.Debug, err = getBool("DEBUG", false); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.SecretKey) < 16 {
		return fmt.Errorf("SECRET_KEY must be set and at least 16 characters long")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL or DB_HOST/DB_USER/DB_NAME must be set")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.GenerationTimeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be positive")
	}
	if c.ContextWindowSize < 1 {
		return fmt.Errorf("CONTEXT_WINDOW_SIZE must be at least 1")
	}
	switch c.Provider {
	case ProviderOllama:
	case ProviderGemini:
		if c.GoogleAIAPIKey == "" {
			return fmt.Errorf("GOOGLE_AI_STUDIO_API_KEY is required for the gemini provider")
		}
	default:
		return fmt.Errorf("unknown GENERATION_PROVIDER %q", c.Provider)
	}
	if !strings.HasPrefix(c.APIPrefix, "/") {
		return fmt.Errorf("API_PREFIX must start with /")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// getDuration accepts Go durations ("90s", "2m") or a bare number of seconds.
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
