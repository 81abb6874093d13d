package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port    string
	LogMode string

	GeminiAPIKey    string
	GeminiModel     string
	MaxOutputTokens int32
	ThinkingBudget  int32
	RequestTimeout  time.Duration
	MaxImageSide    int

	DataDir     string
	DatabaseURL string
	// JournalRetention is how long journal rows are kept; 0 keeps them forever.
	JournalRetention time.Duration
	ChromePath       string

	TelegramBotToken string
	WebhookURL       string
}

// CredentialDir is where the credential slot lives.
func (c *Config) CredentialDir() string {
	return filepath.Join(c.DataDir, "credential")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8000")
	v.SetDefault("log_mode", "dev")
	v.SetDefault("gemini_model", "gemini-2.5-flash")
	v.SetDefault("max_output_tokens", 65536)
	v.SetDefault("thinking_budget", 4096)
	v.SetDefault("request_timeout", "180s")
	v.SetDefault("max_image_side", 3072)
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("journal_retention", "2160h")
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "giaoan")
	}
	return ".giaoan"
}

// Load reads .env (if present), an optional config file named by
// GIAOAN_CONFIG, then environment variables. Later sources win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path := strings.TrimSpace(os.Getenv("GIAOAN_CONFIG")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	v.AutomaticEnv()
	_ = v.BindEnv("gemini_api_key", "GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")

	cfg := &Config{
		Port:    strings.TrimSpace(v.GetString("port")),
		LogMode: v.GetString("log_mode"),

		GeminiAPIKey:    strings.TrimSpace(v.GetString("gemini_api_key")),
		GeminiModel:     strings.TrimSpace(v.GetString("gemini_model")),
		MaxOutputTokens: v.GetInt32("max_output_tokens"),
		ThinkingBudget:  v.GetInt32("thinking_budget"),
		RequestTimeout:  v.GetDuration("request_timeout"),
		MaxImageSide:    v.GetInt("max_image_side"),

		DataDir:          v.GetString("data_dir"),
		DatabaseURL:      strings.TrimSpace(v.GetString("database_url")),
		JournalRetention: v.GetDuration("journal_retention"),
		ChromePath:       v.GetString("chrome_path"),

		TelegramBotToken: strings.TrimSpace(v.GetString("telegram_bot_token")),
		WebhookURL:       strings.TrimSpace(v.GetString("webhook_url")),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.GeminiModel == "" {
		return fmt.Errorf("config: gemini_model is empty")
	}
	if c.MaxOutputTokens <= 0 {
		return fmt.Errorf("config: max_output_tokens must be > 0, got %d", c.MaxOutputTokens)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: request_timeout must be > 0")
	}
	if c.MaxImageSide < 0 {
		return fmt.Errorf("config: max_image_side must be >= 0")
	}
	return nil
}
