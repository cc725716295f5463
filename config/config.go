// Package config loads server and CLI settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"nomiko-backend/llm"
	"nomiko-backend/storage"
)

// Config holds every runtime setting
type Config struct {
	Port           string
	GeminiAPIKey   string
	GeminiModel    string
	LLMTimeout     time.Duration
	LLMTemperature float32
	SessionIdleTTL time.Duration
	LogLevel       string
	LogFormat      string
	Storage        storage.StorageConfig
}

// envFiles are tried in order; the second one covers running from cmd/<tool>/
var envFiles = []string{".env", "../../.env"}

// Load reads .env (if any) and then the process environment
func Load() (*Config, error) {
	for _, path := range envFiles {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
			break
		}
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("GEMINI_MODEL", llm.DefaultModel)
	v.SetDefault("LLM_TIMEOUT", llm.DefaultTimeout)
	v.SetDefault("LLM_TEMPERATURE", llm.DefaultTemperature)
	v.SetDefault("SESSION_IDLE_TTL", 2*time.Hour)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("STORAGE_TYPE", string(storage.StorageTypeLocal))
	v.SetDefault("STORAGE_LOCAL_PATH", "./storage/files")
	v.SetDefault("AWS_REGION", "us-east-1")
	// AutomaticEnv only sees keys viper already knows about.
	for _, key := range []string{"GEMINI_API_KEY", "AWS_S3_BUCKET", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY"} {
		_ = v.BindEnv(key)
	}
	return v
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:           v.GetString("PORT"),
		GeminiAPIKey:   v.GetString("GEMINI_API_KEY"),
		GeminiModel:    v.GetString("GEMINI_MODEL"),
		LLMTimeout:     v.GetDuration("LLM_TIMEOUT"),
		LLMTemperature: float32(v.GetFloat64("LLM_TEMPERATURE")),
		SessionIdleTTL: v.GetDuration("SESSION_IDLE_TTL"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFormat:      v.GetString("LOG_FORMAT"),
		Storage: storage.StorageConfig{
			Type:         storage.StorageType(strings.ToLower(v.GetString("STORAGE_TYPE"))),
			LocalPath:    v.GetString("STORAGE_LOCAL_PATH"),
			S3Bucket:     v.GetString("AWS_S3_BUCKET"),
			S3Region:     v.GetString("AWS_REGION"),
			AWSAccessKey: v.GetString("AWS_ACCESS_KEY_ID"),
			AWSSecretKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges. A missing API key is not an error here;
// the Gemini transport reports it when it is built.
func (c *Config) Validate() error {
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive, got %s", c.LLMTimeout)
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2, got %v", c.LLMTemperature)
	}
	if c.SessionIdleTTL < 0 {
		return fmt.Errorf("SESSION_IDLE_TTL must not be negative, got %s", c.SessionIdleTTL)
	}
	return c.Storage.Validate()
}

// Gemini returns the transport settings
func (c *Config) Gemini() llm.GeminiConfig {
	temperature := c.LLMTemperature
	return llm.GeminiConfig{
		APIKey:      c.GeminiAPIKey,
		Model:       c.GeminiModel,
		Timeout:     c.LLMTimeout,
		Temperature: &temperature,
	}
}
