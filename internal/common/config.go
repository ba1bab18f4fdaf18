package common

import (
	"os"
	"strconv"
	"time"

	"github.com/hmogawa/receipt-ocr-batch/internal/llm"
)

// Config holds all application configuration
type Config struct {
	Inference InferenceConfig
	Batch     BatchConfig
}

// InferenceConfig holds Gemini-related configuration
type InferenceConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Prompt  string
	Timeout time.Duration
}

// BatchConfig holds batch-run-related configuration
type BatchConfig struct {
	InputDir    string
	OutputDir   string
	JournalPath string
	MaxRetries  int
	MaxRPM      int
	Window      time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Inference: InferenceConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.5-pro"),
			BaseURL: getEnv("GEMINI_BASE_URL", ""),
			Prompt:  getEnv("EXTRACTION_PROMPT", llm.DefaultReceiptPrompt),
			Timeout: getEnvAsDuration("GEMINI_TIMEOUT", 90*time.Second),
		},
		Batch: BatchConfig{
			InputDir:    getEnv("INPUT_DIR", "./data/jpg"),
			OutputDir:   getEnv("OUTPUT_DIR", "./data/json"),
			JournalPath: getEnv("JOURNAL_PATH", ""),
			MaxRetries:  getEnvAsInt("MAX_RETRIES", 3),
			MaxRPM:      getEnvAsInt("MAX_RPM", 4),
			Window:      getEnvAsDuration("RATE_WINDOW", 60*time.Second),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Inference.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrInvalidInput)
	}
	if c.Batch.MaxRPM <= 0 {
		return NewAppError("CONFIG_ERROR", "MAX_RPM must be positive", ErrInvalidInput)
	}
	if c.Batch.MaxRetries <= 0 {
		return NewAppError("CONFIG_ERROR", "MAX_RETRIES must be positive", ErrInvalidInput)
	}
	if c.Batch.Window <= 0 {
		return NewAppError("CONFIG_ERROR", "RATE_WINDOW must be positive", ErrInvalidInput)
	}
	return nil
}
