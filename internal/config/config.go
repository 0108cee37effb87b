package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries every tunable the service reads from the environment.
// Call godotenv.Load in main before FromEnv so a local .env is honored.
type Config struct {
	Port string

	// Object storage collaborator.
	StorageBaseURL string
	DefaultBucket  string

	// Transcription provider.
	TranscribeBaseURL  string
	TranscribeAPIKey   string
	TranscribeLanguage string
	PollInterval       time.Duration
	PollCeiling        time.Duration

	// LLM gateway (OpenAI-compatible chat completions).
	LLMGatewayURL string
	LLMAPIKey     string
	LLMModel      string

	// Optional participant roster workbook.
	RosterPath string
}

// FromEnv builds a Config from environment variables, applying defaults
// where a variable is unset or unparsable.
func FromEnv() Config {
	return Config{
		Port:               getEnv("PORT", "8080"),
		StorageBaseURL:     os.Getenv("STORAGE_BASE_URL"),
		DefaultBucket:      getEnv("STORAGE_BUCKET", "meeting-recordings"),
		TranscribeBaseURL:  os.Getenv("TRANSCRIBE_URL"),
		TranscribeAPIKey:   os.Getenv("TRANSCRIBE_API_KEY"),
		TranscribeLanguage: getEnv("TRANSCRIBE_LANGUAGE", "en"),
		PollInterval:       getEnvDuration("TRANSCRIBE_POLL_INTERVAL_SEC", 5*time.Second),
		PollCeiling:        getEnvDuration("TRANSCRIBE_POLL_CEILING_SEC", 900*time.Second),
		LLMGatewayURL:      os.Getenv("LLM_GATEWAY_URL"),
		LLMAPIKey:          os.Getenv("LLM_API_KEY"),
		LLMModel:           getEnv("LLM_MODEL", "gpt-4o"),
		RosterPath:         os.Getenv("ROSTER_PATH"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}
