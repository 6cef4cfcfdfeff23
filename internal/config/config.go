package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	OpenAIKey      string
	OpenAIEndpoint string
	OpenAIModel    string
	FallbackModels []string
	GeminiKey      string
	GeminiModel    string

	ElevenLabsKey   string
	ElevenLabsVoice string
	ElevenLabsModel string

	AudioDir string
	Port     string
}

// Load reads configuration from the environment, providing sensible defaults.
// Missing API keys are allowed: the affected services degrade to call-time
// errors instead of failing startup.
func Load() Config {
	// Load .env file if it exists (useful for development)
	_ = godotenv.Load()
	cfg := Config{
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIEndpoint: getEnv("OPENAI_API_ENDPOINT", "https://api.openai.com/v1"),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		FallbackModels: splitList(os.Getenv("OPENAI_FALLBACK_MODELS")),
		GeminiKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-1.5-flash-latest"),

		ElevenLabsKey:   os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsVoice: os.Getenv("ELEVENLABS_VOICE_ID"),
		ElevenLabsModel: getEnv("ELEVENLABS_MODEL", "eleven_multilingual_v2"),

		AudioDir: getEnv("AUDIO_DIR", "./static/audio"),
		Port:     getEnv("PORT", "8080"),
	}

	if err := os.MkdirAll(cfg.AudioDir, 0o755); err != nil {
		log.Fatalf("failed to ensure audio dir %s: %v", cfg.AudioDir, err)
	}

	return cfg
}

// CandidateModels returns the ordered completion-model identifiers to try.
func (c Config) CandidateModels() []string {
	out := []string{c.OpenAIModel}
	for _, m := range c.FallbackModels {
		if m != "" && m != c.OpenAIModel {
			out = append(out, m)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
