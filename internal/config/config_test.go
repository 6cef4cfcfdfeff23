package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_API_ENDPOINT", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("OPENAI_FALLBACK_MODELS", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("ELEVENLABS_MODEL", "")
	t.Setenv("AUDIO_DIR", filepath.Join(t.TempDir(), "audio"))
	t.Setenv("PORT", "")

	cfg := Load()
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Fatalf("OpenAIModel = %q", cfg.OpenAIModel)
	}
	if cfg.OpenAIEndpoint != "https://api.openai.com/v1" {
		t.Fatalf("OpenAIEndpoint = %q", cfg.OpenAIEndpoint)
	}
	if cfg.GeminiModel != "gemini-1.5-flash-latest" {
		t.Fatalf("GeminiModel = %q", cfg.GeminiModel)
	}
	if cfg.ElevenLabsModel != "eleven_multilingual_v2" {
		t.Fatalf("ElevenLabsModel = %q", cfg.ElevenLabsModel)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q", cfg.Port)
	}
}

func TestCandidateModels(t *testing.T) {
	cfg := Config{
		OpenAIModel:    "gpt-4o-mini",
		FallbackModels: []string{"gpt-4o", "gpt-4o-mini", "", "gpt-3.5-turbo"},
	}
	got := cfg.CandidateModels()
	want := []string{"gpt-4o-mini", "gpt-4o", "gpt-3.5-turbo"}
	if len(got) != len(want) {
		t.Fatalf("models = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("models = %v, want %v", got, want)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" gpt-4o , ,gpt-3.5-turbo,")
	if len(got) != 2 || got[0] != "gpt-4o" || got[1] != "gpt-3.5-turbo" {
		t.Fatalf("splitList = %v", got)
	}
	if splitList("   ") != nil {
		t.Fatal("blank input should yield nil")
	}
}
