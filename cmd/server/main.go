package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"studyforge/internal/api"
	"studyforge/internal/config"
	"studyforge/internal/services"
	"studyforge/internal/websearch"
)

func main() {
	cfg := config.Load()

	var backends []services.Backend
	if cfg.OpenAIKey != "" {
		clientCfg := openai.DefaultConfig(cfg.OpenAIKey)
		clientCfg.BaseURL = cfg.OpenAIEndpoint
		client := openai.NewClientWithConfig(clientCfg)
		for _, model := range cfg.CandidateModels() {
			backends = append(backends, services.NewOpenAIBackend(client, model))
		}
	}
	if cfg.GeminiKey != "" {
		gemini, err := services.NewGeminiBackend(context.Background(), cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "gemini backend unavailable: %v\n", err)
		} else {
			backends = append(backends, gemini)
		}
	}
	if len(backends) == 0 {
		fmt.Fprintln(os.Stderr, "warning: no AI backend configured, generation endpoints will fail")
	}

	search := websearch.NewService(websearch.Config{})
	orchestrator := services.NewOrchestrator(backends, services.NewScheduleSynthesizer(), search)

	var primary services.SpeechClient
	if cfg.ElevenLabsKey != "" {
		primary = services.NewElevenLabsClient(cfg.ElevenLabsKey, "")
	}
	tts := services.NewTTSService(
		primary,
		services.NewGoogleTranslateTTSClient("en"),
		cfg.ElevenLabsVoice,
		cfg.ElevenLabsModel,
		cfg.AudioDir,
	)

	server := api.NewServer(orchestrator, services.NewPDFService(), tts, services.NewRenderService())

	mux := http.NewServeMux()
	mux.Handle("/api/", server.Handler())
	mux.Handle("/static/audio/", http.StripPrefix("/static/audio/",
		http.FileServer(http.Dir(cfg.AudioDir))))

	addr := ":" + cfg.Port
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	fmt.Printf("studyforge listening on %s\n", addr)
	if err := httpServer.ListenAndServe(); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
