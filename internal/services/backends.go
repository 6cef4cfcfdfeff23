package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	genai "google.golang.org/genai"
)

const completionTimeout = 2 * time.Minute

// OpenAIBackend serves completions from an OpenAI-compatible endpoint.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

func NewOpenAIBackend(client *openai.Client, model string) *OpenAIBackend {
	return &OpenAIBackend{client: client, model: model}
}

func (b *OpenAIBackend) ID() string {
	return b.model
}

func (b *OpenAIBackend) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("request completion from %s: %w", b.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// GeminiBackend serves completions from the Gemini API.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

func NewGeminiBackend(ctx context.Context, apiKey, model string) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, errors.New("missing gemini api key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiBackend{client: client, model: model}, nil
}

func (b *GeminiBackend) ID() string {
	return b.model
}

func (b *GeminiBackend) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	res, err := b.client.Models.GenerateContent(ctx, b.model, []*genai.Content{
		genai.NewContentFromText(req.UserPrompt, genai.RoleUser),
	}, cfg)
	if err != nil {
		return "", fmt.Errorf("request completion from %s: %w", b.model, err)
	}
	text := res.Text()
	if text == "" {
		return "", errors.New("completion returned no candidates")
	}
	return text, nil
}
