package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"studyforge/internal/models"
)

// SpeechClient synthesizes audio bytes for a script.
type SpeechClient interface {
	Synthesize(ctx context.Context, script, voiceID, model string) ([]byte, error)
}

// TTSService attempts the primary speech provider first, then the secondary.
// The primary is eligible only when both a client and a voice identifier are
// configured; the two are never called in parallel.
type TTSService struct {
	primary   SpeechClient
	secondary SpeechClient
	voiceID   string
	model     string
	audioDir  string
	now       func() time.Time
}

func NewTTSService(primary, secondary SpeechClient, voiceID, model, audioDir string) *TTSService {
	return &TTSService{
		primary:   primary,
		secondary: secondary,
		voiceID:   voiceID,
		model:     model,
		audioDir:  audioDir,
		now:       time.Now,
	}
}

// Synthesize runs the provider fallback chain and writes the resulting audio
// under a timestamp-derived filename.
func (s *TTSService) Synthesize(ctx context.Context, req models.TTSRequest) (*models.TTSResult, error) {
	if strings.TrimSpace(req.Script) == "" {
		return nil, &InputError{Message: "script must not be empty"}
	}

	voice := req.VoiceID
	if voice == "" {
		voice = s.voiceID
	}
	model := req.Model
	if model == "" {
		model = s.model
	}

	var primaryErr error
	if s.primary != nil && voice != "" {
		audio, err := s.primary.Synthesize(ctx, req.Script, voice, model)
		if err == nil {
			return s.store(audio, models.TTSPrimary, "elevenlabs")
		}
		primaryErr = err
		fmt.Fprintf(os.Stderr, "primary tts provider failed, trying secondary: %v\n", err)
	}

	if s.secondary == nil {
		if primaryErr != nil {
			return nil, fmt.Errorf("speech synthesis failed: primary: %v", primaryErr)
		}
		return nil, errors.New("no speech provider is configured")
	}

	audio, err := s.secondary.Synthesize(ctx, req.Script, "", "")
	if err != nil {
		if primaryErr != nil {
			return nil, fmt.Errorf("speech synthesis failed: primary: %v; secondary: %v", primaryErr, err)
		}
		return nil, fmt.Errorf("speech synthesis failed: secondary: %v", err)
	}
	return s.store(audio, models.TTSSecondary, "gtts")
}

func (s *TTSService) store(audio []byte, provider models.TTSProvider, engine string) (*models.TTSResult, error) {
	filename := fmt.Sprintf("podcast_%s_%s.mp3", s.now().UTC().Format("20060102T150405"), uuid.NewString()[:8])
	path := filepath.Join(s.audioDir, filename)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return nil, fmt.Errorf("write audio file: %w", err)
	}
	return &models.TTSResult{
		Filename: filename,
		Path:     path,
		Provider: provider,
		Engine:   engine,
	}, nil
}

// ElevenLabsClient calls the ElevenLabs text-to-speech HTTP API.
type ElevenLabsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewElevenLabsClient(apiKey, baseURL string) *ElevenLabsClient {
	if baseURL == "" {
		baseURL = "https://api.elevenlabs.io"
	}
	return &ElevenLabsClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (c *ElevenLabsClient) Synthesize(ctx context.Context, script, voiceID, model string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, errors.New("elevenlabs api key is not configured")
	}
	if model == "" {
		model = "eleven_multilingual_v2"
	}

	body, err := jsonBody(map[string]any{
		"text":     script,
		"model_id": model,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, url.PathEscape(voiceID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create tts request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute tts request: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tts response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs error: status=%d, body=%s", resp.StatusCode, excerpt(string(audio)))
	}
	if len(audio) == 0 {
		return nil, errors.New("elevenlabs returned empty audio")
	}
	return audio, nil
}

// gttsChunkLimit is the per-request character ceiling of the translate TTS
// endpoint.
const gttsChunkLimit = 200

// GoogleTranslateTTSClient fetches MP3 audio from the public Google Translate
// speech endpoint. It needs no credentials and serves as the secondary
// provider with a fixed default language.
type GoogleTranslateTTSClient struct {
	language   string
	baseURL    string
	httpClient *http.Client
}

func NewGoogleTranslateTTSClient(language string) *GoogleTranslateTTSClient {
	if language == "" {
		language = "en"
	}
	return &GoogleTranslateTTSClient{
		language: language,
		baseURL:  "https://translate.google.com/translate_tts",
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *GoogleTranslateTTSClient) Synthesize(ctx context.Context, script, _, _ string) ([]byte, error) {
	var out bytes.Buffer
	for _, chunk := range chunkScript(script, gttsChunkLimit) {
		audio, err := c.fetchChunk(ctx, chunk)
		if err != nil {
			return nil, err
		}
		out.Write(audio)
	}
	if out.Len() == 0 {
		return nil, errors.New("translate tts returned empty audio")
	}
	return out.Bytes(), nil
}

func (c *GoogleTranslateTTSClient) fetchChunk(ctx context.Context, chunk string) ([]byte, error) {
	query := url.Values{}
	query.Set("ie", "UTF-8")
	query.Set("client", "tw-ob")
	query.Set("tl", c.language)
	query.Set("q", chunk)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create translate tts request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute translate tts request: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read translate tts response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("translate tts error: status=%d", resp.StatusCode)
	}
	return audio, nil
}

// chunkScript splits the script on whitespace into pieces at most limit runes
// long. MP3 frames from consecutive requests concatenate into one playable
// stream.
func chunkScript(script string, limit int) []string {
	words := strings.Fields(script)
	var chunks []string
	var current strings.Builder
	for _, word := range words {
		if current.Len() > 0 && current.Len()+1+len(word) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		// A single overlong word is emitted on its own rather than split.
		current.WriteString(word)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
