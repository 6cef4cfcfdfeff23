package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studyforge/internal/models"
)

// ErrAIUnavailable is returned when no completion backend is configured.
var ErrAIUnavailable = errors.New("no completion backend is configured")

// CompletionRequest is the payload handed to each candidate backend.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float32
}

// Backend is a single text-generation service addressed by identifier.
type Backend interface {
	ID() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// GenerationRequest pairs a completion payload with the ordered candidate
// backends to try. Built fresh per call and never mutated.
type GenerationRequest struct {
	Feature      models.FeatureKind
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float32
	Backends     []Backend
}

const (
	OutcomeSuccess          = "success"
	OutcomeTransientFailure = "transient_failure"
	OutcomePermanentFailure = "permanent_failure"
)

// Attempt records the outcome of one backend call.
type Attempt struct {
	BackendID string `json:"backend"`
	Outcome   string `json:"outcome"`
	Reason    string `json:"reason,omitempty"`
}

// AttemptLog is the ordered record of backend attempts for one request.
// Diagnostic only; never persisted.
type AttemptLog []Attempt

func (l AttemptLog) String() string {
	parts := make([]string, 0, len(l))
	for _, a := range l {
		if a.Reason == "" {
			parts = append(parts, fmt.Sprintf("%s: %s", a.BackendID, a.Outcome))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s (%s)", a.BackendID, a.Outcome, a.Reason))
	}
	return strings.Join(parts, "; ")
}

// BackendExhaustedError reports that every candidate backend failed.
type BackendExhaustedError struct {
	Attempts AttemptLog
}

func (e *BackendExhaustedError) Error() string {
	return fmt.Sprintf("all %d completion backends failed: %s", len(e.Attempts), e.Attempts)
}

// RunChain attempts each candidate backend in order and returns the first
// non-empty completion. Every failure, transient or not, moves on to the next
// candidate: backend errors are treated as potentially backend-specific, so
// the list is always exhausted before giving up.
func RunChain(ctx context.Context, req GenerationRequest) (string, AttemptLog, error) {
	if len(req.Backends) == 0 {
		return "", nil, ErrAIUnavailable
	}

	payload := CompletionRequest{
		SystemPrompt: req.SystemPrompt,
		UserPrompt:   req.UserPrompt,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
	}

	log := make(AttemptLog, 0, len(req.Backends))
	for _, backend := range req.Backends {
		text, err := backend.Complete(ctx, payload)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errors.New("backend returned an empty completion")
		}
		if err != nil {
			log = append(log, Attempt{
				BackendID: backend.ID(),
				Outcome:   classifyBackendError(err),
				Reason:    err.Error(),
			})
			continue
		}
		log = append(log, Attempt{BackendID: backend.ID(), Outcome: OutcomeSuccess})
		return text, log, nil
	}
	return "", log, &BackendExhaustedError{Attempts: log}
}

// classifyBackendError tags not-found style rejections (deprecated or renamed
// model identifiers, unsupported endpoints) as transient so the log shows why
// the chain moved on. The chain proceeds either way.
func classifyBackendError(err error) string {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"not found",
		"not_found",
		"does not exist",
		"unknown model",
		"unsupported",
		"invalid model",
		"404",
	} {
		if strings.Contains(msg, marker) {
			return OutcomeTransientFailure
		}
	}
	return OutcomePermanentFailure
}
