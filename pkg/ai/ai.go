// Package ai wraps hosted completion providers behind a single Client interface.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/studyabroad-api/pkg/config"
)

// ErrNotConfigured is returned when no provider credentials are available.
var ErrNotConfigured = errors.New("ai provider not configured")

// ErrEmptyCompletion is returned when the provider answers without content.
var ErrEmptyCompletion = errors.New("ai provider returned no content")

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes a single completion call.
type Request struct {
	System      string
	Messages    []Message
	JSON        bool
	Temperature float64
	MaxTokens   int
}

// Client produces a completion for a request. Implementations make a single attempt.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// APIError carries a non-2xx upstream response.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

// New selects a provider from configuration.
func New(ctx context.Context, cfg config.AIConfig) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	switch cfg.Provider {
	case config.AIProviderGemini:
		return NewGeminiClient(ctx, GeminiConfig{APIKey: cfg.APIKey, Model: cfg.Model})
	case config.AIProviderOpenAI, "":
		return NewOpenAIClient(OpenAIConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model, Timeout: timeout}), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

// StripCodeFence removes a surrounding markdown code fence some models add around JSON.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
