package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/pkg/ai"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
	"github.com/noah-isme/studyabroad-api/pkg/middleware/requestid"
)

const advisorPrompt = `You are a study abroad advisor for international students.
Answer questions about universities, programs, scholarships, admission documents and student life.
Be concise and practical. If you are not sure about a fact such as a fee or a deadline, say so and suggest checking the program page.`

// AIService fronts the configured completion provider.
type AIService struct {
	client    ai.Client
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAIService constructs an AIService. A nil client makes every call fail with 503.
func NewAIService(client ai.Client, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AIService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &AIService{client: client, metrics: metrics, validator: validate, logger: logger}
}

// Chat answers the conversation as the study advisor.
func (s *AIService) Chat(ctx context.Context, req dto.ChatRequest) (*dto.ChatResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid chat payload")
	}
	system := advisorPrompt
	if locale := strings.TrimSpace(req.Locale); locale != "" {
		system += fmt.Sprintf("\nReply in the language with locale code %q.", locale)
	}
	messages := make([]ai.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, ai.Message{Role: m.Role, Content: m.Content})
	}
	reply, err := s.Complete(ctx, ai.Request{System: system, Messages: messages, Temperature: 0.4})
	if err != nil {
		return nil, err
	}
	return &dto.ChatResponse{Reply: reply}, nil
}

// Generate runs a single free-form prompt.
func (s *AIService) Generate(ctx context.Context, req dto.GenerateRequest) (*dto.GenerateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid generate payload")
	}
	text, err := s.Complete(ctx, ai.Request{
		System:   req.System,
		Messages: []ai.Message{{Role: ai.RoleUser, Content: req.Prompt}},
		JSON:     req.JSON,
	})
	if err != nil {
		return nil, err
	}
	if req.JSON {
		text = ai.StripCodeFence(text)
	}
	return &dto.GenerateResponse{Text: text}, nil
}

// Complete makes one provider call and maps failures to typed errors.
func (s *AIService) Complete(ctx context.Context, req ai.Request) (string, error) {
	if s.client == nil {
		return "", appErrors.Clone(appErrors.ErrUnavailable, "ai provider not configured")
	}
	start := time.Now()
	text, err := s.client.Complete(ctx, req)
	s.metrics.ObserveAICompletion(s.client.Name(), err, time.Since(start))
	if err != nil {
		s.logger.Warn("ai completion failed", zap.String("provider", s.client.Name()), zap.String("request_id", requestid.FromContext(ctx)), zap.Error(err))
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "ai provider timed out")
		}
		return "", appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, err.Error())
	}
	return text, nil
}
