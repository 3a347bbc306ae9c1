// Package assistant answers free-form HR questions through Gemini
package assistant

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/peoplehub/peoplehub-backend/pkg/config"
	"github.com/peoplehub/peoplehub-backend/pkg/errors"
	"github.com/peoplehub/peoplehub-backend/pkg/logger"
	"google.golang.org/genai"
)

// Generator is the part of the genai client the service calls.
// *genai.Models satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ChatRequest is one prompt. Unset tuning fields use the model defaults.
type ChatRequest struct {
	Prompt      string   `json:"prompt" validate:"required,max=8000"`
	Temperature *float32 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   *int32   `json:"max_tokens,omitempty" validate:"omitempty,gte=1,lte=8192"`
}

// ChatResponse is the generated answer
type ChatResponse struct {
	Content      string    `json:"content"`
	Model        string    `json:"model"`
	GeneratedAt  time.Time `json:"generated_at"`
	PromptTokens int32     `json:"prompt_tokens,omitempty"`
	OutputTokens int32     `json:"output_tokens,omitempty"`
}

// ChatService wraps a Gemini model. A service without a generator is
// disabled and answers every call with 503.
type ChatService struct {
	gen     Generator
	model   string
	timeout time.Duration
	now     func() time.Time
	logger  *logger.Logger
}

// NewChatService builds a service around gen, which may be nil
func NewChatService(gen Generator, cfg config.GeminiConfig, log *logger.Logger) *ChatService {
	return &ChatService{
		gen:     gen,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		now:     time.Now,
		logger:  log.WithComponent("assistant"),
	}
}

// NewGeminiChatService connects to the Gemini API. Without an API key the
// returned service is disabled.
func NewGeminiChatService(ctx context.Context, cfg config.GeminiConfig, log *logger.Logger) (*ChatService, error) {
	if cfg.APIKey == "" {
		log.Warn().Msg("gemini api key not set, assistant disabled")
		return NewChatService(nil, cfg, log), nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return NewChatService(client.Models, cfg, log), nil
}

// Enabled reports whether a model is configured
func (s *ChatService) Enabled() bool {
	return s.gen != nil
}

// Ask sends the prompt and returns the first candidate's text
func (s *ChatService) Ask(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if !s.Enabled() {
		return nil, errors.Unavailable("assistant not configured").WithKey("assistant.disabled")
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.Validation(map[string]string{"prompt": "this field is required"}).WithKey("assistant.empty_prompt")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var genCfg *genai.GenerateContentConfig
	if req.Temperature != nil || req.MaxTokens != nil {
		genCfg = &genai.GenerateContentConfig{Temperature: req.Temperature}
		if req.MaxTokens != nil {
			genCfg.MaxOutputTokens = *req.MaxTokens
		}
	}

	s.logger.Debug().Int("prompt_length", len(prompt)).Msg("sending prompt")

	resp, err := s.gen.GenerateContent(ctx, s.model, genai.Text(prompt), genCfg)
	if err != nil {
		event := s.logger.Error().Err(err).Str("model", s.model)
		var apiErr genai.APIError
		if stderrors.As(err, &apiErr) {
			event = event.Int("status_code", apiErr.Code).Str("status", apiErr.Status)
		}
		event.Msg("gemini request failed")
		return nil, errors.Upstream(err, "AI provider request failed").WithKey("assistant.upstream_failure")
	}

	out := &ChatResponse{
		Content:     resp.Text(),
		Model:       s.model,
		GeneratedAt: s.now().UTC(),
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if usage := resp.UsageMetadata; usage != nil {
		out.PromptTokens = usage.PromptTokenCount
		out.OutputTokens = usage.CandidatesTokenCount
	}

	s.logger.Info().Int("response_length", len(out.Content)).Msg("gemini answered")
	return out, nil
}

// Healthy sends a minimal prompt and reports whether the model answered
func (s *ChatService) Healthy(ctx context.Context) bool {
	if !s.Enabled() {
		return false
	}
	_, err := s.Ask(ctx, &ChatRequest{Prompt: "Hello"})
	return err == nil
}
