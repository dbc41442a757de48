// Package feedback generates the motivational message shown after a diary
// reflection, using an OpenAI chat model.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/rbright/ringbell/internal/config"
	"github.com/rbright/ringbell/internal/sentiment"
)

var (
	ErrNoAPIKey        = errors.New("feedback generator API key is not configured")
	ErrEmptyCompletion = errors.New("feedback generator returned no text")
)

const systemPrompt = "You are a motivational boxing coach who helps athletes stay motivated and enthusiastic about training."

// Generator writes feedback for text that was classified as label.
type Generator interface {
	Generate(ctx context.Context, text string, label sentiment.Label) (string, error)
}

// OpenAI generates feedback with the chat completions endpoint.
type OpenAI struct {
	client      openai.Client
	apiKey      string
	model       string
	maxTokens   int64
	temperature float64
	topP        float64
	timeout     time.Duration
	logger      *zap.Logger
}

func NewOpenAI(cfg config.FeedbackConfig, logger *zap.Logger) *OpenAI {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/") + "/"
	return &OpenAI{
		client: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(baseURL),
			option.WithMaxRetries(0),
		),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       cfg.Model,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		timeout:     time.Duration(cfg.TimeoutMS) * time.Millisecond,
		logger:      logger.Named("feedback"),
	}
}

// Prompt is the user message sent for text and label.
func Prompt(text string, label sentiment.Label) string {
	return fmt.Sprintf(`The athlete just finished a boxing workout and wrote: %q.

Their sentiment is: %s.

Write a personalized, encouraging reply (two or three sentences at most) that:
- acknowledges how they feel
- motivates them to keep training
- is specific to boxing
- uses a friendly, supportive tone
- ends with a fitting emoji`, text, label)
}

func (o *OpenAI) Generate(ctx context.Context, text string, label sentiment.Label) (string, error) {
	if o.apiKey == "" {
		return "", ErrNoAPIKey
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(Prompt(text, label)),
		},
		MaxTokens:   openai.Int(o.maxTokens),
		Temperature: openai.Float(o.temperature),
		TopP:        openai.Float(o.topP),
	})
	if err != nil {
		return "", fmt.Errorf("generate feedback: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	out := strings.TrimSpace(completion.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyCompletion
	}
	o.logger.Debug("feedback generated", zap.String("label", string(label)), zap.Int("chars", len(out)))
	return out, nil
}

// RateLimited reports whether err is an upstream 429.
func RateLimited(err error) bool {
	return statusCode(err) == http.StatusTooManyRequests
}

// Unauthorized reports whether err is an upstream credential rejection.
func Unauthorized(err error) bool {
	code := statusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

func statusCode(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
