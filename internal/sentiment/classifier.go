package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rbright/ringbell/internal/config"
)

var (
	ErrNoAPIKey      = errors.New("sentiment classifier API key is not configured")
	ErrEmptyResponse = errors.New("sentiment classifier returned no labels")
)

const maxResponseBytes = 1 << 20

// StatusError is a non-2xx classifier response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sentiment classifier returned %d", e.StatusCode)
	}
	return fmt.Sprintf("sentiment classifier returned %d: %s", e.StatusCode, e.Body)
}

// Unauthorized reports whether the credentials were rejected.
func (e *StatusError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// RateLimited reports whether the upstream throttled the request.
func (e *StatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Classifier labels a piece of text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Label, error)
}

// HuggingFace calls a hosted text-classification model on the Hugging Face
// inference API.
type HuggingFace struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
}

func NewHuggingFace(cfg config.SentimentConfig, logger *zap.Logger) *HuggingFace {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HuggingFace{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.TrimLeft(cfg.Model, "/"),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		client:   &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond},
		logger:   logger.Named("sentiment"),
	}
}

// Endpoint is the model URL requests are sent to.
func (h *HuggingFace) Endpoint() string { return h.endpoint }

type classifyRequest struct {
	Inputs string `json:"inputs"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify returns the highest-scoring label for text.
func (h *HuggingFace) Classify(ctx context.Context, text string) (Label, error) {
	if h.apiKey == "" {
		return "", ErrNoAPIKey
	}

	body, err := json.Marshal(classifyRequest{Inputs: text})
	if err != nil {
		return "", fmt.Errorf("encode classify request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.apiKey)

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("classify request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read classify response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: truncate(strings.TrimSpace(string(raw)), 256)}
	}

	scores, err := decodeScores(raw)
	if err != nil {
		return "", err
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}

	label := NormalizeLabel(best.Label)
	h.logger.Debug("text classified", zap.String("raw_label", best.Label), zap.String("label", string(label)), zap.Float64("score", best.Score))
	return label, nil
}

// decodeScores accepts both the flat [{label,score}] and the batched
// [[{label,score}]] response shapes.
func decodeScores(raw []byte) ([]labelScore, error) {
	var nested [][]labelScore
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 || len(nested[0]) == 0 {
			return nil, ErrEmptyResponse
		}
		return nested[0], nil
	}

	var flat []labelScore
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode classify response: %w", err)
	}
	if len(flat) == 0 {
		return nil, ErrEmptyResponse
	}
	return flat, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
