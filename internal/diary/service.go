// Package diary orchestrates reflection classification and feedback,
// persists the results, and provides the HTTP client the CLI uses to reach a
// running proxy.
package diary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rbright/ringbell/internal/feedback"
	"github.com/rbright/ringbell/internal/sentiment"
)

// DefaultRecentLimit bounds Recent when no limit is given.
const DefaultRecentLimit = 20

var (
	ErrEmptyText = errors.New("text is required")
	// ErrClassification wraps classifier failures.
	ErrClassification = errors.New("sentiment analysis failed")
	// ErrGeneration wraps generator failures. A fallback message accompanies it.
	ErrGeneration = errors.New("feedback generation failed")
	ErrNoStore    = errors.New("diary store is not configured")
)

// Analysis is the combined result for one reflection.
type Analysis struct {
	Sentiment sentiment.Label `json:"sentiment"`
	Feedback  string          `json:"feedback"`
	// Fallback is set when Feedback is the canned message for Sentiment.
	Fallback bool `json:"fallback"`
}

// Service chains the classifier and the generator.
type Service struct {
	classifier sentiment.Classifier
	generator  feedback.Generator
	store      *Store
	logger     *zap.Logger
}

// NewService wires the service. store may be nil, in which case analyses are
// not recorded.
func NewService(classifier sentiment.Classifier, generator feedback.Generator, store *Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{classifier: classifier, generator: generator, store: store, logger: logger.Named("diary")}
}

// Classify labels text.
func (s *Service) Classify(ctx context.Context, text string) (sentiment.Label, error) {
	text, err := requireText(text)
	if err != nil {
		return "", err
	}

	label, err := s.classifier.Classify(ctx, text)
	if err != nil {
		s.logUpstream("classification failed", err)
		return "", fmt.Errorf("%w: %w", ErrClassification, err)
	}
	return label, nil
}

// Feedback generates a message for text. On generator failure it returns the
// fallback message for label together with an ErrGeneration error.
func (s *Service) Feedback(ctx context.Context, text, label string) (string, error) {
	text, err := requireText(text)
	if err != nil {
		return "", err
	}

	out, err := s.generator.Generate(ctx, text, sentiment.NormalizeLabel(label))
	if err != nil {
		s.logUpstream("feedback generation failed", err)
		return sentiment.FallbackMessage(label), fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return out, nil
}

// Analyze classifies text and then generates feedback for it. A classifier
// failure returns ErrClassification with the neutral label and the generic
// fallback message. A generator failure returns the label, the fallback
// message and ErrGeneration. Every analysis that produced a label is recorded
// when a store is configured.
func (s *Service) Analyze(ctx context.Context, text string) (Analysis, error) {
	label, err := s.Classify(ctx, text)
	if errors.Is(err, ErrClassification) {
		return Analysis{Sentiment: sentiment.Neutral, Feedback: sentiment.FallbackMessage(""), Fallback: true}, err
	}
	if err != nil {
		return Analysis{}, err
	}

	message, genErr := s.Feedback(ctx, text, string(label))
	result := Analysis{Sentiment: label, Feedback: message, Fallback: genErr != nil}
	s.record(ctx, strings.TrimSpace(text), result)
	return result, genErr
}

// Recent lists recorded entries, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.Recent(ctx, limit)
}

func (s *Service) record(ctx context.Context, text string, a Analysis) {
	if s.store == nil {
		return
	}
	entry, err := s.store.Add(ctx, Entry{
		Text:      text,
		Sentiment: string(a.Sentiment),
		Feedback:  a.Feedback,
		Fallback:  a.Fallback,
	})
	if err != nil {
		s.logger.Warn("diary entry not saved", zap.Error(err))
		return
	}
	s.logger.Debug("diary entry saved", zap.String("id", entry.ID))
}

func (s *Service) logUpstream(msg string, err error) {
	var statusErr *sentiment.StatusError
	switch {
	case errors.As(err, &statusErr) && statusErr.Unauthorized(), feedback.Unauthorized(err):
		s.logger.Error(msg+": credentials rejected", zap.Error(err))
	case errors.As(err, &statusErr) && statusErr.RateLimited(), feedback.RateLimited(err):
		s.logger.Warn(msg+": rate limited", zap.Error(err))
	default:
		s.logger.Warn(msg, zap.Error(err))
	}
}

func requireText(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	return text, nil
}
