// Package speech announces round titles through an ordered chain of
// text-to-speech backends.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rbright/ringbell/internal/audio"
	"github.com/rbright/ringbell/internal/config"
)

// ErrNoBackend is returned when no backend could speak the phrase.
var ErrNoBackend = errors.New("no speech backend available")

// Backend speaks one phrase, blocking until done or ctx is cancelled.
type Backend interface {
	Name() string
	Available() bool
	Speak(ctx context.Context, text string) error
}

// Output plays a PCM clip until done or ctx is cancelled.
type Output interface {
	Play(ctx context.Context, clip audio.Clip) error
}

// Chain tries each backend in order until one succeeds.
type Chain struct {
	backends []Backend
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewChain wraps backends. Unavailable backends are skipped at speak time.
func NewChain(logger *zap.Logger, backends ...Backend) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{backends: backends, logger: logger.Named("speech")}
}

// New builds the configured chain: ElevenLabs, OpenAI TTS, then the local command.
func New(cfg config.Config, out Output, logger *zap.Logger) *Chain {
	if !cfg.Speech.Enable {
		return NewChain(logger)
	}

	backends := make([]Backend, 0, len(cfg.Speech.Backends))
	for _, name := range cfg.Speech.Backends {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "elevenlabs":
			backends = append(backends, NewElevenLabs(cfg.Speech.ElevenLabs, out))
		case "openai":
			backends = append(backends, NewOpenAI(cfg.Feedback.APIKey, cfg.Feedback.BaseURL, cfg.Speech.OpenAIModel, cfg.Speech.OpenAIVoice, out))
		case "local":
			backends = append(backends, NewLocal(cfg.Speech.LocalCommand.Argv))
		}
	}
	return NewChain(logger, backends...)
}

// Speak announces text. Only one phrase is spoken at a time; a new call
// cancels the previous one.
func (c *Chain) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.mu.Unlock()

	var errs []error
	for _, b := range c.backends {
		if !b.Available() {
			continue
		}
		err := b.Speak(ctx, text)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("speech backend failed", zap.String("backend", b.Name()), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
	}

	if len(errs) == 0 {
		return ErrNoBackend
	}
	return fmt.Errorf("%w: %w", ErrNoBackend, errors.Join(errs...))
}

// Cancel stops the phrase in flight, if any.
func (c *Chain) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Backends lists the configured backend names and whether each is usable.
func (c *Chain) Backends() map[string]bool {
	out := make(map[string]bool, len(c.backends))
	for _, b := range c.backends {
		out[b.Name()] = b.Available()
	}
	return out
}
