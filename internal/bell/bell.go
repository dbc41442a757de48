// Package bell plays round cues: a configured sound file, or a synthesized bell.
package bell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rbright/ringbell/internal/audio"
	"github.com/rbright/ringbell/internal/config"
)

// Output plays a PCM clip until done or ctx is cancelled.
type Output interface {
	Play(ctx context.Context, clip audio.Clip) error
}

// FilePlayer plays a sound file until done or ctx is cancelled.
type FilePlayer func(ctx context.Context, path string) error

// Player is a fire-and-forget cue player. Each Play cancels the cue still
// sounding and starts the new one from the beginning.
type Player struct {
	logger   *zap.Logger
	out      Output
	playFile FilePlayer
	file     string
	enabled  bool

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// playMu keeps a cancelled cue from overlapping its replacement.
	playMu sync.Mutex
}

// New builds a Player from sound config.
func New(cfg config.SoundConfig, logger *zap.Logger) *Player {
	return NewWithOutput(cfg, audio.Output{Sink: cfg.Sink, Volume: cfg.Volume}, PlayWithPipeWire, logger)
}

// NewWithOutput builds a Player with explicit playback backends.
func NewWithOutput(cfg config.SoundConfig, out Output, playFile FilePlayer, logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{
		logger:   logger.Named("bell"),
		out:      out,
		playFile: playFile,
		file:     expandUserPath(cfg.File),
		enabled:  cfg.Enable,
	}
}

// Play starts signalID without blocking.
func (p *Player) Play(signalID string) {
	if p == nil || !p.enabled {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer cancel()

		p.playMu.Lock()
		defer p.playMu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if err := p.emit(ctx, signalID); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Debug("cue playback failed", zap.String("signal", signalID), zap.Error(err))
		}
	}()
}

// Close stops the current cue and waits for playback goroutines to exit.
func (p *Player) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Player) emit(ctx context.Context, signalID string) error {
	if p.file != "" && p.playFile != nil {
		err := p.playFile(ctx, p.file)
		if err == nil || ctx.Err() != nil {
			return err
		}
		p.logger.Debug("cue file failed; using synthesized bell", zap.String("path", p.file), zap.Error(err))
	}

	id := signalID
	if !Known(id) {
		id = "bell"
	}
	return p.out.Play(ctx, audio.Clip{Name: id + " cue", SampleRate: sampleRate, Samples: clipFor(id)})
}

var (
	clipsMu sync.Mutex
	clips   = map[string][]int16{}
)

func clipFor(id string) []int16 {
	clipsMu.Lock()
	defer clipsMu.Unlock()
	if pcm, ok := clips[id]; ok {
		return pcm
	}
	pcm := synthesize(id)
	clips[id] = pcm
	return pcm
}

// PlayWithPipeWire plays path through pw-play with the notification media role.
func PlayWithPipeWire(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file %q: %w", path, err)
	}
	cmd := exec.CommandContext(ctx, "pw-play", "--media-role", "Notification", path)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("play cue file %q: %w", path, err)
	}
	return nil
}

func expandUserPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(raw, "~"), "/"))
}
