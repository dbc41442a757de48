// Package timer implements the countdown state machine for a single round.
package timer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rbright/ringbell/internal/clock"
	"github.com/rbright/ringbell/internal/fsm"
	"github.com/rbright/ringbell/internal/workout"
)

const (
	DefaultAnnounceDelay   = 4 * time.Second
	DefaultCompletionDelay = 3 * time.Second
	DefaultTickInterval    = time.Second
)

// SignalPlayer plays a short cue. Play must not block.
type SignalPlayer interface {
	Play(signalID string)
}

// Announcer speaks a phrase. Speak blocks until the phrase finishes or ctx is
// cancelled; Cancel stops any in-flight phrase and is safe to call repeatedly.
type Announcer interface {
	Speak(ctx context.Context, text string) error
	Cancel()
}

// Owner receives round outcomes.
type Owner interface {
	RoundComplete()
	Terminate()
}

// Snapshot is the presentation view of a timer.
type Snapshot struct {
	Round     workout.Round
	Status    fsm.State
	Remaining int
	Running   bool
	Paused    bool
}

// Options tunes pacing and wiring. Zero values fall back to defaults.
type Options struct {
	Clock           clock.Clock
	Logger          *zap.Logger
	AnnounceDelay   time.Duration
	CompletionDelay time.Duration
	TickInterval    time.Duration
	// Observer is invoked outside the timer lock after every state change.
	Observer func(Snapshot)
}

type noopSignals struct{}

func (noopSignals) Play(string) {}

type noopAnnouncer struct{}

func (noopAnnouncer) Speak(context.Context, string) error { return nil }
func (noopAnnouncer) Cancel()                             {}

type noopOwner struct{}

func (noopOwner) RoundComplete() {}
func (noopOwner) Terminate()     {}

// RoundTimer counts one round down, playing a cue at start and end and
// announcing the round title once the announce delay elapses.
//
// Every scheduled callback carries the generation it was scheduled under;
// revoking a callback bumps the generation so a callback that already fired
// becomes a no-op.
type RoundTimer struct {
	round     workout.Round
	owner     Owner
	signals   SignalPlayer
	announcer Announcer
	clock     clock.Clock
	logger    *zap.Logger
	observer  func(Snapshot)

	announceDelay   time.Duration
	completionDelay time.Duration
	tickInterval    time.Duration

	mu        sync.Mutex
	state     fsm.State
	remaining int
	closed    bool

	announceGen   uint64
	tickGen       uint64
	completionGen uint64
	// tickSeq identifies the head of the tick chain; only the head reschedules.
	tickSeq uint64

	announceTimer   clock.Timer
	tickTimer       clock.Timer
	completionTimer clock.Timer

	cancelSpeech context.CancelFunc
}

// New builds an idle timer for round.
func New(round workout.Round, owner Owner, signals SignalPlayer, announcer Announcer, opts Options) *RoundTimer {
	if owner == nil {
		owner = noopOwner{}
	}
	if signals == nil {
		signals = noopSignals{}
	}
	if announcer == nil {
		announcer = noopAnnouncer{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.AnnounceDelay < 0 {
		opts.AnnounceDelay = 0
	}
	if opts.CompletionDelay < 0 {
		opts.CompletionDelay = 0
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}

	remaining := round.DurationSeconds
	if remaining < 0 {
		remaining = 0
	}

	return &RoundTimer{
		round:           round,
		owner:           owner,
		signals:         signals,
		announcer:       announcer,
		clock:           opts.Clock,
		logger:          opts.Logger.Named("round-timer").With(zap.String("round", round.Title)),
		observer:        opts.Observer,
		announceDelay:   opts.AnnounceDelay,
		completionDelay: opts.CompletionDelay,
		tickInterval:    opts.TickInterval,
		state:           fsm.StateIdle,
		remaining:       remaining,
	}
}

// DefaultOptions returns the standard pacing.
func DefaultOptions() Options {
	return Options{
		AnnounceDelay:   DefaultAnnounceDelay,
		CompletionDelay: DefaultCompletionDelay,
		TickInterval:    DefaultTickInterval,
	}
}

// Round returns the round being timed.
func (t *RoundTimer) Round() workout.Round { return t.round }

// Snapshot returns the current presentation view.
func (t *RoundTimer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Start begins the countdown from Idle or resumes it from Paused. The cue
// plays once and the title is announced after the announce delay.
func (t *RoundTimer) Start() {
	t.mu.Lock()
	resuming := t.state == fsm.StatePaused
	if t.closed || !t.transitionLocked(fsm.EventStart) {
		t.mu.Unlock()
		return
	}

	// Pause already revoked any tick it could stop. One that had fired still applies.
	if !resuming {
		t.tickGen++
	}
	t.announceGen++
	gen := t.announceGen
	t.announceTimer = t.clock.AfterFunc(t.announceDelay, func() { t.onAnnounce(gen) })
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.logger.Debug("round start", zap.Int("remaining", snap.Remaining))
	t.signals.Play(t.round.Signal())
	t.notify(snap)
}

// Resume is Start from Paused.
func (t *RoundTimer) Resume() {
	if t.Snapshot().Status != fsm.StatePaused {
		return
	}
	t.Start()
}

// Pause halts the countdown and revokes any pending announcement.
func (t *RoundTimer) Pause() {
	t.mu.Lock()
	if t.closed || !t.transitionLocked(fsm.EventPause) {
		t.mu.Unlock()
		return
	}

	t.revokeAnnounceLocked()
	// A tick that already fired is still applied.
	if t.tickTimer != nil && t.tickTimer.Stop() {
		t.tickGen++
	}
	t.tickTimer = nil
	cancel := t.takeSpeechLocked()
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.silence(cancel)
	t.logger.Debug("round paused", zap.Int("remaining", snap.Remaining))
	t.notify(snap)
}

// Stop resets the round to its full duration without notifying the owner.
func (t *RoundTimer) Stop() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	cancel, changed := t.stopLocked()
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if changed {
		t.silence(cancel)
		t.logger.Debug("round stopped")
		t.notify(snap)
	}
}

// Terminate stops the round, revokes any pending completion and tells the
// owner to abandon the workout.
func (t *RoundTimer) Terminate() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	cancel, changed := t.stopLocked()
	t.revokeCompletionLocked()
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if changed {
		t.silence(cancel)
		t.notify(snap)
	}
	t.logger.Info("workout terminated")
	t.owner.Terminate()
}

// SkipToNext silently abandons the round and reports it complete. No end cue plays.
func (t *RoundTimer) SkipToNext() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	cancel, changed := t.stopLocked()
	t.revokeCompletionLocked()
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if changed {
		t.silence(cancel)
		t.notify(snap)
	}
	t.logger.Info("round skipped")
	t.owner.RoundComplete()
}

// Close revokes every pending callback without notifying the owner. The
// timer ignores all further calls.
func (t *RoundTimer) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.revokeAnnounceLocked()
	t.revokeTickLocked()
	t.revokeCompletionLocked()
	cancel := t.takeSpeechLocked()
	t.mu.Unlock()

	if cancel != nil {
		t.silence(cancel)
	}
}

func (t *RoundTimer) onAnnounce(gen uint64) {
	t.mu.Lock()
	if t.closed || gen != t.announceGen || !t.transitionLocked(fsm.EventAnnounced) {
		t.mu.Unlock()
		return
	}
	t.announceTimer = nil

	ctx, cancel := context.WithCancel(context.Background())
	t.cancelSpeech = cancel
	t.scheduleTickLocked()
	snap := t.snapshotLocked()
	t.mu.Unlock()

	go t.speak(ctx, cancel)
	t.notify(snap)
}

func (t *RoundTimer) speak(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	if err := t.announcer.Speak(ctx, t.round.Title); err != nil && !errors.Is(err, context.Canceled) {
		t.logger.Debug("announcement failed", zap.Error(err))
	}
}

func (t *RoundTimer) scheduleTickLocked() {
	t.tickSeq++
	gen, seq := t.tickGen, t.tickSeq
	t.tickTimer = t.clock.AfterFunc(t.tickInterval, func() { t.onTick(gen, seq) })
}

func (t *RoundTimer) onTick(gen, seq uint64) {
	t.mu.Lock()
	if t.closed || gen != t.tickGen {
		t.mu.Unlock()
		return
	}

	if t.remaining > 0 {
		t.remaining--
	}
	if t.remaining > 0 {
		if t.state == fsm.StateRunning && seq == t.tickSeq {
			t.scheduleTickLocked()
		}
		snap := t.snapshotLocked()
		t.mu.Unlock()
		t.notify(snap)
		return
	}

	if !t.transitionLocked(fsm.EventExpire) {
		t.mu.Unlock()
		return
	}
	t.revokeAnnounceLocked()
	t.revokeTickLocked()
	t.completionGen++
	completionGen := t.completionGen
	t.completionTimer = t.clock.AfterFunc(t.completionDelay, func() { t.onCompletion(completionGen) })
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.logger.Debug("round expired")
	t.signals.Play(t.round.Signal())
	t.notify(snap)
}

func (t *RoundTimer) onCompletion(gen uint64) {
	t.mu.Lock()
	if t.closed || gen != t.completionGen {
		t.mu.Unlock()
		return
	}
	t.completionGen++
	t.completionTimer = nil
	t.mu.Unlock()

	t.logger.Info("round complete")
	t.owner.RoundComplete()
}

// stopLocked applies the stop effect when a countdown is in progress.
// It reports whether state changed and returns the speech cancel to invoke.
func (t *RoundTimer) stopLocked() (context.CancelFunc, bool) {
	if !t.state.InProgress() {
		return nil, false
	}
	_ = t.transitionLocked(fsm.EventStop)
	t.revokeAnnounceLocked()
	t.revokeTickLocked()
	t.remaining = t.round.DurationSeconds
	return t.takeSpeechLocked(), true
}

func (t *RoundTimer) transitionLocked(event fsm.Event) bool {
	next, err := fsm.Transition(t.state, event)
	if err != nil {
		return false
	}
	t.state = next
	return true
}

func (t *RoundTimer) revokeAnnounceLocked() {
	t.announceGen++
	if t.announceTimer != nil {
		t.announceTimer.Stop()
		t.announceTimer = nil
	}
}

func (t *RoundTimer) revokeTickLocked() {
	t.tickGen++
	if t.tickTimer != nil {
		t.tickTimer.Stop()
		t.tickTimer = nil
	}
}

func (t *RoundTimer) revokeCompletionLocked() {
	t.completionGen++
	if t.completionTimer != nil {
		t.completionTimer.Stop()
		t.completionTimer = nil
	}
}

func (t *RoundTimer) takeSpeechLocked() context.CancelFunc {
	cancel := t.cancelSpeech
	t.cancelSpeech = nil
	return cancel
}

// silence cancels the in-flight announcement, if any, and stops speech output.
func (t *RoundTimer) silence(cancel context.CancelFunc) {
	if cancel != nil {
		cancel()
	}
	t.announcer.Cancel()
}

func (t *RoundTimer) snapshotLocked() Snapshot {
	return Snapshot{
		Round:     t.round,
		Status:    t.state,
		Remaining: t.remaining,
		Running:   t.state == fsm.StateAnnouncePending || t.state == fsm.StateRunning,
		Paused:    t.state == fsm.StatePaused,
	}
}

func (t *RoundTimer) notify(snap Snapshot) {
	if t.observer != nil {
		t.observer(snap)
	}
}
