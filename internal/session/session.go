// Package session sequences the rounds of a workout and serves control
// commands for the round currently on the clock.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rbright/ringbell/internal/clock"
	"github.com/rbright/ringbell/internal/fsm"
	"github.com/rbright/ringbell/internal/ipc"
	"github.com/rbright/ringbell/internal/timer"
	"github.com/rbright/ringbell/internal/workout"
)

// Outcome is how a workout run ended.
type Outcome string

const (
	OutcomeCompleted  Outcome = "completed"
	OutcomeTerminated Outcome = "terminated"
	OutcomeCancelled  Outcome = "cancelled"
)

// ErrAlreadyRunning is returned by Run when the session was already started.
var ErrAlreadyRunning = errors.New("session already running")

// Result is the lifecycle output returned by one Run invocation.
type Result struct {
	Workout         string
	Outcome         Outcome
	RoundsCompleted int
	StartedAt       time.Time
	FinishedAt      time.Time
	Err             error
}

// Progress is a timer snapshot positioned within the workout.
type Progress struct {
	Workout  string
	Index    int
	Count    int
	Snapshot timer.Snapshot
}

// Options wires pacing and presentation hooks.
type Options struct {
	Timer timer.Options
	// Autostart starts the first round without waiting for a start command.
	Autostart bool
	// Observer receives every progress change. It runs outside session locks
	// and must not block.
	Observer func(Progress)
}

type eventKind int

const (
	eventRoundComplete eventKind = iota + 1
	eventTerminate
)

type event struct {
	kind  eventKind
	index int
}

// roundOwner tags timer notifications with the round they belong to so the
// session can drop notifications from a timer it already discarded.
type roundOwner struct {
	session *Session
	index   int
}

func (o roundOwner) RoundComplete() { o.session.post(event{kind: eventRoundComplete, index: o.index}) }
func (o roundOwner) Terminate()     { o.session.post(event{kind: eventTerminate, index: o.index}) }

// Session owns one workout run.
type Session struct {
	workout   workout.Workout
	signals   timer.SignalPlayer
	announcer timer.Announcer
	logger    *zap.Logger
	clock     clock.Clock
	opts      Options

	mu      sync.RWMutex
	current *timer.RoundTimer
	index   int
	started bool

	events chan event
	done   chan struct{}
}

// New validates w and returns a session that has not started yet.
func New(w workout.Workout, signals timer.SignalPlayer, announcer timer.Announcer, logger *zap.Logger, opts Options) (*Session, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("workout %q: %w", w.Name, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timer.Clock == nil {
		opts.Timer.Clock = clock.Real{}
	}
	if opts.Timer.Logger == nil {
		opts.Timer.Logger = logger
	}

	return &Session{
		workout:   w,
		signals:   signals,
		announcer: announcer,
		logger:    logger.Named("session").With(zap.String("workout", w.Name)),
		clock:     opts.Timer.Clock,
		opts:      opts,
		index:     -1,
		events:    make(chan event, 4),
		done:      make(chan struct{}),
	}, nil
}

// Workout returns the workout being run.
func (s *Session) Workout() workout.Workout { return s.workout }

// Progress returns the current round position. Index is -1 before Run binds
// the first round.
func (s *Session) Progress() Progress {
	s.mu.RLock()
	current, index := s.current, s.index
	s.mu.RUnlock()

	p := Progress{Workout: s.workout.Name, Index: index, Count: len(s.workout.Rounds)}
	if current != nil {
		p.Snapshot = current.Snapshot()
	}
	return p
}

// Run drives the workout until every round completes, a round is terminated,
// or ctx is cancelled.
func (s *Session) Run(ctx context.Context) Result {
	result := Result{Workout: s.workout.Name, StartedAt: s.clock.Now()}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		result.Err = ErrAlreadyRunning
		result.FinishedAt = s.clock.Now()
		return result
	}
	s.started = true
	s.mu.Unlock()

	defer close(s.done)
	defer s.unbind()

	s.logger.Info("workout started", zap.Int("rounds", len(s.workout.Rounds)))

	for index := range s.workout.Rounds {
		rt := s.bind(index)
		if index > 0 || s.opts.Autostart {
			rt.Start()
		}

		outcome, err := s.await(ctx, index)
		switch outcome {
		case "":
			result.RoundsCompleted++
			continue
		case OutcomeCancelled:
			result.Err = err
		}
		result.Outcome = outcome
		result.FinishedAt = s.clock.Now()
		s.logger.Info("workout ended",
			zap.String("outcome", string(outcome)),
			zap.Int("rounds_completed", result.RoundsCompleted),
		)
		return result
	}

	result.Outcome = OutcomeCompleted
	result.FinishedAt = s.clock.Now()
	s.logger.Info("workout complete", zap.Int("rounds_completed", result.RoundsCompleted))
	return result
}

// await blocks until round index finishes. An empty outcome means the round
// completed and the workout should advance.
func (s *Session) await(ctx context.Context, index int) (Outcome, error) {
	for {
		select {
		case <-ctx.Done():
			return OutcomeCancelled, ctx.Err()
		case ev := <-s.events:
			if ev.index != index {
				s.logger.Debug("stale round event ignored", zap.Int("index", ev.index))
				continue
			}
			switch ev.kind {
			case eventRoundComplete:
				return "", nil
			case eventTerminate:
				return OutcomeTerminated, nil
			}
		}
	}
}

// bind discards the previous round timer and creates one for round index.
func (s *Session) bind(index int) *timer.RoundTimer {
	round := s.workout.Rounds[index]

	opts := s.opts.Timer
	if s.opts.Observer != nil {
		count := len(s.workout.Rounds)
		opts.Observer = func(snap timer.Snapshot) {
			s.opts.Observer(Progress{Workout: s.workout.Name, Index: index, Count: count, Snapshot: snap})
		}
	}
	rt := timer.New(round, roundOwner{session: s, index: index}, s.signals, s.announcer, opts)

	s.mu.Lock()
	previous := s.current
	s.current = rt
	s.index = index
	s.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
	s.logger.Debug("round bound", zap.Int("index", index), zap.String("title", round.Title))

	if s.opts.Observer != nil {
		s.opts.Observer(Progress{Workout: s.workout.Name, Index: index, Count: len(s.workout.Rounds), Snapshot: rt.Snapshot()})
	}
	return rt
}

func (s *Session) unbind() {
	s.mu.Lock()
	current := s.current
	s.current = nil
	s.mu.Unlock()

	if current != nil {
		current.Close()
	}
}

// post delivers a timer notification to Run, dropping it once Run returned.
func (s *Session) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// Handle serves IPC commands for the round on the clock.
func (s *Session) Handle(_ context.Context, req ipc.Request) ipc.Response {
	s.mu.RLock()
	rt, index := s.current, s.index
	s.mu.RUnlock()

	if rt == nil {
		return ipc.Response{OK: false, Error: "no active round"}
	}

	status := rt.Snapshot().Status
	switch req.Command {
	case ipc.CommandStatus:
		return s.response(rt, index, "status")
	case ipc.CommandStart:
		if status != fsm.StateIdle && status != fsm.StatePaused {
			return s.rejected(status, req.Command)
		}
		rt.Start()
		return s.response(rt, index, "round started")
	case ipc.CommandResume:
		if status != fsm.StatePaused {
			return s.rejected(status, req.Command)
		}
		rt.Resume()
		return s.response(rt, index, "round resumed")
	case ipc.CommandPause:
		if status != fsm.StateRunning && status != fsm.StateAnnouncePending {
			return s.rejected(status, req.Command)
		}
		rt.Pause()
		return s.response(rt, index, "round paused")
	case ipc.CommandStop:
		if !status.InProgress() {
			return s.rejected(status, req.Command)
		}
		rt.Stop()
		return s.response(rt, index, "round reset")
	case ipc.CommandSkip:
		rt.SkipToNext()
		return s.response(rt, index, "skip requested")
	case ipc.CommandTerminate:
		rt.Terminate()
		return s.response(rt, index, "terminate requested")
	default:
		return ipc.Response{OK: false, State: string(status), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (s *Session) rejected(status fsm.State, command string) ipc.Response {
	return ipc.Response{OK: false, State: string(status), Error: fmt.Sprintf("cannot %s from state %s", command, status)}
}

func (s *Session) response(rt *timer.RoundTimer, index int, message string) ipc.Response {
	snap := rt.Snapshot()
	return ipc.Response{
		OK:      true,
		State:   string(snap.Status),
		Message: message,
		Round: &ipc.Round{
			Workout:   s.workout.Name,
			Index:     index,
			Count:     len(s.workout.Rounds),
			Title:     snap.Round.Title,
			Remaining: snap.Remaining,
			Duration:  snap.Round.DurationSeconds,
		},
	}
}
