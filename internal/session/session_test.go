package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/ringbell/internal/clock"
	"github.com/rbright/ringbell/internal/fsm"
	"github.com/rbright/ringbell/internal/ipc"
	"github.com/rbright/ringbell/internal/timer"
	"github.com/rbright/ringbell/internal/workout"
)

type recordingSignals struct {
	mu    sync.Mutex
	plays []string
}

func (r *recordingSignals) Play(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plays = append(r.plays, id)
}

func (r *recordingSignals) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.plays)
}

type recordingAnnouncer struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingAnnouncer) Speak(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return nil
}

func (*recordingAnnouncer) Cancel() {}

func (r *recordingAnnouncer) spoken() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

type fixture struct {
	clock     *clock.Manual
	signals   *recordingSignals
	announcer *recordingAnnouncer
	session   *Session
	results   chan Result
	cancel    context.CancelFunc
}

func sparring() workout.Workout {
	return workout.Workout{
		Name: "Sparring",
		Rounds: []workout.Round{
			{Title: "Jab", DurationSeconds: 60},
			{Title: "Rest", DurationSeconds: 30},
		},
	}
}

func newFixture(t *testing.T, w workout.Workout, opts Options) *fixture {
	t.Helper()

	f := &fixture{
		clock:     clock.NewManual(time.Unix(0, 0)),
		signals:   &recordingSignals{},
		announcer: &recordingAnnouncer{},
		results:   make(chan Result, 1),
	}
	opts.Timer.Clock = f.clock
	opts.Timer.AnnounceDelay = timer.DefaultAnnounceDelay
	opts.Timer.CompletionDelay = timer.DefaultCompletionDelay
	opts.Timer.TickInterval = timer.DefaultTickInterval

	s, err := New(w, f.signals, f.announcer, nil, opts)
	require.NoError(t, err)
	f.session = s

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	t.Cleanup(cancel)
	go func() { f.results <- s.Run(ctx) }()
	return f
}

func (f *fixture) waitForRound(t *testing.T, index int, status fsm.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		p := f.session.Progress()
		return p.Index == index && p.Snapshot.Status == status
	}, time.Second, 5*time.Millisecond, "round %d never reached %s", index, status)
}

func (f *fixture) result(t *testing.T) Result {
	t.Helper()
	select {
	case r := <-f.results:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
		return Result{}
	}
}

func TestRunCompletesWorkoutAfterNaturalCompletions(t *testing.T) {
	f := newFixture(t, sparring(), Options{})
	f.waitForRound(t, 0, fsm.StateIdle)

	resp := f.session.Handle(context.Background(), ipc.Request{Command: ipc.CommandStart})
	require.True(t, resp.OK, resp.Error)

	f.clock.Advance(4 * time.Second)
	f.clock.Advance(60 * time.Second)
	require.Equal(t, fsm.StateCompleted, f.session.Progress().Snapshot.Status)
	f.clock.Advance(3 * time.Second)

	f.waitForRound(t, 1, fsm.StateAnnouncePending)
	f.clock.Advance(4*time.Second + 30*time.Second + 3*time.Second)

	result := f.result(t)
	require.Equal(t, OutcomeCompleted, result.Outcome)
	require.Equal(t, 2, result.RoundsCompleted)
	require.NoError(t, result.Err)
	require.Equal(t, "Sparring", result.Workout)
	require.Equal(t, 4, f.signals.count())
	require.Eventually(t, func() bool { return len(f.announcer.spoken()) == 2 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"Jab", "Rest"}, f.announcer.spoken())
}

func TestRunFirstRoundWaitsForStart(t *testing.T) {
	f := newFixture(t, sparring(), Options{})
	f.waitForRound(t, 0, fsm.StateIdle)

	f.clock.Advance(10 * time.Second)
	require.Equal(t, fsm.StateIdle, f.session.Progress().Snapshot.Status)
	require.Zero(t, f.signals.count())
}

func TestRunAutostartStartsFirstRound(t *testing.T) {
	f := newFixture(t, sparring(), Options{Autostart: true})
	f.waitForRound(t, 0, fsm.StateAnnouncePending)
	require.Equal(t, 1, f.signals.count())
}

func TestTerminateEndsWorkout(t *testing.T) {
	f := newFixture(t, sparring(), Options{Autostart: true})
	f.waitForRound(t, 0, fsm.StateAnnouncePending)
	f.clock.Advance(10 * time.Second)

	resp := f.session.Handle(context.Background(), ipc.Request{Command: ipc.CommandTerminate})
	require.True(t, resp.OK)

	result := f.result(t)
	require.Equal(t, OutcomeTerminated, result.Outcome)
	require.Zero(t, result.RoundsCompleted)
}

func TestTerminateDuringCompletionGraceRevokesAdvance(t *testing.T) {
	f := newFixture(t, sparring(), Options{Autostart: true})
	f.waitForRound(t, 0, fsm.StateAnnouncePending)
	f.clock.Advance(64 * time.Second)
	require.Equal(t, fsm.StateCompleted, f.session.Progress().Snapshot.Status)

	f.session.Handle(context.Background(), ipc.Request{Command: ipc.CommandTerminate})
	f.clock.Advance(3 * time.Second)

	result := f.result(t)
	require.Equal(t, OutcomeTerminated, result.Outcome)
	require.Zero(t, result.RoundsCompleted)
}

func TestSkipAdvancesWithoutEndCue(t *testing.T) {
	f := newFixture(t, sparring(), Options{Autostart: true})
	f.waitForRound(t, 0, fsm.StateAnnouncePending)
	f.clock.Advance(4*time.Second + 10*time.Second)
	require.Equal(t, 50, f.session.Progress().Snapshot.Remaining)

	resp := f.session.Handle(context.Background(), ipc.Request{Command: ipc.CommandSkip})
	require.True(t, resp.OK)

	f.waitForRound(t, 1, fsm.StateAnnouncePending)
	// Start cue of round one plus start cue of round two.
	require.Equal(t, 2, f.signals.count())

	f.session.Handle(context.Background(), ipc.Request{Command: ipc.CommandSkip})
	result := f.result(t)
	require.Equal(t, OutcomeCompleted, result.Outcome)
	require.Equal(t, 2, result.RoundsCompleted)
}

func TestStaleRoundEventsAreIgnored(t *testing.T) {
	f := newFixture(t, sparring(), Options{Autostart: true})
	f.waitForRound(t, 0, fsm.StateAnnouncePending)
	f.session.Handle(context.Background(), ipc.Request{Command: ipc.CommandSkip})
	f.waitForRound(t, 1, fsm.StateAnnouncePending)

	roundOwner{session: f.session, index: 0}.RoundComplete()
	roundOwner{session: f.session, index: 0}.Terminate()

	f.session.Handle(context.Background(), ipc.Request{Command: ipc.CommandTerminate})
	result := f.result(t)
	require.Equal(t, OutcomeTerminated, result.Outcome)
	require.Equal(t, 1, result.RoundsCompleted)
}

func TestRunCancelledByContext(t *testing.T) {
	f := newFixture(t, sparring(), Options{Autostart: true})
	f.waitForRound(t, 0, fsm.StateAnnouncePending)

	f.cancel()
	result := f.result(t)
	require.Equal(t, OutcomeCancelled, result.Outcome)
	require.ErrorIs(t, result.Err, context.Canceled)

	// The discarded timer never fires again.
	f.clock.Advance(2 * time.Minute)
	require.Equal(t, 1, f.signals.count())

	resp := f.session.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.False(t, resp.OK)
	require.Equal(t, "no active round", resp.Error)
}

func TestRunTwiceFails(t *testing.T) {
	f := newFixture(t, sparring(), Options{})
	f.waitForRound(t, 0, fsm.StateIdle)

	second := f.session.Run(context.Background())
	require.ErrorIs(t, second.Err, ErrAlreadyRunning)
}

func TestHandleStateGuards(t *testing.T) {
	f := newFixture(t, sparring(), Options{})
	f.waitForRound(t, 0, fsm.StateIdle)
	ctx := context.Background()

	for _, command := range []string{ipc.CommandPause, ipc.CommandResume, ipc.CommandStop} {
		resp := f.session.Handle(ctx, ipc.Request{Command: command})
		require.False(t, resp.OK, command)
		require.Equal(t, "cannot "+command+" from state idle", resp.Error)
	}

	unknown := f.session.Handle(ctx, ipc.Request{Command: "uppercut"})
	require.False(t, unknown.OK)
	require.Contains(t, unknown.Error, "unknown command")

	require.True(t, f.session.Handle(ctx, ipc.Request{Command: ipc.CommandStart}).OK)
	again := f.session.Handle(ctx, ipc.Request{Command: ipc.CommandStart})
	require.False(t, again.OK)
	require.Equal(t, "cannot start from state announce_pending", again.Error)

	paused := f.session.Handle(ctx, ipc.Request{Command: ipc.CommandPause})
	require.True(t, paused.OK)
	require.Equal(t, string(fsm.StatePaused), paused.State)

	resumed := f.session.Handle(ctx, ipc.Request{Command: ipc.CommandResume})
	require.True(t, resumed.OK)
	require.Equal(t, string(fsm.StateAnnouncePending), resumed.State)

	stopped := f.session.Handle(ctx, ipc.Request{Command: ipc.CommandStop})
	require.True(t, stopped.OK)
	require.Equal(t, string(fsm.StateIdle), stopped.State)
	require.Equal(t, 60, stopped.Round.Remaining)
}

func TestHandleStatusReportsRound(t *testing.T) {
	f := newFixture(t, sparring(), Options{Autostart: true})
	f.waitForRound(t, 0, fsm.StateAnnouncePending)
	f.clock.Advance(4*time.Second + 5*time.Second)

	resp := f.session.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.True(t, resp.OK)
	require.Equal(t, string(fsm.StateRunning), resp.State)
	require.Equal(t, &ipc.Round{Workout: "Sparring", Index: 0, Count: 2, Title: "Jab", Remaining: 55, Duration: 60}, resp.Round)
}

func TestObserverReceivesPositionedProgress(t *testing.T) {
	var mu sync.Mutex
	var seen []Progress
	f := newFixture(t, sparring(), Options{Autostart: true, Observer: func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, p)
	}})
	f.waitForRound(t, 0, fsm.StateAnnouncePending)
	f.session.Handle(context.Background(), ipc.Request{Command: ipc.CommandSkip})
	f.waitForRound(t, 1, fsm.StateAnnouncePending)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	require.Equal(t, 0, seen[0].Index)
	require.Equal(t, 2, seen[0].Count)
	require.Equal(t, "Jab", seen[0].Snapshot.Round.Title)
	last := seen[len(seen)-1]
	require.Equal(t, 1, last.Index)
	require.Equal(t, "Rest", last.Snapshot.Round.Title)
}

func TestNewRejectsInvalidWorkout(t *testing.T) {
	_, err := New(workout.Workout{Name: "Empty"}, nil, nil, nil, Options{})
	require.ErrorIs(t, err, workout.ErrNoRounds)
}
