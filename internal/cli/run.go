package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rbright/ringbell/internal/audio"
	"github.com/rbright/ringbell/internal/bell"
	"github.com/rbright/ringbell/internal/display"
	"github.com/rbright/ringbell/internal/ipc"
	"github.com/rbright/ringbell/internal/session"
	"github.com/rbright/ringbell/internal/speech"
	"github.com/rbright/ringbell/internal/timer"
	"github.com/rbright/ringbell/internal/workout"
)

const (
	claimProbeTimeout = 180 * time.Millisecond
	notifyBacklog     = 8
)

type runOptions struct {
	autostart bool
	notify    bool
	noSound   bool
	noSpeech  bool
	diary     bool
	noDiary   bool
}

func newRunCommand(env *Env) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run <workout>",
		Short: "Run a workout in this terminal and accept control commands",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.runWorkout(cmd.Context(), args[0], opts)
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&opts.autostart, "autostart", false, "start the first round without waiting for `ringbell start`")
	flags.BoolVar(&opts.notify, "notify", false, "post desktop notifications at round boundaries")
	flags.BoolVar(&opts.noSound, "no-sound", false, "disable round cues")
	flags.BoolVar(&opts.noSpeech, "no-speech", false, "disable spoken round titles")
	flags.BoolVar(&opts.diary, "diary", false, "always ask for a reflection after a completed workout")
	flags.BoolVar(&opts.noDiary, "no-diary", false, "never ask for a reflection")
	return cmd
}

func (e *Env) runWorkout(ctx context.Context, name string, opts runOptions) error {
	cfg := e.cfg()
	logger := e.Logger

	library, err := e.library()
	if err != nil {
		return err
	}
	w, err := library.Get(name)
	if err != nil {
		return err
	}

	ep, err := ipc.DefaultEndpoint()
	if err != nil {
		return err
	}
	ep.Timeout = claimProbeTimeout
	owner, err := ep.Claim(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = owner.Close() }()

	if opts.noSound {
		cfg.Sound.Enable = false
	}
	if opts.noSpeech {
		cfg.Speech.Enable = false
	}
	signals := bell.New(cfg.Sound, logger)
	defer signals.Close()
	announcer := speech.New(cfg, audio.Output{Sink: cfg.Sound.Sink, Volume: cfg.Sound.Volume}, logger)

	term := display.NewTerminal(e.Stdout)
	observe := term.Render
	if opts.notify {
		relay := newNotifyRelay(display.NewNotifier(logger))
		defer relay.close()
		observe = func(p session.Progress) {
			term.Render(p)
			relay.push(p)
		}
	}

	sess, err := session.New(w, signals, announcer, logger, session.Options{
		Timer: timer.Options{
			Logger:          logger,
			AnnounceDelay:   time.Duration(cfg.Timer.AnnounceDelayMS) * time.Millisecond,
			CompletionDelay: time.Duration(cfg.Timer.CompletionDelayMS) * time.Millisecond,
		},
		Autostart: opts.autostart || cfg.Timer.Autostart,
		Observer:  observe,
	})
	if err != nil {
		return err
	}

	if !opts.autostart && !cfg.Timer.Autostart {
		fmt.Fprintf(e.Stderr, "%s ready: run `ringbell start` to begin\n", w.Name)
	}

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- owner.Serve(serverCtx, sess)
	}()

	result := sess.Run(ctx)
	serverCancel()
	serverErr := <-serverErrCh

	logResult(logger, result)

	switch result.Outcome {
	case session.OutcomeCompleted:
		term.Finish(fmt.Sprintf("%s complete: %d rounds", w.Name, result.RoundsCompleted))
	case session.OutcomeTerminated:
		term.Finish(fmt.Sprintf("%s terminated after %d of %d rounds", w.Name, result.RoundsCompleted, len(w.Rounds)))
	default:
		term.Finish("cancelled")
	}

	if serverErr != nil {
		return fmt.Errorf("ipc server failed: %w", serverErr)
	}
	if result.Err != nil && !errors.Is(result.Err, context.Canceled) {
		return result.Err
	}

	if result.Outcome == session.OutcomeCompleted && e.shouldPrompt(opts) {
		e.promptReflection(ctx)
	}
	return nil
}

func (e *Env) shouldPrompt(opts runOptions) bool {
	if opts.noDiary {
		return false
	}
	if opts.diary {
		return true
	}
	return e.cfg().Diary.Prompt && isTerminal(e.Stdin)
}

// promptReflection reads one line from stdin and sends it to the diary proxy.
// Failures are reported but never fail the workout.
func (e *Env) promptReflection(ctx context.Context) {
	fmt.Fprint(e.Stdout, "How did it go? (leave empty to skip) ")
	text, err := readLine(e.Stdin)
	if err != nil {
		e.Logger.Debug("read reflection failed", zap.Error(err))
		fmt.Fprintln(e.Stdout)
		return
	}
	if text == "" {
		return
	}
	if err := e.reflect(ctx, text); err != nil {
		fmt.Fprintf(e.Stderr, "warning: %v\n", err)
	}
}

func readLine(r io.Reader) (string, error) {
	if r == nil {
		return "", io.EOF
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func logResult(logger *zap.Logger, result session.Result) {
	fields := []zap.Field{
		zap.String("workout", result.Workout),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("rounds_completed", result.RoundsCompleted),
		zap.Time("started_at", result.StartedAt),
		zap.Time("finished_at", result.FinishedAt),
		zap.Int64("duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds()),
	}
	if result.Err != nil && !errors.Is(result.Err, context.Canceled) {
		logger.Error("workout failed", append(fields, zap.Error(result.Err))...)
		return
	}
	logger.Info("workout finished", fields...)
}

// notifyRelay moves desktop notifications off the session observer path.
// Progress is dropped when the backlog is full.
type notifyRelay struct {
	ch   chan session.Progress
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

func newNotifyRelay(n *display.Notifier) *notifyRelay {
	r := &notifyRelay{ch: make(chan session.Progress, notifyBacklog), done: make(chan struct{})}
	go func() {
		defer close(r.done)
		for p := range r.ch {
			n.Observe(p)
		}
	}()
	return r
}

func (r *notifyRelay) push(p session.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.ch <- p:
	default:
	}
}

func (r *notifyRelay) close() {
	r.mu.Lock()
	r.closed = true
	close(r.ch)
	r.mu.Unlock()
	<-r.done
}

func (e *Env) library() (*workout.Library, error) {
	path, err := e.cfg().WorkoutsPath()
	if err != nil {
		return nil, fmt.Errorf("resolve workouts path: %w", err)
	}
	return workout.NewLibrary(path), nil
}
