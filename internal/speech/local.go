package speech

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Local speaks by running a command with the phrase as its final argument.
type Local struct {
	argv []string
}

// NewLocal builds the backend from a parsed argv, e.g. espeak-ng -v en-us.
func NewLocal(argv []string) *Local {
	return &Local{argv: append([]string(nil), argv...)}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Available() bool {
	if len(l.argv) == 0 {
		return false
	}
	_, err := exec.LookPath(l.argv[0])
	return err == nil
}

func (l *Local) Speak(ctx context.Context, text string) error {
	args := append(append([]string(nil), l.argv[1:]...), text)
	cmd := exec.CommandContext(ctx, l.argv[0], args...)
	cmd.WaitDelay = 500 * time.Millisecond
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", l.argv[0], err, out)
	}
	return nil
}
