package display

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rbright/ringbell/internal/fsm"
	"github.com/rbright/ringbell/internal/session"
)

const (
	notifyAppName   = "ringbell"
	notifyTimeoutMS = 5000
	notifyDeadline  = 400 * time.Millisecond
)

// Notifier posts a replaceable freedesktop notification whenever a round
// begins counting or finishes. Failures are logged at debug and dropped.
type Notifier struct {
	logger *zap.Logger

	mu       sync.Mutex
	id       uint32
	lastKey  string
	notifyFn func(ctx context.Context, replaceID uint32, summary, body string) (uint32, error)
}

func NewNotifier(logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{logger: logger.Named("notify"), notifyFn: desktopNotify}
}

// Observe is a session observer. It only notifies on round boundaries.
func (n *Notifier) Observe(p session.Progress) {
	summary, body, ok := notification(p)
	if !ok {
		return
	}
	key := fmt.Sprintf("%d:%s", p.Index, p.Snapshot.Status)

	n.mu.Lock()
	if key == n.lastKey {
		n.mu.Unlock()
		return
	}
	n.lastKey = key
	replaceID := n.id
	n.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), notifyDeadline)
	defer cancel()

	id, err := n.notifyFn(ctx, replaceID, summary, body)
	if err != nil {
		n.logger.Debug("desktop notification failed", zap.Error(err))
		return
	}

	n.mu.Lock()
	n.id = id
	n.mu.Unlock()
}

func notification(p session.Progress) (string, string, bool) {
	snap := p.Snapshot
	position := fmt.Sprintf("Round %d of %d", p.Index+1, p.Count)
	switch snap.Status {
	case fsm.StateRunning:
		return snap.Round.Title, position + " · " + FormatClock(snap.Remaining), snap.Remaining == snap.Round.DurationSeconds
	case fsm.StateCompleted:
		return "Time: " + snap.Round.Title, position + " finished", true
	default:
		return "", "", false
	}
}

// desktopNotify calls org.freedesktop.Notifications.Notify through busctl and
// returns the id assigned by the notification server.
func desktopNotify(ctx context.Context, replaceID uint32, summary, body string) (uint32, error) {
	args := []string{
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"Notify",
		"susssasa{sv}i",
		notifyAppName,
		strconv.FormatUint(uint64(replaceID), 10),
		"",
		summary,
		body,
		"0",
		"0",
		strconv.Itoa(notifyTimeoutMS),
	}

	out, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	if err != nil {
		if trimmed := strings.TrimSpace(string(out)); trimmed != "" {
			return 0, fmt.Errorf("busctl notify: %w (%s)", err, trimmed)
		}
		return 0, fmt.Errorf("busctl notify: %w", err)
	}

	fields := strings.Fields(string(out))
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("busctl notify: unexpected reply %q", strings.TrimSpace(string(out)))
	}
	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("busctl notify: parse id %q: %w", fields[1], err)
	}
	return uint32(id), nil
}
