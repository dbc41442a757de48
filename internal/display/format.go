// Package display renders workout progress for humans: a single refreshing
// terminal line and optional desktop notifications at round boundaries.
package display

import (
	"fmt"

	"github.com/rbright/ringbell/internal/fsm"
	"github.com/rbright/ringbell/internal/session"
)

// FormatClock renders seconds as mm:ss. Negative input renders as 00:00.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// StatusLabel is the human label for a round status.
func StatusLabel(status fsm.State) string {
	switch status {
	case fsm.StateIdle:
		return "ready"
	case fsm.StateAnnouncePending:
		return "get set"
	case fsm.StateRunning:
		return "fight"
	case fsm.StatePaused:
		return "paused"
	case fsm.StateCompleted:
		return "time"
	default:
		return string(status)
	}
}

// Line renders one progress line, e.g. "[1/3] Jab  00:42  fight".
func Line(p session.Progress) string {
	snap := p.Snapshot
	return fmt.Sprintf("[%d/%d] %s  %s  %s",
		p.Index+1, p.Count, snap.Round.Title, FormatClock(snap.Remaining), StatusLabel(snap.Status))
}
