package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rbright/ringbell/internal/session"
)

// Terminal redraws one status line in place using carriage returns.
type Terminal struct {
	mu      sync.Mutex
	w       io.Writer
	last    string
	lastLen int
}

func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

// Render redraws the line when it changed. Safe for concurrent use.
func (t *Terminal) Render(p session.Progress) {
	line := Line(p)

	t.mu.Lock()
	defer t.mu.Unlock()
	if line == t.last {
		return
	}

	pad := ""
	if n := t.lastLen - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	_, _ = fmt.Fprintf(t.w, "\r%s%s", line, pad)
	t.last = line
	t.lastLen = len(line)
}

// Finish ends the live line and prints message on its own line.
func (t *Terminal) Finish(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastLen > 0 {
		_, _ = fmt.Fprintln(t.w)
	}
	if message != "" {
		_, _ = fmt.Fprintln(t.w, message)
	}
	t.last = ""
	t.lastLen = 0
}
