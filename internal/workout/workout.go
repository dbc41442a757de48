// Package workout models workouts and rounds and persists them as a library.
package workout

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultSignal is the cue played when a round names none.
	DefaultSignal = "bell"
	// MaxRoundSeconds caps a single round.
	MaxRoundSeconds = 1800
)

var (
	ErrEmptyName     = errors.New("workout name must not be empty")
	ErrNoRounds      = errors.New("workout must have at least one round")
	ErrEmptyTitle    = errors.New("round title must not be empty")
	ErrRoundDuration = fmt.Errorf("round duration must be between 1 and %d seconds", MaxRoundSeconds)
	ErrRoundIndex    = errors.New("round index out of range")
)

// Round is one timed segment of a workout.
type Round struct {
	Title           string `json:"title" yaml:"title"`
	DurationSeconds int    `json:"durationSeconds" yaml:"durationSeconds"`
	SignalID        string `json:"signalId,omitempty" yaml:"signalId,omitempty"`
}

// Duration returns the round length.
func (r Round) Duration() time.Duration {
	return time.Duration(r.DurationSeconds) * time.Second
}

// Signal returns the round cue, defaulting to the standard bell.
func (r Round) Signal() string {
	if s := strings.TrimSpace(r.SignalID); s != "" {
		return s
	}
	return DefaultSignal
}

// Validate checks the round bounds.
func (r Round) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrEmptyTitle
	}
	if r.DurationSeconds < 1 || r.DurationSeconds > MaxRoundSeconds {
		return fmt.Errorf("%w: %q has %d", ErrRoundDuration, r.Title, r.DurationSeconds)
	}
	return nil
}

// Workout is a named, ordered list of rounds.
type Workout struct {
	Name   string  `json:"name" yaml:"name"`
	Rounds []Round `json:"rounds" yaml:"rounds"`
}

// Validate checks the workout and every round.
func (w Workout) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return ErrEmptyName
	}
	if len(w.Rounds) == 0 {
		return fmt.Errorf("%w: %q", ErrNoRounds, w.Name)
	}
	for i, r := range w.Rounds {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("round %d of %q: %w", i+1, w.Name, err)
		}
	}
	return nil
}

// TotalDuration sums every round.
func (w Workout) TotalDuration() time.Duration {
	var total time.Duration
	for _, r := range w.Rounds {
		total += r.Duration()
	}
	return total
}

// AddRound appends r.
func (w Workout) AddRound(r Round) Workout {
	w.Rounds = append(append([]Round(nil), w.Rounds...), r)
	return w
}

// DuplicateRound inserts a copy of round i right after it, titled "<title> (copy)".
func (w Workout) DuplicateRound(i int) (Workout, error) {
	if i < 0 || i >= len(w.Rounds) {
		return w, fmt.Errorf("%w: %d", ErrRoundIndex, i)
	}
	dup := w.Rounds[i]
	dup.Title += " (copy)"

	rounds := make([]Round, 0, len(w.Rounds)+1)
	rounds = append(rounds, w.Rounds[:i+1]...)
	rounds = append(rounds, dup)
	rounds = append(rounds, w.Rounds[i+1:]...)
	w.Rounds = rounds
	return w, nil
}

// RemoveRound drops round i. The last remaining round cannot be removed.
func (w Workout) RemoveRound(i int) (Workout, error) {
	if i < 0 || i >= len(w.Rounds) {
		return w, fmt.Errorf("%w: %d", ErrRoundIndex, i)
	}
	if len(w.Rounds) == 1 {
		return w, ErrNoRounds
	}
	rounds := make([]Round, 0, len(w.Rounds)-1)
	rounds = append(rounds, w.Rounds[:i]...)
	rounds = append(rounds, w.Rounds[i+1:]...)
	w.Rounds = rounds
	return w, nil
}
