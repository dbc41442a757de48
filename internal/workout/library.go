package workout

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultFilePermissions is used for the library file.
const DefaultFilePermissions = 0o600

var ErrNotFound = errors.New("workout not found")

// Library persists workouts in a single JSON or YAML file, keyed by name.
type Library struct {
	path   string
	format Format
	mu     sync.Mutex
}

// NewLibrary opens a library at path. The format follows the file extension.
func NewLibrary(path string) *Library {
	return &Library{path: path, format: FormatFromPath(path)}
}

// Path returns the backing file.
func (l *Library) Path() string { return l.path }

// List returns every stored workout in insertion order.
func (l *Library) List() ([]Workout, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readLocked()
}

// Get returns the workout with the given name (case-insensitive).
func (l *Library) Get(name string) (Workout, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	workouts, err := l.readLocked()
	if err != nil {
		return Workout{}, err
	}
	if i := indexOf(workouts, name); i >= 0 {
		return workouts[i], nil
	}
	return Workout{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Save validates w and inserts it, replacing a stored workout of the same name.
func (l *Library) Save(w Workout) error {
	if err := w.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	workouts, err := l.readLocked()
	if err != nil {
		return err
	}
	return l.writeLocked(upsert(workouts, w))
}

// Delete removes the named workout.
func (l *Library) Delete(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	workouts, err := l.readLocked()
	if err != nil {
		return err
	}
	i := indexOf(workouts, name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return l.writeLocked(append(workouts[:i], workouts[i+1:]...))
}

// Import decodes workouts from r and merges them into the library. New names
// are appended; existing names are replaced. Either every record is stored or none.
func (l *Library) Import(r io.Reader, format Format) ([]Workout, error) {
	imported, err := Decode(r, format)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	workouts, err := l.readLocked()
	if err != nil {
		return nil, err
	}
	for _, w := range imported {
		workouts = upsert(workouts, w)
	}
	if err := l.writeLocked(workouts); err != nil {
		return nil, err
	}
	return imported, nil
}

// Export writes the named workouts (all when names is empty) to w.
func (l *Library) Export(w io.Writer, format Format, names ...string) error {
	l.mu.Lock()
	workouts, err := l.readLocked()
	l.mu.Unlock()
	if err != nil {
		return err
	}

	if len(names) > 0 {
		selected := make([]Workout, 0, len(names))
		for _, name := range names {
			i := indexOf(workouts, name)
			if i < 0 {
				return fmt.Errorf("%w: %q", ErrNotFound, name)
			}
			selected = append(selected, workouts[i])
		}
		workouts = selected
	}
	return Encode(w, workouts, format)
}

func (l *Library) readLocked() ([]Workout, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Workout{}, nil
		}
		return nil, fmt.Errorf("open workout library %q: %w", l.path, err)
	}
	defer f.Close()

	workouts, err := Decode(f, l.format)
	if err != nil {
		return nil, fmt.Errorf("load workout library %q: %w", l.path, err)
	}
	if workouts == nil {
		workouts = []Workout{}
	}
	return workouts, nil
}

func (l *Library) writeLocked(workouts []Workout) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return fmt.Errorf("create workout library dir: %w", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, workouts, l.format); err != nil {
		return fmt.Errorf("encode workout library: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), DefaultFilePermissions); err != nil {
		return fmt.Errorf("write workout library: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("replace workout library: %w", err)
	}
	return nil
}

func indexOf(workouts []Workout, name string) int {
	name = strings.TrimSpace(name)
	for i, w := range workouts {
		if strings.EqualFold(w.Name, name) {
			return i
		}
	}
	return -1
}

func upsert(workouts []Workout, w Workout) []Workout {
	if i := indexOf(workouts, w.Name); i >= 0 {
		workouts[i] = w
		return workouts
	}
	return append(workouts, w)
}
