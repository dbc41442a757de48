package workout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects the import/export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("unknown workout format")

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatFromPath infers the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode reads either a single workout or a list of workouts and validates
// every record. Nothing is returned unless all records are valid.
func Decode(r io.Reader, format Format) ([]Workout, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read workouts: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var workouts []Workout
	switch format {
	case FormatJSON:
		workouts, err = decodeJSON(data)
	case FormatYAML:
		workouts, err = decodeYAML(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode workouts (%s): %w", format, err)
	}

	for _, w := range workouts {
		if err := w.Validate(); err != nil {
			return nil, err
		}
	}
	return workouts, nil
}

func decodeJSON(data []byte) ([]Workout, error) {
	if data[0] == '{' {
		var w Workout
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return []Workout{w}, nil
	}
	var list []Workout
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func decodeYAML(data []byte) ([]Workout, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	if root.Kind == yaml.MappingNode {
		var w Workout
		if err := root.Decode(&w); err != nil {
			return nil, err
		}
		return []Workout{w}, nil
	}
	var list []Workout
	if err := root.Decode(&list); err != nil {
		return nil, err
	}
	return list, nil
}

// Encode writes workouts as a list in the requested format.
func Encode(w io.Writer, workouts []Workout, format Format) error {
	if workouts == nil {
		workouts = []Workout{}
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(workouts)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(workouts); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
