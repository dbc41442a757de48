package config

import (
	"fmt"
	"strings"
	"unicode"
)

// CommandConfig stores a raw command line and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// UnmarshalText parses a shell-like command line into argv.
func (c *CommandConfig) UnmarshalText(text []byte) error {
	argv, err := splitCommand(string(text))
	if err != nil {
		return err
	}
	c.Raw = string(text)
	c.Argv = argv
	return nil
}

// MarshalText returns the raw command line.
func (c CommandConfig) MarshalText() ([]byte, error) {
	return []byte(c.Raw), nil
}

// splitCommand tokenizes a command line honoring single/double quotes and
// backslash escapes. No variable expansion or globbing is performed.
func splitCommand(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	var (
		argv    []string
		word    strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range input {
		if escaped {
			word.WriteRune(r)
			escaped = false
			continue
		}
		if quote != 0 {
			if r == quote {
				quote = 0
			} else {
				word.WriteRune(r)
			}
			continue
		}

		switch {
		case r == '\\':
			escaped, inWord = true, true
		case r == '\'' || r == '"':
			quote, inWord = r, true
		case unicode.IsSpace(r):
			if inWord {
				argv = append(argv, word.String())
				word.Reset()
				inWord = false
			}
		default:
			word.WriteRune(r)
			inWord = true
		}
	}

	if escaped {
		return nil, fmt.Errorf("unterminated escape in command %q", input)
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in command %q", input)
	}
	if inWord {
		argv = append(argv, word.String())
	}
	return argv, nil
}

func mustParseArgv(input string) []string {
	argv, err := splitCommand(input)
	if err != nil {
		panic(err)
	}
	return argv
}
