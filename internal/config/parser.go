package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Parse decodes TOML content on top of base and validates the result.
//
// Keys the schema does not know are reported as warnings, not errors.
func Parse(content string, base Config) (Config, []Warning, error) {
	cfg := base
	if strings.TrimSpace(content) != "" {
		meta, err := toml.Decode(content, &cfg)
		if err != nil {
			return Config{}, nil, err
		}
		warnings := undecodedWarnings(meta)
		validated, err := Validate(cfg)
		if err != nil {
			return Config{}, nil, err
		}
		return cfg, append(warnings, validated...), nil
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func undecodedWarnings(meta toml.MetaData) []Warning {
	keys := meta.Undecoded()
	warnings := make([]Warning, 0, len(keys))
	for _, key := range keys {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("unknown config key %q ignored", key.String())})
	}
	return warnings
}
