package config

import (
	"fmt"
	"net/url"
	"strings"
)

var speechBackends = map[string]bool{
	"elevenlabs": true,
	"openai":     true,
	"local":      true,
}

var logLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if cfg.Timer.AnnounceDelayMS < 0 {
		return nil, fmt.Errorf("timer.announce_delay_ms must be >= 0")
	}
	if cfg.Timer.CompletionDelayMS < 0 {
		return nil, fmt.Errorf("timer.completion_delay_ms must be >= 0")
	}
	if cfg.Timer.AnnounceDelayMS == 0 {
		warnings = append(warnings, Warning{Message: "timer.announce_delay_ms=0; rounds start counting as soon as the cue plays (default 4000)"})
	}
	if cfg.Timer.CompletionDelayMS == 0 {
		warnings = append(warnings, Warning{Message: "timer.completion_delay_ms=0; the next round follows the end cue immediately (default 3000)"})
	}
	if cfg.Sound.Volume < 0 || cfg.Sound.Volume > 1 {
		return nil, fmt.Errorf("sound.volume must be between 0 and 1")
	}

	seen := make(map[string]bool, len(cfg.Speech.Backends))
	for _, name := range cfg.Speech.Backends {
		name = strings.ToLower(strings.TrimSpace(name))
		if !speechBackends[name] {
			return nil, fmt.Errorf("speech.backends contains unknown backend %q (want elevenlabs, openai, local)", name)
		}
		if seen[name] {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("speech.backends lists %q more than once", name)})
		}
		seen[name] = true
	}
	if seen["local"] && len(cfg.Speech.LocalCommand.Argv) == 0 {
		return nil, fmt.Errorf("speech.local_command must not be empty when the local backend is enabled")
	}
	if cfg.Speech.Enable && len(cfg.Speech.Backends) == 0 {
		warnings = append(warnings, Warning{Message: "speech.enable=true but speech.backends is empty; announcements are silent"})
	}

	for field, raw := range map[string]string{
		"sentiment.base_url":         cfg.Sentiment.BaseURL,
		"feedback.base_url":          cfg.Feedback.BaseURL,
		"speech.elevenlabs.base_url": cfg.Speech.ElevenLabs.BaseURL,
		"diary.server_url":           cfg.Diary.ServerURL,
	} {
		if err := validateHTTPURL(field, raw); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(cfg.Sentiment.Model) == "" {
		return nil, fmt.Errorf("sentiment.model must not be empty")
	}
	if strings.TrimSpace(cfg.Feedback.Model) == "" {
		return nil, fmt.Errorf("feedback.model must not be empty")
	}
	if cfg.Feedback.MaxTokens <= 0 {
		return nil, fmt.Errorf("feedback.max_tokens must be > 0")
	}
	if cfg.Feedback.Temperature < 0 || cfg.Feedback.Temperature > 2 {
		return nil, fmt.Errorf("feedback.temperature must be between 0 and 2")
	}
	if cfg.Feedback.TopP <= 0 || cfg.Feedback.TopP > 1 {
		return nil, fmt.Errorf("feedback.top_p must be in (0, 1]")
	}
	if cfg.Sentiment.TimeoutMS <= 0 || cfg.Feedback.TimeoutMS <= 0 {
		return nil, fmt.Errorf("sentiment.timeout_ms and feedback.timeout_ms must be > 0")
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return nil, fmt.Errorf("server.addr must not be empty")
	}
	if strings.TrimSpace(cfg.Server.GRPCAddr) == "" {
		warnings = append(warnings, Warning{Message: "server.grpc_addr is empty; grpc health service disabled"})
	}

	if !logLevels[strings.ToLower(strings.TrimSpace(cfg.Log.Level))] {
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	return warnings, nil
}

func validateHTTPURL(field, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", field)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host", field)
	}
	return nil
}
