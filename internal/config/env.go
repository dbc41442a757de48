package config

import "strings"

// Environment variables that supply credentials when the config file leaves them empty.
const (
	EnvOpenAIKey         = "OPENAI_API_KEY"
	EnvHuggingFaceKey    = "HUGGINGFACE_API_KEY"
	EnvElevenLabsKey     = "ELEVENLABS_API_KEY"
	EnvElevenLabsVoiceID = "ELEVENLABS_VOICE_ID"
)

// ApplyEnv fills empty credential fields from lookup and returns the names of
// the variables that were used.
func ApplyEnv(cfg Config, lookup func(string) string) (Config, []string) {
	var used []string
	fill := func(dst *string, key string) {
		if strings.TrimSpace(*dst) != "" {
			return
		}
		if v := strings.TrimSpace(lookup(key)); v != "" {
			*dst = v
			used = append(used, key)
		}
	}

	fill(&cfg.Feedback.APIKey, EnvOpenAIKey)
	fill(&cfg.Sentiment.APIKey, EnvHuggingFaceKey)
	fill(&cfg.Speech.ElevenLabs.APIKey, EnvElevenLabsKey)
	fill(&cfg.Speech.ElevenLabs.VoiceID, EnvElevenLabsVoiceID)
	return cfg, used
}
