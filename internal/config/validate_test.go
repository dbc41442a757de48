package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDefaultsHasNoWarnings(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidateRejectsInvalidCoreFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "negative announce delay", mutate: func(c *Config) { c.Timer.AnnounceDelayMS = -1 }, wantErr: "announce_delay_ms"},
		{name: "negative completion delay", mutate: func(c *Config) { c.Timer.CompletionDelayMS = -5 }, wantErr: "completion_delay_ms"},
		{name: "volume above one", mutate: func(c *Config) { c.Sound.Volume = 1.5 }, wantErr: "sound.volume"},
		{name: "unknown speech backend", mutate: func(c *Config) { c.Speech.Backends = []string{"polly"} }, wantErr: "polly"},
		{name: "local backend without command", mutate: func(c *Config) { c.Speech.LocalCommand = CommandConfig{} }, wantErr: "speech.local_command"},
		{name: "sentiment url scheme", mutate: func(c *Config) { c.Sentiment.BaseURL = "ftp://models" }, wantErr: "sentiment.base_url"},
		{name: "feedback url empty", mutate: func(c *Config) { c.Feedback.BaseURL = "" }, wantErr: "feedback.base_url"},
		{name: "diary url without host", mutate: func(c *Config) { c.Diary.ServerURL = "http://" }, wantErr: "diary.server_url"},
		{name: "empty sentiment model", mutate: func(c *Config) { c.Sentiment.Model = " " }, wantErr: "sentiment.model"},
		{name: "zero max tokens", mutate: func(c *Config) { c.Feedback.MaxTokens = 0 }, wantErr: "max_tokens"},
		{name: "temperature too high", mutate: func(c *Config) { c.Feedback.Temperature = 2.5 }, wantErr: "temperature"},
		{name: "top p zero", mutate: func(c *Config) { c.Feedback.TopP = 0 }, wantErr: "top_p"},
		{name: "zero timeout", mutate: func(c *Config) { c.Sentiment.TimeoutMS = 0 }, wantErr: "timeout_ms"},
		{name: "empty server addr", mutate: func(c *Config) { c.Server.Addr = "" }, wantErr: "server.addr"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: "log.level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateWarnings(t *testing.T) {
	cfg := Default()
	cfg.Speech.Backends = []string{"openai", "openai"}
	cfg.Server.GRPCAddr = ""

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	require.Contains(t, warnings[0].Message, "more than once")
	require.Contains(t, warnings[1].Message, "grpc_addr")
}

func TestValidateWarnsWhenRoundDelaysAreDisabled(t *testing.T) {
	cfg := Default()
	cfg.Timer.AnnounceDelayMS = 0
	cfg.Timer.CompletionDelayMS = 0

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	require.Contains(t, warnings[0].Message, "timer.announce_delay_ms=0")
	require.Contains(t, warnings[1].Message, "timer.completion_delay_ms=0")

	cfg.Timer.AnnounceDelayMS = 1500
	cfg.Timer.CompletionDelayMS = 500
	warnings, err = Validate(cfg)
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestApplyEnvDoesNotOverrideFileValues(t *testing.T) {
	env := map[string]string{
		EnvOpenAIKey:         "sk-env",
		EnvHuggingFaceKey:    "hf-env",
		EnvElevenLabsKey:     "el-env",
		EnvElevenLabsVoiceID: "voice-env",
	}
	cfg := Default()
	cfg.Speech.ElevenLabs.VoiceID = "voice-file"

	got, used := ApplyEnv(cfg, func(key string) string { return env[key] })
	require.Equal(t, []string{EnvOpenAIKey, EnvHuggingFaceKey, EnvElevenLabsKey}, used)
	require.Equal(t, "sk-env", got.Feedback.APIKey)
	require.Equal(t, "hf-env", got.Sentiment.APIKey)
	require.Equal(t, "el-env", got.Speech.ElevenLabs.APIKey)
	require.Equal(t, "voice-file", got.Speech.ElevenLabs.VoiceID)
}
