// Package config resolves, parses, validates, and defaults ringbell configuration.
package config

// Config is the fully materialized runtime configuration used by ringbell.
type Config struct {
	Timer     TimerConfig     `toml:"timer"`
	Sound     SoundConfig     `toml:"sound"`
	Speech    SpeechConfig    `toml:"speech"`
	Sentiment SentimentConfig `toml:"sentiment"`
	Feedback  FeedbackConfig  `toml:"feedback"`
	Server    ServerConfig    `toml:"server"`
	Diary     DiaryConfig     `toml:"diary"`
	Workouts  WorkoutsConfig  `toml:"workouts"`
	Log       LogConfig       `toml:"log"`
}

// TimerConfig controls round pacing.
type TimerConfig struct {
	AnnounceDelayMS   int  `toml:"announce_delay_ms"`
	CompletionDelayMS int  `toml:"completion_delay_ms"`
	Autostart         bool `toml:"autostart"`
}

// SoundConfig controls the round bell.
type SoundConfig struct {
	Enable bool    `toml:"enable"`
	File   string  `toml:"file"`
	Volume float64 `toml:"volume"`
	Sink   string  `toml:"sink"`
}

// SpeechConfig controls round-title announcements.
type SpeechConfig struct {
	Enable       bool             `toml:"enable"`
	Backends     []string         `toml:"backends"`
	LocalCommand CommandConfig    `toml:"local_command"`
	ElevenLabs   ElevenLabsConfig `toml:"elevenlabs"`
	OpenAIModel  string           `toml:"openai_model"`
	OpenAIVoice  string           `toml:"openai_voice"`
}

// ElevenLabsConfig holds the remote voice settings.
type ElevenLabsConfig struct {
	APIKey  string `toml:"api_key"`
	VoiceID string `toml:"voice_id"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

// SentimentConfig points at the hosted text classifier.
type SentimentConfig struct {
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
	TimeoutMS int    `toml:"timeout_ms"`
}

// FeedbackConfig points at the hosted text generator.
type FeedbackConfig struct {
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
	TopP        float64 `toml:"top_p"`
	TimeoutMS   int     `toml:"timeout_ms"`
}

// ServerConfig controls the diary proxy listeners.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	GRPCAddr       string   `toml:"grpc_addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// DiaryConfig controls diary persistence and the post-workout prompt.
type DiaryConfig struct {
	ServerURL string `toml:"server_url"`
	DBPath    string `toml:"db_path"`
	Prompt    bool   `toml:"prompt"`
}

// WorkoutsConfig locates the workout library.
type WorkoutsConfig struct {
	Path string `toml:"path"`
}

// LogConfig controls log verbosity.
type LogConfig struct {
	Level string `toml:"level"`
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
