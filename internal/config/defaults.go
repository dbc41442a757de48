package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	local := "espeak-ng -v en-us -s 165"

	return Config{
		Timer: TimerConfig{
			AnnounceDelayMS:   4000,
			CompletionDelayMS: 3000,
		},
		Sound: SoundConfig{
			Enable: true,
			Volume: 0.8,
		},
		Speech: SpeechConfig{
			Enable:       true,
			Backends:     []string{"elevenlabs", "openai", "local"},
			LocalCommand: CommandConfig{Raw: local, Argv: mustParseArgv(local)},
			ElevenLabs: ElevenLabsConfig{
				Model:   "eleven_multilingual_v2",
				BaseURL: "https://api.elevenlabs.io/v1",
			},
			OpenAIModel: "tts-1",
			OpenAIVoice: "alloy",
		},
		Sentiment: SentimentConfig{
			BaseURL:   "https://api-inference.huggingface.co/models",
			Model:     "distilbert/distilbert-base-uncased-finetuned-sst-2-english",
			TimeoutMS: 15000,
		},
		Feedback: FeedbackConfig{
			BaseURL:     "https://api.openai.com/v1/",
			Model:       "gpt-3.5-turbo",
			MaxTokens:   150,
			Temperature: 0.7,
			TopP:        0.9,
			TimeoutMS:   20000,
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:5000",
			GRPCAddr:       "127.0.0.1:5001",
			AllowedOrigins: []string{"*"},
		},
		Diary: DiaryConfig{
			ServerURL: "http://127.0.0.1:5000",
			Prompt:    true,
		},
		Log: LogConfig{Level: "info"},
	}
}
