package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rbright/ringbell/internal/audio"
	"github.com/rbright/ringbell/internal/config"
)

const remoteSampleRate = 24000

// ElevenLabs speaks through the ElevenLabs text-to-speech REST API.
type ElevenLabs struct {
	cfg    config.ElevenLabsConfig
	out    Output
	client *http.Client
}

// NewElevenLabs builds the backend. It is unavailable without a key and voice.
func NewElevenLabs(cfg config.ElevenLabsConfig, out Output) *ElevenLabs {
	return &ElevenLabs{cfg: cfg, out: out, client: &http.Client{Timeout: 20 * time.Second}}
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

func (e *ElevenLabs) Available() bool {
	return e.out != nil && strings.TrimSpace(e.cfg.APIKey) != "" && strings.TrimSpace(e.cfg.VoiceID) != ""
}

type elevenLabsRequest struct {
	Text          string                `json:"text"`
	ModelID       string                `json:"model_id"`
	VoiceSettings elevenLabsVoiceConfig `json:"voice_settings"`
}

type elevenLabsVoiceConfig struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

func (e *ElevenLabs) Speak(ctx context.Context, text string) error {
	body, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: e.cfg.Model,
		VoiceSettings: elevenLabsVoiceConfig{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s?output_format=pcm_%d",
		strings.TrimRight(e.cfg.BaseURL, "/"), url.PathEscape(e.cfg.VoiceID), remoteSampleRate)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("request speech: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("elevenlabs returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return playPCM(ctx, e.out, resp.Body, "announcement")
}

func playPCM(ctx context.Context, out Output, body io.Reader, name string) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read speech audio: %w", err)
	}
	if len(raw) < 2 {
		return fmt.Errorf("speech audio is empty")
	}
	return out.Play(ctx, audio.Clip{Name: name, SampleRate: remoteSampleRate, Samples: audio.DecodePCM16LE(raw)})
}
