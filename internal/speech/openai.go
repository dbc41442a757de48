package speech

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI speaks through the OpenAI audio speech endpoint.
type OpenAI struct {
	client openai.Client
	apiKey string
	model  string
	voice  string
	out    Output
}

// NewOpenAI builds the backend. It is unavailable without an API key.
func NewOpenAI(apiKey, baseURL, model, voice string, out Output) *OpenAI {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)
	return &OpenAI{client: client, apiKey: apiKey, model: model, voice: voice, out: out}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Available() bool {
	return o.out != nil && strings.TrimSpace(o.apiKey) != ""
}

func (o *OpenAI) Speak(ctx context.Context, text string) error {
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(o.model),
		Voice:          openai.AudioSpeechNewParamsVoice(o.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatPCM,
	})
	if err != nil {
		return fmt.Errorf("request speech: %w", err)
	}
	defer resp.Body.Close()

	return playPCM(ctx, o.out, resp.Body, "announcement")
}
