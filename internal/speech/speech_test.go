package speech

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rbright/ringbell/internal/audio"
	"github.com/rbright/ringbell/internal/config"
)

type fakeBackend struct {
	name      string
	available bool
	err       error
	block     bool
	calls     atomic.Int32
	started   chan struct{}
}

func (f *fakeBackend) Name() string    { return f.name }
func (f *fakeBackend) Available() bool { return f.available }

func (f *fakeBackend) Speak(ctx context.Context, _ string) error {
	f.calls.Add(1)
	if f.started != nil {
		close(f.started)
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

type recordingOutput struct {
	mu    sync.Mutex
	clips []audio.Clip
}

func (r *recordingOutput) Play(_ context.Context, clip audio.Clip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clips = append(r.clips, clip)
	return nil
}

func TestChainFallsThroughToNextBackend(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	first := &fakeBackend{name: "elevenlabs", available: true, err: errors.New("quota exceeded")}
	skipped := &fakeBackend{name: "openai", available: false}
	last := &fakeBackend{name: "local", available: true}

	chain := NewChain(zap.New(core), first, skipped, last)
	require.NoError(t, chain.Speak(context.Background(), "Jab"))

	require.Equal(t, int32(1), first.calls.Load())
	require.Equal(t, int32(0), skipped.calls.Load())
	require.Equal(t, int32(1), last.calls.Load())
	require.Equal(t, 1, logs.FilterMessage("speech backend failed").Len())
	require.Equal(t, map[string]bool{"elevenlabs": true, "openai": false, "local": true}, chain.Backends())
}

func TestChainReportsWhenEveryBackendFails(t *testing.T) {
	chain := NewChain(nil,
		&fakeBackend{name: "elevenlabs", available: true, err: errors.New("401")},
		&fakeBackend{name: "local", available: true, err: errors.New("exit 1")},
	)
	err := chain.Speak(context.Background(), "Jab")
	require.ErrorIs(t, err, ErrNoBackend)
	require.Contains(t, err.Error(), "elevenlabs: 401")
	require.Contains(t, err.Error(), "local: exit 1")

	require.ErrorIs(t, NewChain(nil).Speak(context.Background(), "Jab"), ErrNoBackend)
}

func TestChainEmptyTextIsNoop(t *testing.T) {
	backend := &fakeBackend{name: "local", available: true}
	require.NoError(t, NewChain(nil, backend).Speak(context.Background(), "   "))
	require.Equal(t, int32(0), backend.calls.Load())
}

func TestChainCancelStopsInFlightPhrase(t *testing.T) {
	backend := &fakeBackend{name: "local", available: true, block: true, started: make(chan struct{})}
	next := &fakeBackend{name: "never", available: true}
	chain := NewChain(nil, backend, next)

	done := make(chan error, 1)
	go func() { done <- chain.Speak(context.Background(), "Jab") }()
	<-backend.started

	chain.Cancel()
	chain.Cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("speak did not return after cancel")
	}
	require.Equal(t, int32(0), next.calls.Load())
}

func TestElevenLabsPostsAndPlaysPCM(t *testing.T) {
	var got elevenLabsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/text-to-speech/voice-123", r.URL.Path)
		require.Equal(t, "pcm_24000", r.URL.Query().Get("output_format"))
		require.Equal(t, "el-key", r.Header.Get("xi-api-key"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte{0x01, 0x00, 0x02, 0x00})
	}))
	defer server.Close()

	out := &recordingOutput{}
	backend := NewElevenLabs(config.ElevenLabsConfig{
		APIKey:  "el-key",
		VoiceID: "voice-123",
		Model:   "eleven_multilingual_v2",
		BaseURL: server.URL + "/v1",
	}, out)
	require.True(t, backend.Available())

	require.NoError(t, backend.Speak(context.Background(), "Rest"))
	require.Equal(t, "Rest", got.Text)
	require.Equal(t, "eleven_multilingual_v2", got.ModelID)
	require.Len(t, out.clips, 1)
	require.Equal(t, []int16{1, 2}, out.clips[0].Samples)
	require.Equal(t, remoteSampleRate, out.clips[0].SampleRate)
}

func TestElevenLabsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"quota_exceeded"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	backend := NewElevenLabs(config.ElevenLabsConfig{APIKey: "k", VoiceID: "v", BaseURL: server.URL}, &recordingOutput{})
	err := backend.Speak(context.Background(), "Jab")
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
	require.Contains(t, err.Error(), "quota_exceeded")
}

func TestElevenLabsUnavailableWithoutCredentials(t *testing.T) {
	require.False(t, NewElevenLabs(config.ElevenLabsConfig{VoiceID: "v"}, &recordingOutput{}).Available())
	require.False(t, NewElevenLabs(config.ElevenLabsConfig{APIKey: "k"}, &recordingOutput{}).Available())
}

func TestOpenAIRequestsPCMAndPlays(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/speech", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte{0xff, 0x7f, 0x00, 0x80})
	}))
	defer server.Close()

	out := &recordingOutput{}
	backend := NewOpenAI("sk-test", server.URL+"/", "tts-1", "alloy", out)
	require.True(t, backend.Available())
	require.NoError(t, backend.Speak(context.Background(), "Uppercuts"))

	require.Equal(t, "Uppercuts", body["input"])
	require.Equal(t, "tts-1", body["model"])
	require.Equal(t, "alloy", body["voice"])
	require.Equal(t, "pcm", body["response_format"])
	require.Equal(t, []int16{32767, -32768}, out.clips[0].Samples)
}

func TestOpenAIUnavailableWithoutKey(t *testing.T) {
	require.False(t, NewOpenAI("", "https://api.openai.com/v1/", "tts-1", "alloy", &recordingOutput{}).Available())
}

func TestLocalRunsCommandWithPhrase(t *testing.T) {
	local := NewLocal([]string{"sh", "-c", `test "$0" = "Southpaw drills"`})
	require.True(t, local.Available())
	require.NoError(t, local.Speak(context.Background(), "Southpaw drills"))

	failing := NewLocal([]string{"sh", "-c", "echo boom >&2; exit 3"})
	err := failing.Speak(context.Background(), "Jab")
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}

func TestLocalCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := NewLocal([]string{"sh", "-c", "sleep 5"}).Speak(ctx, "Jab")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocalUnavailableWhenBinaryMissing(t *testing.T) {
	require.False(t, NewLocal(nil).Available())
	require.False(t, NewLocal([]string{"definitely-not-a-tts-binary"}).Available())
}

func TestNewBuildsConfiguredOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Speech.Backends = []string{"local", "openai"}
	chain := New(cfg, &recordingOutput{}, nil)
	require.Len(t, chain.backends, 2)
	require.Equal(t, "local", chain.backends[0].Name())
	require.Equal(t, "openai", chain.backends[1].Name())

	cfg.Speech.Enable = false
	require.Empty(t, New(cfg, &recordingOutput{}, nil).backends)
}
