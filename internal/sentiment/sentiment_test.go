package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/ringbell/internal/config"
)

func TestNormalizeLabel(t *testing.T) {
	require.Equal(t, Positive, NormalizeLabel("POSITIVE"))
	require.Equal(t, Negative, NormalizeLabel(" negative "))
	require.Equal(t, Negative, NormalizeLabel("LABEL_0"))
	require.Equal(t, Positive, NormalizeLabel("LABEL_2"))
	require.Equal(t, Neutral, NormalizeLabel("neutral"))
	require.Equal(t, Neutral, NormalizeLabel("joy"))
	require.Equal(t, Neutral, NormalizeLabel(""))
}

func TestFallbackMessageIsKeyedOnLabel(t *testing.T) {
	positive := FallbackMessage("positive")
	negative := FallbackMessage("NEGATIVE")
	generic := FallbackMessage("")

	require.Contains(t, positive, "Keep it up")
	require.Contains(t, negative, "tough days")
	require.Contains(t, generic, "finished the workout")
	require.Equal(t, generic, FallbackMessage("neutral"))
	require.Equal(t, generic, FallbackMessage("confused"))
	require.NotEqual(t, positive, negative)
}

func newClassifier(t *testing.T, handler http.HandlerFunc) *HuggingFace {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default().Sentiment
	cfg.BaseURL = srv.URL + "/models/"
	cfg.APIKey = "hf-test"
	return NewHuggingFace(cfg, nil)
}

func TestClassifyPicksHighestScore(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody classifyRequest
	c := newClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`[[{"label":"NEGATIVE","score":0.12},{"label":"POSITIVE","score":0.88}]]`))
	})

	label, err := c.Classify(context.Background(), "I feel great after my boxing workout!")
	require.NoError(t, err)
	require.Equal(t, Positive, label)
	require.Equal(t, "/models/"+config.Default().Sentiment.Model, gotPath)
	require.Equal(t, "Bearer hf-test", gotAuth)
	require.Equal(t, "I feel great after my boxing workout!", gotBody.Inputs)
}

func TestClassifyAcceptsFlatResponse(t *testing.T) {
	c := newClassifier(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"label":"NEGATIVE","score":0.97}]`))
	})

	label, err := c.Classify(context.Background(), "my shoulders hurt")
	require.NoError(t, err)
	require.Equal(t, Negative, label)
}

func TestClassifyUnknownLabelIsNeutral(t *testing.T) {
	c := newClassifier(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[[{"label":"surprise","score":0.9}]]`))
	})

	label, err := c.Classify(context.Background(), "huh")
	require.NoError(t, err)
	require.Equal(t, Neutral, label)
}

func TestClassifyEmptyResponse(t *testing.T) {
	c := newClassifier(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.Classify(context.Background(), "anything")
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestClassifyStatusError(t *testing.T) {
	c := newClassifier(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
	})

	_, err := c.Classify(context.Background(), "anything")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	require.True(t, statusErr.Unauthorized())
	require.False(t, statusErr.RateLimited())
	require.Contains(t, err.Error(), "Invalid credentials")
}

func TestClassifyRequiresAPIKey(t *testing.T) {
	called := false
	c := newClassifier(t, func(http.ResponseWriter, *http.Request) { called = true })
	c.apiKey = ""

	_, err := c.Classify(context.Background(), "anything")
	require.ErrorIs(t, err, ErrNoAPIKey)
	require.False(t, called)
}
