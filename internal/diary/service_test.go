package diary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rbright/ringbell/internal/sentiment"
)

type fakeClassifier struct {
	label sentiment.Label
	err   error
	calls int
}

func (f *fakeClassifier) Classify(context.Context, string) (sentiment.Label, error) {
	f.calls++
	return f.label, f.err
}

type fakeGenerator struct {
	out   string
	err   error
	calls int
	label sentiment.Label
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, label sentiment.Label) (string, error) {
	f.calls++
	f.label = label
	return f.out, f.err
}

func memoryStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAnalyzeSuccessIsRecorded(t *testing.T) {
	classifier := &fakeClassifier{label: sentiment.Positive}
	generator := &fakeGenerator{out: "Great work!"}
	store := memoryStore(t)
	svc := NewService(classifier, generator, store, nil)

	got, err := svc.Analyze(context.Background(), "  loved the pad work  ")
	require.NoError(t, err)
	require.Equal(t, Analysis{Sentiment: sentiment.Positive, Feedback: "Great work!"}, got)
	require.Equal(t, sentiment.Positive, generator.label)

	entries, err := svc.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "loved the pad work", entries[0].Text)
	require.False(t, entries[0].Fallback)
}

func TestEmptyTextNeverReachesUpstream(t *testing.T) {
	classifier := &fakeClassifier{label: sentiment.Positive}
	generator := &fakeGenerator{out: "x"}
	svc := NewService(classifier, generator, nil, nil)
	ctx := context.Background()

	_, err := svc.Classify(ctx, "   ")
	require.ErrorIs(t, err, ErrEmptyText)
	_, err = svc.Feedback(ctx, "", "positive")
	require.ErrorIs(t, err, ErrEmptyText)
	_, err = svc.Analyze(ctx, "\n\t")
	require.ErrorIs(t, err, ErrEmptyText)

	require.Zero(t, classifier.calls)
	require.Zero(t, generator.calls)
}

func TestAnalyzeClassificationFailure(t *testing.T) {
	upstream := &sentiment.StatusError{StatusCode: 503}
	generator := &fakeGenerator{out: "x"}
	svc := NewService(&fakeClassifier{err: upstream}, generator, nil, nil)

	got, err := svc.Analyze(context.Background(), "sore")
	require.ErrorIs(t, err, ErrClassification)
	var statusErr *sentiment.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, Analysis{
		Sentiment: sentiment.Neutral,
		Feedback:  sentiment.FallbackMessage(""),
		Fallback:  true,
	}, got)
	require.Zero(t, generator.calls)
}

func TestAnalyzeGenerationFailureUsesLabelFallback(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := memoryStore(t)
	svc := NewService(
		&fakeClassifier{label: sentiment.Negative},
		&fakeGenerator{err: errors.New("quota")},
		store,
		zap.New(core),
	)

	got, err := svc.Analyze(context.Background(), "rough day")
	require.ErrorIs(t, err, ErrGeneration)
	require.Equal(t, sentiment.Negative, got.Sentiment)
	require.Equal(t, sentiment.FallbackMessage("negative"), got.Feedback)
	require.True(t, got.Fallback)
	require.Equal(t, 1, logs.FilterMessage("feedback generation failed").Len())

	entries, err := store.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, entries[0].Fallback)
}

func TestFeedbackFallbackWithoutLabelIsGeneric(t *testing.T) {
	svc := NewService(&fakeClassifier{}, &fakeGenerator{err: errors.New("down")}, nil, nil)

	out, err := svc.Feedback(context.Background(), "done", "")
	require.ErrorIs(t, err, ErrGeneration)
	require.Equal(t, sentiment.FallbackMessage(""), out)
}

func TestRecentWithoutStore(t *testing.T) {
	svc := NewService(&fakeClassifier{}, &fakeGenerator{}, nil, nil)
	_, err := svc.Recent(context.Background(), 1)
	require.ErrorIs(t, err, ErrNoStore)
}
