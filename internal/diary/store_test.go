package diary

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestStoreAddAndRecent(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "nested", "diary.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	ctx := context.Background()
	for i, text := range []string{"first", "second", "third"} {
		_, err := store.Add(ctx, Entry{Text: text, Sentiment: "positive", Feedback: "nice", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}

	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "third", entries[0].Text)
	require.Equal(t, "second", entries[1].Text)
	require.True(t, entries[0].CreatedAt.Equal(base.Add(2*time.Minute)))
}

func TestStoreAssignsIDAndTimestamp(t *testing.T) {
	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fixed := time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	entry, err := store.Add(context.Background(), Entry{Text: "tired", Sentiment: "negative", Feedback: "rest up", Fallback: true})
	require.NoError(t, err)
	_, err = uuid.Parse(entry.ID)
	require.NoError(t, err)
	require.Equal(t, fixed, entry.CreatedAt)

	entries, err := store.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, entry.ID, entries[0].ID)
	require.True(t, entries[0].Fallback)
}
