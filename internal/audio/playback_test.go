package audio

import (
	"context"
	"testing"

	"github.com/jfreymuth/pulse"
	"github.com/stretchr/testify/require"
)

func TestSampleFeederCopiesUntilEndOfData(t *testing.T) {
	feed := sampleFeeder(context.Background(), []int16{1, 2, 3, 4, 5})
	buf := make([]int16, 2)

	n, err := feed(buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []int16{1, 2}, buf)

	n, err = feed(buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = feed(buf)
	require.ErrorIs(t, err, pulse.EndOfData)
	require.Equal(t, 1, n)
	require.Equal(t, int16(5), buf[0])

	n, err = feed(buf)
	require.ErrorIs(t, err, pulse.EndOfData)
	require.Equal(t, 0, n)
}

func TestSampleFeederStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	feed := sampleFeeder(ctx, make([]int16, 100))
	buf := make([]int16, 10)

	n, err := feed(buf)
	require.NoError(t, err)
	require.Equal(t, 10, n)

	cancel()
	n, err = feed(buf)
	require.ErrorIs(t, err, pulse.EndOfData)
	require.Equal(t, 0, n)
}

func TestScaleVolume(t *testing.T) {
	in := []int16{1000, -1000, 32767}
	require.Equal(t, []int16{500, -500, 16384}, ScaleVolume(in, 0.5))
	require.Equal(t, in, ScaleVolume(in, 0))
	require.Equal(t, in, ScaleVolume(in, 1))
}

func TestDecodePCM16LE(t *testing.T) {
	require.Equal(t, []int16{1, -2, 256}, DecodePCM16LE([]byte{0x01, 0x00, 0xfe, 0xff, 0x00, 0x01, 0x7f}))
	require.Empty(t, DecodePCM16LE(nil))
}

func TestPlayEmptyClipIsNoop(t *testing.T) {
	require.NoError(t, Output{}.Play(context.Background(), Clip{Name: "silence"}))
}

func TestPlayHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Output{}.Play(ctx, Clip{Name: "bell", SampleRate: 16000, Samples: []int16{1, 2}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPlayRejectsInvalidSampleRate(t *testing.T) {
	err := Output{}.Play(context.Background(), Clip{Name: "bell", Samples: []int16{1}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "sample rate")
}

func TestPlayFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	err := Output{}.Play(context.Background(), Clip{Name: "bell", SampleRate: 16000, Samples: []int16{1}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "connect pulse server")
}
