package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/jfreymuth/pulse"
)

// Clip is mono signed 16-bit PCM.
type Clip struct {
	Name       string
	SampleRate int
	Samples    []int16
}

// Output plays clips through a Pulse playback stream.
type Output struct {
	// Sink is a sink id or description fragment; empty selects the default sink.
	Sink string
	// Volume scales samples in [0, 1]. Zero plays at full scale.
	Volume float64
}

// Play blocks until clip has drained or ctx is cancelled. Cancellation stops
// feeding samples and returns ctx.Err().
func (o Output) Play(ctx context.Context, clip Clip) error {
	if len(clip.Samples) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if clip.SampleRate <= 0 {
		return fmt.Errorf("clip %q has invalid sample rate %d", clip.Name, clip.SampleRate)
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	opts := []pulse.PlaybackOption{
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(clip.SampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName(appName + " " + clip.Name),
	}
	if o.Sink != "" {
		selection, err := selectSinkFromClient(ctx, o.Sink)
		if err != nil {
			return err
		}
		sink, err := client.SinkByID(selection.Sink.ID)
		if err != nil {
			return fmt.Errorf("resolve sink %q: %w", selection.Sink.ID, err)
		}
		opts = append(opts, pulse.PlaybackSink(sink))
	}

	samples := ScaleVolume(clip.Samples, o.Volume)
	stream, err := client.NewPlayback(pulse.Int16Reader(sampleFeeder(ctx, samples)), opts...)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play %s stream: %w", clip.Name, err)
	}
	return nil
}

var selectSinkFromClient = SelectSink

// sampleFeeder copies samples into Pulse buffers until exhausted or ctx is done.
func sampleFeeder(ctx context.Context, samples []int16) func([]int16) (int, error) {
	cursor := 0
	return func(buf []int16) (int, error) {
		if ctx.Err() != nil || cursor >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	}
}

// ScaleVolume returns samples scaled by volume. Volumes outside (0, 1) leave
// samples untouched.
func ScaleVolume(samples []int16, volume float64) []int16 {
	if volume <= 0 || volume >= 1 {
		return samples
	}
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = int16(math.Round(float64(s) * volume))
	}
	return out
}

// DecodePCM16LE converts little-endian signed 16-bit bytes into samples.
// A trailing odd byte is dropped.
func DecodePCM16LE(raw []byte) []int16 {
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}
	return samples
}
