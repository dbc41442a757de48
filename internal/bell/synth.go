package bell

import (
	"math"
	"time"
)

const sampleRate = 16000

type partial struct {
	ratio  float64
	gain   float64
	decayS float64
}

type strike struct {
	fundamentalHz float64
	at            time.Duration
	volume        float64
}

// Boxing-bell partial series; higher partials die out faster.
var bellPartials = []partial{
	{ratio: 1.0, gain: 1.0, decayS: 0.9},
	{ratio: 2.76, gain: 0.55, decayS: 0.55},
	{ratio: 5.4, gain: 0.3, decayS: 0.3},
	{ratio: 8.93, gain: 0.15, decayS: 0.18},
}

var signals = map[string][]strike{
	"bell": {
		{fundamentalHz: 820, volume: 0.3},
	},
	"double-bell": {
		{fundamentalHz: 820, volume: 0.3},
		{fundamentalHz: 820, at: 350 * time.Millisecond, volume: 0.3},
	},
	"clapper": {
		{fundamentalHz: 1240, volume: 0.22},
		{fundamentalHz: 1240, at: 180 * time.Millisecond, volume: 0.22},
		{fundamentalHz: 1240, at: 360 * time.Millisecond, volume: 0.22},
	},
}

const ringDuration = 1600 * time.Millisecond

// Known reports whether id names a built-in signal.
func Known(id string) bool {
	_, ok := signals[id]
	return ok
}

// synthesize renders the strikes for id as mono PCM.
func synthesize(id string) []int16 {
	strikes, ok := signals[id]
	if !ok {
		return nil
	}

	var end time.Duration
	for _, s := range strikes {
		if s.at+ringDuration > end {
			end = s.at + ringDuration
		}
	}

	mix := make([]float64, samplesForDuration(end))
	for _, s := range strikes {
		renderStrike(mix, s)
	}

	pcm := make([]int16, len(mix))
	for i, v := range mix {
		pcm[i] = int16(math.Round(clamp(v) * 32767))
	}
	return pcm
}

func renderStrike(mix []float64, s strike) {
	offset := samplesForDuration(s.at)
	n := samplesForDuration(ringDuration)
	attack := sampleRate / 500 // 2ms

	for i := 0; i < n && offset+i < len(mix); i++ {
		t := float64(i) / sampleRate
		envelope := 1.0
		if i < attack {
			envelope = float64(i) / float64(attack)
		}
		var v float64
		for _, p := range bellPartials {
			v += p.gain * math.Exp(-t/p.decayS) * math.Sin(2*math.Pi*s.fundamentalHz*p.ratio*t)
		}
		mix[offset+i] += v * s.volume * envelope
	}
}

func clamp(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * sampleRate))
}
