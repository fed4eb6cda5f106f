package transcode

import (
	"time"
)

// Waveform is a mono signal at a fixed sample rate.
// Samples are roughly within [-1, 1] and must not be modified after decoding.
type Waveform struct {
	Samples    []float32 `json:"-"`
	SampleRate int       `json:"sample_rate"`
}

// NewWaveform converts float64 samples into a Waveform
func NewWaveform(samples []float64, sampleRate int) *Waveform {
	out := make([]float32, len(samples))
	for i, v := range samples {
		out[i] = float32(v)
	}
	return &Waveform{Samples: out, SampleRate: sampleRate}
}

// Float64 returns a float64 copy of the samples for analysis
func (w *Waveform) Float64() []float64 {
	out := make([]float64, len(w.Samples))
	for i, v := range w.Samples {
		out[i] = float64(v)
	}
	return out
}

// Len returns the number of samples
func (w *Waveform) Len() int {
	return len(w.Samples)
}

// Seconds returns the duration in seconds
func (w *Waveform) Seconds() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Duration returns the duration as a time.Duration
func (w *Waveform) Duration() time.Duration {
	return time.Duration(w.Seconds() * float64(time.Second))
}
