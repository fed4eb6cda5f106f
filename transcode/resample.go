package transcode

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/vocalytics/algorithms/windowing"
)

// ResampleQuality names a band-limited interpolation filter preset
type ResampleQuality string

const (
	ResampleFast   ResampleQuality = "fast"
	ResampleMedium ResampleQuality = "medium"
	ResampleHigh   ResampleQuality = "high"
)

// tablePrecision is the number of filter samples per zero crossing
const tablePrecision = 512

// Resampler performs band-limited sinc interpolation with a Kaiser-windowed filter.
// The filter is tabulated once and linearly interpolated at run time.
type Resampler struct {
	zeroCrossings int
	rolloff       float64
	beta          float64
	table         []float64 // h(u) for u = k / tablePrecision, u in [0, zeroCrossings]
	deltas        []float64 // table[k+1] - table[k]
}

// NewResampler builds the filter for the given preset; unknown names fall back to medium
func NewResampler(quality ResampleQuality) *Resampler {
	switch quality {
	case ResampleFast:
		return newResampler(8, 8.555, 0.85)
	case ResampleHigh:
		return newResampler(64, 14.7697, 0.9475)
	default:
		return newResampler(16, 8.555, 0.85)
	}
}

func newResampler(zeroCrossings int, beta, rolloff float64) *Resampler {
	r := &Resampler{
		zeroCrossings: zeroCrossings,
		rolloff:       rolloff,
		beta:          beta,
	}

	kaiser := windowing.NewKaiser(float64(zeroCrossings), beta)
	size := zeroCrossings*tablePrecision + 1
	r.table = make([]float64, size+1)
	for k := 0; k < size; k++ {
		u := float64(k) / tablePrecision
		r.table[k] = rolloff * sinc(rolloff*u) * kaiser.At(u)
	}

	r.deltas = make([]float64, size)
	for k := 0; k < size; k++ {
		r.deltas[k] = r.table[k+1] - r.table[k]
	}

	return r
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// filterAt returns the filter response at distance u (in zero crossings), u >= 0
func (r *Resampler) filterAt(u float64) float64 {
	pos := u * tablePrecision
	k := int(pos)
	if k >= len(r.deltas) {
		return 0
	}
	return r.table[k] + (pos-float64(k))*r.deltas[k]
}

// Resample converts samples from one rate to another. The output holds
// ceil(len * to / from) samples.
func (r *Resampler) Resample(samples []float64, from, to int) ([]float64, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("invalid sample rates: %d -> %d", from, to)
	}
	if from == to || len(samples) == 0 {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out, nil
	}

	ratio := float64(to) / float64(from)
	outLen := int((int64(len(samples))*int64(to) + int64(from) - 1) / int64(from))
	out := make([]float64, outLen)

	// Downsampling stretches the filter to cut below the new Nyquist
	scale := math.Min(1.0, ratio)
	reach := float64(r.zeroCrossings) / scale

	for j := 0; j < outLen; j++ {
		t := float64(j) / ratio
		lo := max(0, int(math.Ceil(t-reach)))
		hi := min(len(samples)-1, int(math.Floor(t+reach)))

		acc := 0.0
		for i := lo; i <= hi; i++ {
			acc += samples[i] * r.filterAt(math.Abs(t-float64(i))*scale)
		}
		out[j] = acc * scale
	}

	return out, nil
}
