package speech

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/vocalytics/algorithms/common"
)

// Pulse marks one glottal cycle
type Pulse struct {
	Time      float64 `json:"time"`      // Seconds
	Amplitude float64 `json:"amplitude"` // Waveform value at the pulse
}

// PeriodLimits bounds which consecutive cycles count in perturbation measures
type PeriodLimits struct {
	Floor              float64 `json:"floor"`                // Shortest usable period (s)
	Ceiling            float64 `json:"ceiling"`              // Longest usable period (s)
	MaxPeriodFactor    float64 `json:"max_period_factor"`    // Largest ratio between neighbouring periods
	MaxAmplitudeFactor float64 `json:"max_amplitude_factor"` // Largest ratio between neighbouring amplitudes
}

// DefaultPeriodLimits returns the usual 0.1 ms .. 20 ms periods with factors 1.3 and 1.6
func DefaultPeriodLimits() PeriodLimits {
	return PeriodLimits{
		Floor:              0.0001,
		Ceiling:            0.02,
		MaxPeriodFactor:    1.3,
		MaxAmplitudeFactor: 1.6,
	}
}

func (pl PeriodLimits) validPeriod(p float64) bool {
	return p >= pl.Floor && p <= pl.Ceiling
}

func ratio(a, b float64) float64 {
	if a < b {
		a, b = b, a
	}
	if b <= 0 {
		return math.Inf(1)
	}
	return a / b
}

// PointProcess places one pulse per cycle in voiced stretches of the signal.
// Voicing and the local period come from cross-correlation in [MinPitch, MaxPitch],
// with octave jumps inside a voiced run pulled back to the run's median period.
// Each pulse is the waveform maximum between 0.8 and 1.2 periods after the previous one.
func (vqa *VoiceQualityAnalyzer) PointProcess(signal []float64) ([]Pulse, error) {
	if vqa.params.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", vqa.params.SampleRate)
	}

	layout := vqa.layoutFor(vqa.params.MinPitch, vqa.params.MaxPitch)
	frames := vqa.analyzeFrames(signal, layout, vqa.params.PulseSilenceThreshold)
	if len(frames) == 0 {
		return nil, fmt.Errorf("signal shorter than one analysis window (%d samples)", layout.span())
	}

	voiced := func(f periodicityFrame) bool {
		return !f.silent && f.voiced && f.r >= vqa.params.VoicingThreshold
	}

	sr := float64(vqa.params.SampleRate)
	var pulses []Pulse
	lastPulse := -1

	for i := 0; i < len(frames); {
		if !voiced(frames[i]) {
			i++
			continue
		}
		j := i
		for j+1 < len(frames) && voiced(frames[j+1]) {
			j++
		}

		run := frames[i : j+1]
		smoothRun(run, vqa.params.VoicingThreshold)
		regionStart := max(run[0].start, lastPulse+layout.minLag)
		regionEnd := min(run[len(run)-1].start+layout.span(), len(signal))

		periodAt := func(sample int) float64 {
			idx := (sample - run[0].start) / layout.step
			idx = max(0, min(idx, len(run)-1))
			return run[idx].lag
		}

		// First pulse: strongest sample within one period of the region start
		firstEnd := min(regionStart+int(math.Ceil(periodAt(regionStart))), regionEnd)
		cur := argmax(signal, regionStart, firstEnd)
		if cur >= 0 {
			pulses = append(pulses, makePulse(signal, cur, sr))
			lastPulse = cur

			for {
				period := periodAt(cur)
				lo := cur + int(math.Ceil(0.8*period))
				hi := cur + int(math.Floor(1.2*period))
				if hi >= regionEnd || lo > hi {
					break
				}
				next := argmax(signal, lo, hi+1)
				if next < 0 {
					break
				}
				pulses = append(pulses, makePulse(signal, next, sr))
				cur = next
				lastPulse = cur
			}
		}

		i = j + 1
	}

	if len(pulses) == 0 {
		return nil, ErrNoVoicedFrames
	}
	return pulses, nil
}

// argmax returns the index of the largest value in signal[lo:hi], or -1 for an empty range
func argmax(signal []float64, lo, hi int) int {
	lo = max(lo, 0)
	hi = min(hi, len(signal))
	if lo >= hi {
		return -1
	}
	best := lo
	for i := lo + 1; i < hi; i++ {
		if signal[i] > signal[best] {
			best = i
		}
	}
	return best
}

func makePulse(signal []float64, idx int, sampleRate float64) Pulse {
	shift, value := common.ParabolicPeak(signal, idx)
	return Pulse{
		Time:      (float64(idx) + shift) / sampleRate,
		Amplitude: value,
	}
}

// LocalJitter is the mean absolute difference between consecutive periods divided
// by the mean period. Only periods inside the limits, and neighbours within
// MaxPeriodFactor of each other, contribute.
func LocalJitter(pulses []Pulse, limits PeriodLimits) (float64, error) {
	if len(pulses) < 3 {
		return 0, fmt.Errorf("need at least 3 pulses for jitter, got %d", len(pulses))
	}

	periods := make([]float64, len(pulses)-1)
	for i := range periods {
		periods[i] = pulses[i+1].Time - pulses[i].Time
	}

	sumPeriods := 0.0
	numPeriods := 0
	for _, p := range periods {
		if limits.validPeriod(p) {
			sumPeriods += p
			numPeriods++
		}
	}

	sumDiff := 0.0
	numDiff := 0
	for i := 1; i < len(periods); i++ {
		prev, cur := periods[i-1], periods[i]
		if !limits.validPeriod(prev) || !limits.validPeriod(cur) {
			continue
		}
		if ratio(prev, cur) > limits.MaxPeriodFactor {
			continue
		}
		sumDiff += math.Abs(cur - prev)
		numDiff++
	}

	if numDiff == 0 || numPeriods == 0 {
		return 0, fmt.Errorf("no usable consecutive periods")
	}

	meanPeriod := sumPeriods / float64(numPeriods)
	return (sumDiff / float64(numDiff)) / meanPeriod, nil
}

// LocalShimmer is the mean absolute difference between the peak amplitudes of
// consecutive periods divided by the mean amplitude
func LocalShimmer(pulses []Pulse, signal []float64, sampleRate int, limits PeriodLimits) (float64, error) {
	if len(pulses) < 3 {
		return 0, fmt.Errorf("need at least 3 pulses for shimmer, got %d", len(pulses))
	}
	if sampleRate <= 0 {
		return 0, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	sr := float64(sampleRate)
	numPeriods := len(pulses) - 1
	periods := make([]float64, numPeriods)
	amplitudes := make([]float64, numPeriods)

	for i := 0; i < numPeriods; i++ {
		periods[i] = pulses[i+1].Time - pulses[i].Time

		lo := max(0, int(math.Round(pulses[i].Time*sr)))
		hi := min(len(signal), int(math.Round(pulses[i+1].Time*sr)))
		peak := 0.0
		for k := lo; k < hi; k++ {
			peak = math.Max(peak, math.Abs(signal[k]))
		}
		amplitudes[i] = peak
	}

	sumDiff := 0.0
	sumAmp := 0.0
	numDiff := 0
	for i := 1; i < numPeriods; i++ {
		if !limits.validPeriod(periods[i-1]) || !limits.validPeriod(periods[i]) {
			continue
		}
		if ratio(periods[i-1], periods[i]) > limits.MaxPeriodFactor {
			continue
		}
		if ratio(amplitudes[i-1], amplitudes[i]) > limits.MaxAmplitudeFactor {
			continue
		}
		sumDiff += math.Abs(amplitudes[i] - amplitudes[i-1])
		sumAmp += (amplitudes[i] + amplitudes[i-1]) / 2
		numDiff++
	}

	if numDiff == 0 || sumAmp == 0 {
		return 0, fmt.Errorf("no usable consecutive periods")
	}

	return sumDiff / sumAmp, nil
}
