package spectral

// SpectralRolloff computes the frequency below which a fixed share of the
// spectral magnitude is concentrated
type SpectralRolloff struct {
	sampleRate int
	freqBins   []float64
}

// DefaultRolloffPercent is the conventional 85% rolloff point
const DefaultRolloffPercent = 0.85

// NewSpectralRolloff creates a new spectral rolloff calculator
func NewSpectralRolloff(sampleRate int) *SpectralRolloff {
	return &SpectralRolloff{
		sampleRate: sampleRate,
	}
}

// Compute returns the lowest bin frequency whose cumulative magnitude reaches
// threshold times the total. A silent frame rolls off at 0 Hz.
func (sr *SpectralRolloff) Compute(spectrum []float64, threshold float64) float64 {
	if len(spectrum) == 0 {
		return 0.0
	}

	if len(sr.freqBins) != len(spectrum) {
		sr.freqBins = FrequencyBins(len(spectrum), sr.sampleRate)
	}

	total := 0.0
	for _, mag := range spectrum {
		total += mag
	}

	target := threshold * total
	cumulative := 0.0

	for i, mag := range spectrum {
		cumulative += mag
		if cumulative >= target {
			return sr.freqBins[i]
		}
	}

	return sr.freqBins[len(sr.freqBins)-1]
}

// ComputeFrames processes multiple frames efficiently
func (sr *SpectralRolloff) ComputeFrames(spectrogram [][]float64, threshold float64) []float64 {
	rolloffs := make([]float64, len(spectrogram))

	for t, spectrum := range spectrogram {
		rolloffs[t] = sr.Compute(spectrum, threshold)
	}

	return rolloffs
}
