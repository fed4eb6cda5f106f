package spectral

import (
	"math"
)

// SpectralFlatness computes spectral flatness (Wiener entropy) of the power spectrum.
// Lower values (0.0-0.3) indicate tonal content, higher values (0.7-1.0) noise-like content.
type SpectralFlatness struct {
	amin  float64 // Floor applied to every bin before the log
	power float64 // Exponent applied to magnitudes (2 = power spectrum)
}

// NewSpectralFlatness creates a new spectral flatness calculator on the power spectrum
func NewSpectralFlatness() *SpectralFlatness {
	return &SpectralFlatness{
		amin:  1e-10,
		power: 2.0,
	}
}

// Compute calculates the ratio of geometric mean to arithmetic mean (0-1 range)
// for a single magnitude spectrum. Bins are floored at amin, so a silent frame
// is perfectly flat (1.0).
func (sf *SpectralFlatness) Compute(magnitudeSpectrum []float64) float64 {
	if len(magnitudeSpectrum) == 0 {
		return 0.0
	}

	logSum := 0.0
	arithmeticSum := 0.0

	for _, magnitude := range magnitudeSpectrum {
		value := math.Max(sf.amin, math.Pow(magnitude, sf.power))
		logSum += math.Log(value)
		arithmeticSum += value
	}

	n := float64(len(magnitudeSpectrum))
	geometricMean := math.Exp(logSum / n)
	arithmeticMean := arithmeticSum / n

	flatness := geometricMean / arithmeticMean

	// Rounding can push a perfectly flat spectrum a hair above 1
	if flatness > 1.0 {
		flatness = 1.0
	}

	return flatness
}

// ComputeFrames processes multiple frames efficiently
func (sf *SpectralFlatness) ComputeFrames(spectrogram [][]float64) []float64 {
	flatness := make([]float64, len(spectrogram))

	for t, magnitudeSpectrum := range spectrogram {
		flatness[t] = sf.Compute(magnitudeSpectrum)
	}

	return flatness
}
