package harmonic

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/vocalytics/algorithms/common"
	"github.com/RyanBlaney/vocalytics/algorithms/spectral"
	"github.com/RyanBlaney/vocalytics/algorithms/windowing"
)

// HPSSParams configures harmonic/percussive source separation
type HPSSParams struct {
	WindowSize int     `json:"window_size" mapstructure:"window_size"`
	HopSize    int     `json:"hop_size" mapstructure:"hop_size"`
	KernelSize int     `json:"kernel_size" mapstructure:"kernel_size"` // Median filter length in frames (harmonic) and bins (percussive)
	Power      float64 `json:"power" mapstructure:"power"`             // Soft mask exponent
	Margin     float64 `json:"margin" mapstructure:"margin"`           // Percussive margin in the mask
}

// DefaultHPSSParams returns the usual 2048/512 separation with 31-point median filters
func DefaultHPSSParams() HPSSParams {
	return HPSSParams{
		WindowSize: 2048,
		HopSize:    512,
		KernelSize: 31,
		Power:      2.0,
		Margin:     1.0,
	}
}

// HPSS separates a signal into a harmonic part (stable across time) and a
// percussive remainder (broadband across frequency) with median-filtered soft masks.
//
// Reference: Fitzgerald, D. (2010). "Harmonic/percussive separation using median filtering"
type HPSS struct {
	params HPSSParams
	stft   *spectral.STFT
}

// NewHPSS creates a separator
func NewHPSS(params HPSSParams) *HPSS {
	return &HPSS{
		params: params,
		stft:   spectral.NewSTFT(),
	}
}

// Harmonic returns the harmonic component of signal, same length as the input
func (h *HPSS) Harmonic(signal []float64, sampleRate int) ([]float64, error) {
	if len(signal) == 0 {
		return []float64{}, nil
	}
	if h.params.WindowSize <= 0 || h.params.HopSize <= 0 || h.params.KernelSize <= 0 {
		return nil, fmt.Errorf("invalid HPSS parameters: %+v", h.params)
	}

	window := windowing.NewPeriodicHann(h.params.WindowSize)
	result, err := h.stft.ComputeCentered(signal, h.params.WindowSize, h.params.HopSize, sampleRate, window)
	if err != nil {
		return nil, fmt.Errorf("stft: %w", err)
	}

	mask := h.harmonicMask(result.Magnitude)

	masked := make([][]complex128, result.TimeFrames)
	for t, frame := range result.Complex {
		masked[t] = make([]complex128, len(frame))
		for k, v := range frame {
			masked[t][k] = v * complex(mask[t][k], 0)
		}
	}

	harmonic, err := h.stft.Inverse(masked, h.params.WindowSize, h.params.HopSize, len(signal), window)
	if err != nil {
		return nil, fmt.Errorf("inverse stft: %w", err)
	}
	return harmonic, nil
}

// harmonicMask computes the soft harmonic mask H^p / (H^p + (margin*P)^p) per time-frequency cell.
// Cells where both filtered magnitudes vanish get a zero mask.
func (h *HPSS) harmonicMask(magnitude [][]float64) [][]float64 {
	numFrames := len(magnitude)
	if numFrames == 0 {
		return nil
	}
	numBins := len(magnitude[0])
	kernel := h.params.KernelSize

	// Harmonic: median along time for each bin
	harmonic := make([][]float64, numFrames)
	for t := 0; t < numFrames; t++ {
		harmonic[t] = make([]float64, numBins)
	}
	row := make([]float64, numFrames)
	for k := 0; k < numBins; k++ {
		for t := 0; t < numFrames; t++ {
			row[t] = magnitude[t][k]
		}
		filtered := common.MedianFilter(row, kernel)
		for t := 0; t < numFrames; t++ {
			harmonic[t][k] = filtered[t]
		}
	}

	const tiny = 2.2250738585072014e-308

	mask := make([][]float64, numFrames)
	for t := 0; t < numFrames; t++ {
		// Percussive: median along frequency for this frame
		percussive := common.MedianFilter(magnitude[t], kernel)

		mask[t] = make([]float64, numBins)
		for k := 0; k < numBins; k++ {
			hv := harmonic[t][k]
			pv := percussive[k] * h.params.Margin

			z := math.Max(hv, pv)
			if z < tiny {
				continue
			}
			hp := math.Pow(hv/z, h.params.Power)
			pp := math.Pow(pv/z, h.params.Power)
			mask[t][k] = hp / (hp + pp)
		}
	}

	return mask
}

// HarmonicToNoiseDB is bounded to [MinHNR, MaxHNR]. MaxHNR is reported when
// the residual is negligible, MinHNR when the harmonic part is silent.
const (
	MaxHNR = 60.0
	MinHNR = -60.0
)

// HarmonicToNoiseDB approximates the harmonic-to-noise ratio as the energy of
// the harmonic component over the energy of what remains, in dB
func (h *HPSS) HarmonicToNoiseDB(signal []float64, sampleRate int) (float64, error) {
	harmonic, err := h.Harmonic(signal, sampleRate)
	if err != nil {
		return 0, err
	}

	harmonicPower := common.SumSquares(harmonic)
	residualPower := 0.0
	for i, v := range signal {
		d := v - harmonic[i]
		residualPower += d * d
	}

	if residualPower <= 1e-10 {
		return MaxHNR, nil
	}

	hnr := 10 * math.Log10(harmonicPower/(residualPower+1e-12))
	if math.IsInf(hnr, -1) {
		return MinHNR, nil
	}
	return common.Clamp(hnr, MinHNR, MaxHNR), nil
}
