package spectral

import (
	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality backed by mjibson/go-dsp
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the forward FFT of a real signal.
// go-dsp handles all sizes, including non-power-of-2.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	return fft.FFTReal(x)
}

// ComputeInverseReal rebuilds a real frame of length n from its positive-frequency half
// (n/2+1 bins) using conjugate symmetry, and returns the real part of the inverse.
func (f *FFT) ComputeInverseReal(half []complex128, n int) []float64 {
	if len(half) == 0 || n <= 0 {
		return []float64{}
	}

	full := make([]complex128, n)
	for k := 0; k < len(half) && k < n; k++ {
		full[k] = half[k]
	}
	for k := 1; k < n-k; k++ {
		if k < len(half) {
			re, im := real(half[k]), imag(half[k])
			full[n-k] = complex(re, -im)
		}
	}

	result := fft.IFFT(full)
	realResult := make([]float64, n)
	for i, val := range result {
		realResult[i] = real(val)
	}

	return realResult
}
