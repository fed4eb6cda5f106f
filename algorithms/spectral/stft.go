package spectral

import (
	"fmt"
	"math/cmplx"
	"runtime"
	"sync"

	"github.com/RyanBlaney/vocalytics/logging"
)

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	fft    *FFT
	logger logging.Logger
}

// STFTResult holds the result of STFT analysis
type STFTResult struct {
	Magnitude      [][]float64    `json:"magnitude"`       // Time x Frequency magnitude matrix
	Complex        [][]complex128 `json:"-"`               // Raw complex spectrogram (not serialized)
	TimeFrames     int            `json:"time_frames"`     // Number of time frames
	FreqBins       int            `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int            `json:"sample_rate"`     // Sample rate
	WindowSize     int            `json:"window_size"`     // FFT window size
	HopSize        int            `json:"hop_size"`        // Hop size between frames
	Centered       bool           `json:"centered"`        // Frames centered on t*hop
	FreqResolution float64        `json:"freq_resolution"` // Frequency resolution (Hz/bin)
	TimeResolution float64        `json:"time_resolution"` // Time resolution (seconds/frame)
}

// Window interface for windowing functions
type Window interface {
	ApplyInPlace(signal []float64) error
	GetCoefficients() []float64
}

// NewSTFT creates a new STFT calculator
func NewSTFT() *STFT {
	return &STFT{
		fft: NewFFT(),
		logger: logging.WithFields(logging.Fields{
			"component": "stft",
		}),
	}
}

// CenterPad zero-pads pad samples on both sides of the signal
func CenterPad(signal []float64, pad int) []float64 {
	padded := make([]float64, len(signal)+2*pad)
	copy(padded[pad:], signal)
	return padded
}

// FrameCount returns the number of centered frames for a signal of n samples
func FrameCount(n, hopSize int) int {
	if n <= 0 || hopSize <= 0 {
		return 0
	}
	return 1 + n/hopSize
}

// FrameTimes maps frame indices to their time offsets in seconds
func FrameTimes(numFrames, hopSize, sampleRate int) []float64 {
	times := make([]float64, numFrames)
	if sampleRate <= 0 {
		return times
	}
	for i := 0; i < numFrames; i++ {
		times[i] = float64(i*hopSize) / float64(sampleRate)
	}
	return times
}

// ComputeCentered computes the STFT with frames centered on t*hopSize.
// The signal is zero-padded by windowSize/2 on both sides, giving 1 + len/hop frames.
func (s *STFT) ComputeCentered(signal []float64, windowSize, hopSize, sampleRate int, window Window) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	result, err := s.ComputeWithWindow(CenterPad(signal, windowSize/2), windowSize, hopSize, sampleRate, window)
	if err != nil {
		return nil, err
	}
	result.Centered = true
	return result, nil
}

// ComputeWithWindow computes STFT with parallel processing and custom window type
func (s *STFT) ComputeWithWindow(signal []float64, windowSize int, hopSize int, sampleRate int, window Window) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}

	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}

	// Calculate number of frames
	numFrames := (len(signal)-windowSize)/hopSize + 1
	if len(signal) < windowSize || numFrames <= 0 {
		return nil, fmt.Errorf("signal too short for given window size and hop size")
	}

	// Calculate frequency bins (positive frequencies only)
	freqBins := windowSize/2 + 1

	magnitude := make([][]float64, numFrames)
	complexSpectrum := make([][]complex128, numFrames)

	for i := 0; i < numFrames; i++ {
		magnitude[i] = make([]float64, freqBins)
		complexSpectrum[i] = make([]complex128, freqBins)
	}

	numWorkers := s.getOptimalWorkerCount(numFrames)

	type frameJob struct {
		frameIdx int
		startIdx int
		endIdx   int
	}

	jobs := make(chan frameJob, numFrames)

	var wg sync.WaitGroup
	var windowErr error
	var errOnce sync.Once

	for _i := 0; _i < numWorkers; _i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Reuse frame buffer for this worker
			frameBuffer := make([]float64, windowSize)

			for job := range jobs {
				copy(frameBuffer, signal[job.startIdx:job.endIdx])

				if window != nil {
					if err := window.ApplyInPlace(frameBuffer); err != nil {
						errOnce.Do(func() { windowErr = err })
						continue
					}
				}

				fftResult := s.fft.Compute(frameBuffer)

				// Each worker owns distinct rows, no locking needed
				for i := 0; i < freqBins; i++ {
					complexSpectrum[job.frameIdx][i] = fftResult[i]
					magnitude[job.frameIdx][i] = cmplx.Abs(fftResult[i])
				}
			}
		}()
	}

	for frameIdx := 0; frameIdx < numFrames; frameIdx++ {
		startIdx := frameIdx * hopSize
		jobs <- frameJob{
			frameIdx: frameIdx,
			startIdx: startIdx,
			endIdx:   startIdx + windowSize,
		}
	}
	close(jobs)

	wg.Wait()

	if windowErr != nil {
		return nil, fmt.Errorf("failed to apply window: %w", windowErr)
	}

	return &STFTResult{
		Magnitude:      magnitude,
		Complex:        complexSpectrum,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		FreqResolution: float64(sampleRate) / float64(windowSize),
		TimeResolution: float64(hopSize) / float64(sampleRate),
	}, nil
}

// Inverse reconstructs a signal of the given length from a centered complex spectrogram
// by windowed overlap-add, normalised by the summed squared window.
func (s *STFT) Inverse(spectrogram [][]complex128, windowSize, hopSize, length int, window Window) ([]float64, error) {
	if len(spectrogram) == 0 {
		return nil, fmt.Errorf("empty spectrogram")
	}
	if windowSize <= 0 || hopSize <= 0 {
		return nil, fmt.Errorf("window and hop size must be positive")
	}

	coeffs := make([]float64, windowSize)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	if window != nil {
		coeffs = window.GetCoefficients()
		if len(coeffs) != windowSize {
			return nil, fmt.Errorf("window length (%d) doesn't match window size (%d)", len(coeffs), windowSize)
		}
	}

	numFrames := len(spectrogram)
	fullLength := windowSize + hopSize*(numFrames-1)
	output := make([]float64, fullLength)
	windowSum := make([]float64, fullLength)

	for t, frame := range spectrogram {
		timeFrame := s.fft.ComputeInverseReal(frame, windowSize)
		offset := t * hopSize
		for i := 0; i < windowSize; i++ {
			output[offset+i] += timeFrame[i] * coeffs[i]
			windowSum[offset+i] += coeffs[i] * coeffs[i]
		}
	}

	const tiny = 1e-12
	for i := range output {
		if windowSum[i] > tiny {
			output[i] /= windowSum[i]
		}
	}

	// Undo the centering pad and fit to the requested length
	start := windowSize / 2
	result := make([]float64, length)
	if start < len(output) {
		copy(result, output[start:])
	}

	return result, nil
}

// getOptimalWorkerCount determines the optimal number of workers based on workload
func (s *STFT) getOptimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}

	// For medium workloads, use most CPUs
	if numFrames < 1000 {
		return min(numCPU, 8)
	}

	return numCPU
}
