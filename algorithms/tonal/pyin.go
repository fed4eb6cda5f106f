package tonal

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/vocalytics/algorithms/common"
	"github.com/RyanBlaney/vocalytics/algorithms/spectral"
	"gonum.org/v1/gonum/stat/distuv"
)

// PYINParams configures the probabilistic YIN tracker
type PYINParams struct {
	SampleRate  int     `json:"sample_rate"`
	FrameLength int     `json:"frame_length"`
	HopLength   int     `json:"hop_length"`
	MinFreq     float64 `json:"min_freq"`
	MaxFreq     float64 `json:"max_freq"`

	NumThresholds       int     `json:"num_thresholds"`        // Thresholds sampled from the beta prior
	BetaAlpha           float64 `json:"beta_alpha"`            // Beta prior shape a
	BetaBeta            float64 `json:"beta_beta"`             // Beta prior shape b
	BoltzmannParameter  float64 `json:"boltzmann_parameter"`   // Trough ordering prior
	Resolution          float64 `json:"resolution"`            // Pitch bin width in semitones
	MaxTransitionRate   float64 `json:"max_transition_rate"`   // Octaves per second
	SwitchProbability   float64 `json:"switch_probability"`    // Voiced <-> unvoiced per frame
	NoTroughProbability float64 `json:"no_trough_probability"` // Mass given to the global minimum
}

// DefaultPYINParams returns the standard pYIN configuration for speech
func DefaultPYINParams(sampleRate int) PYINParams {
	return PYINParams{
		SampleRate:          sampleRate,
		FrameLength:         2048,
		HopLength:           256,
		MinFreq:             50.0,
		MaxFreq:             500.0,
		NumThresholds:       100,
		BetaAlpha:           2.0,
		BetaBeta:            18.0,
		BoltzmannParameter:  2.0,
		Resolution:          0.1,
		MaxTransitionRate:   35.92,
		SwitchProbability:   0.01,
		NoTroughProbability: 0.01,
	}
}

// PYIN is a probabilistic YIN fundamental frequency tracker.
// Each frame yields a set of period candidates weighted by a beta prior over
// YIN thresholds; a two-state (voiced/unvoiced) HMM over 10-cent pitch bins
// is then decoded with Viterbi.
//
// References:
// - de Cheveigné, A., Kawahara, H. (2002). "YIN, a fundamental frequency estimator for speech and music"
// - Mauch, M., Dixon, S. (2014). "pYIN: A fundamental frequency estimator using probabilistic threshold distributions"
type PYIN struct {
	params PYINParams

	minPeriod int
	maxPeriod int
	winLength int

	thresholdProbs []float64
	numBins        int
	binsPerOctave  float64
	binFreqs       []float64

	localTransition [][]float64 // banded, rows normalised; index [i][k] is bin i -> bin i-half+k
	transitionHalf  int
}

// NewPYIN validates params and precomputes priors and the transition model
func NewPYIN(params PYINParams) (*PYIN, error) {
	if params.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", params.SampleRate)
	}
	if params.MinFreq <= 0 || params.MaxFreq <= params.MinFreq {
		return nil, fmt.Errorf("invalid frequency range: [%g, %g]", params.MinFreq, params.MaxFreq)
	}
	if params.FrameLength <= 0 || params.HopLength <= 0 {
		return nil, fmt.Errorf("invalid framing: frame=%d hop=%d", params.FrameLength, params.HopLength)
	}
	if params.NumThresholds <= 0 || params.Resolution <= 0 {
		return nil, fmt.Errorf("invalid threshold or bin resolution")
	}

	p := &PYIN{params: params}

	sr := float64(params.SampleRate)
	p.winLength = params.FrameLength / 2
	p.minPeriod = max(int(math.Floor(sr/params.MaxFreq)), 1)
	p.maxPeriod = min(int(math.Ceil(sr/params.MinFreq)), params.FrameLength-p.winLength-1)
	if p.maxPeriod <= p.minPeriod+1 {
		return nil, fmt.Errorf("frame length %d too short for fmin %g Hz", params.FrameLength, params.MinFreq)
	}

	// Threshold prior: probability mass of the beta distribution between consecutive thresholds
	beta := distuv.Beta{Alpha: params.BetaAlpha, Beta: params.BetaBeta}
	p.thresholdProbs = make([]float64, params.NumThresholds)
	prev := beta.CDF(0)
	for i := 0; i < params.NumThresholds; i++ {
		next := beta.CDF(float64(i+1) / float64(params.NumThresholds))
		p.thresholdProbs[i] = next - prev
		prev = next
	}

	binsPerSemitone := int(math.Ceil(1.0 / params.Resolution))
	p.binsPerOctave = float64(12 * binsPerSemitone)
	p.numBins = int(math.Floor(p.binsPerOctave*math.Log2(params.MaxFreq/params.MinFreq))) + 1
	p.binFreqs = make([]float64, p.numBins)
	for i := 0; i < p.numBins; i++ {
		p.binFreqs[i] = params.MinFreq * math.Pow(2, float64(i)/p.binsPerOctave)
	}

	maxSemitonesPerFrame := int(math.Round(params.MaxTransitionRate * 12 * float64(params.HopLength) / sr))
	width := maxSemitonesPerFrame*binsPerSemitone + 1
	p.buildLocalTransition(width)

	return p, nil
}

// buildLocalTransition creates the triangular pitch-bin transition band, without wrap-around
func (p *PYIN) buildLocalTransition(width int) {
	if width%2 == 0 {
		width++
	}
	half := width / 2
	p.transitionHalf = half

	triangle := make([]float64, width)
	for k := 0; k < width; k++ {
		triangle[k] = 1.0 - math.Abs(float64(k-half))/float64(half+1)
	}

	p.localTransition = make([][]float64, p.numBins)
	for i := 0; i < p.numBins; i++ {
		row := make([]float64, width)
		sum := 0.0
		for k := 0; k < width; k++ {
			j := i - half + k
			if j < 0 || j >= p.numBins {
				continue
			}
			row[k] = triangle[k]
			sum += triangle[k]
		}
		for k := range row {
			row[k] /= sum
		}
		p.localTransition[i] = row
	}
}

// NumBins returns the number of voiced pitch states
func (p *PYIN) NumBins() int {
	return p.numBins
}

// Track estimates f0 and the voicing decision for each centered frame of signal
func (p *PYIN) Track(signal []float64) (*PitchEstimate, error) {
	if len(signal) == 0 {
		return &PitchEstimate{F0: []common.NullFloat{}, Voiced: []bool{}, Method: MethodPYIN}, nil
	}

	frameLength := p.params.FrameLength
	hop := p.params.HopLength
	padded := spectral.CenterPad(signal, frameLength/2)
	numFrames := spectral.FrameCount(len(signal), hop)

	numStates := 2 * p.numBins
	observations := make([][]float64, numFrames)

	for t := 0; t < numFrames; t++ {
		frame := padded[t*hop : t*hop+frameLength]
		obs := make([]float64, numStates)

		cmndf := p.cumulativeMeanNormalizedDifference(frame)
		p.observe(cmndf, obs)

		voicedProb := 0.0
		for i := 0; i < p.numBins; i++ {
			voicedProb += obs[i]
		}
		voicedProb = common.Clamp(voicedProb, 0, 1)
		unvoiced := (1 - voicedProb) / float64(p.numBins)
		for i := p.numBins; i < numStates; i++ {
			obs[i] = unvoiced
		}

		observations[t] = obs
	}

	states := p.viterbi(observations)

	estimate := &PitchEstimate{
		F0:     make([]common.NullFloat, numFrames),
		Voiced: make([]bool, numFrames),
		Method: MethodPYIN,
	}
	for t, s := range states {
		if s < p.numBins {
			estimate.F0[t] = common.Some(p.binFreqs[s])
			estimate.Voiced[t] = true
		}
	}

	return estimate, nil
}

// cumulativeMeanNormalizedDifference returns the CMNDF of a frame for periods
// minPeriod..maxPeriod (index 0 is minPeriod)
func (p *PYIN) cumulativeMeanNormalizedDifference(frame []float64) []float64 {
	win := p.winLength
	maxPeriod := p.maxPeriod

	// Energy of the analysis window starting at each lag
	energy := make([]float64, maxPeriod+1)
	running := common.SumSquares(frame[:win])
	energy[0] = running
	for tau := 1; tau <= maxPeriod; tau++ {
		running += frame[tau+win-1]*frame[tau+win-1] - frame[tau-1]*frame[tau-1]
		energy[tau] = running
	}

	diff := make([]float64, maxPeriod+1)
	for tau := 1; tau <= maxPeriod; tau++ {
		acf := 0.0
		for j := 0; j < win; j++ {
			acf += frame[j] * frame[j+tau]
		}
		d := energy[0] + energy[tau] - 2*acf
		if math.Abs(d) < 1e-6 {
			d = 0
		}
		diff[tau] = d
	}

	const tiny = 2.2250738585072014e-308

	cmndf := make([]float64, maxPeriod-p.minPeriod+1)
	cumulative := 0.0
	for tau := 1; tau <= maxPeriod; tau++ {
		cumulative += diff[tau]
		if tau >= p.minPeriod {
			cmndf[tau-p.minPeriod] = diff[tau] / (cumulative/float64(tau) + tiny)
		}
	}

	return cmndf
}

// observe distributes voiced observation probability over pitch bins for one frame
func (p *PYIN) observe(cmndf []float64, obs []float64) {
	troughs := findTroughs(cmndf)
	if len(troughs) == 0 {
		return
	}

	numThresholds := p.params.NumThresholds
	probs := make([]float64, len(troughs))

	// For every threshold, troughs below it are ranked in order; the Boltzmann
	// prior favours the earliest (shortest period) one.
	for k := 0; k < numThresholds; k++ {
		threshold := float64(k+1) / float64(numThresholds)
		below := 0
		for _, idx := range troughs {
			if cmndf[idx] < threshold {
				below++
			}
		}
		if below == 0 {
			continue
		}

		position := 0
		for ti, idx := range troughs {
			if cmndf[idx] < threshold {
				probs[ti] += boltzmannPMF(position, p.params.BoltzmannParameter, below) * p.thresholdProbs[k]
				position++
			}
		}
	}

	globalMin := 0
	for ti, idx := range troughs {
		if cmndf[idx] < cmndf[troughs[globalMin]] {
			globalMin = ti
		}
	}
	notBelow := 0.0
	for k := 0; k < numThresholds; k++ {
		if cmndf[troughs[globalMin]] >= float64(k+1)/float64(numThresholds) {
			notBelow += p.thresholdProbs[k]
		}
	}
	probs[globalMin] += p.params.NoTroughProbability * notBelow

	sr := float64(p.params.SampleRate)
	for ti, idx := range troughs {
		if probs[ti] == 0 {
			continue
		}
		shift, _ := common.ParabolicPeak(cmndf, idx)
		period := float64(p.minPeriod+idx) + shift
		f0 := sr / period

		bin := int(math.Round(p.binsPerOctave * math.Log2(f0/p.params.MinFreq)))
		bin = max(0, min(bin, p.numBins-1))
		obs[bin] += probs[ti]
	}
}

// findTroughs returns local minima of x: strictly below the left neighbour and
// not above the right one. Index 0 counts when it is below index 1.
func findTroughs(x []float64) []int {
	n := len(x)
	if n < 2 {
		return nil
	}

	var troughs []int
	if x[0] < x[1] {
		troughs = append(troughs, 0)
	}
	for i := 1; i < n; i++ {
		right := x[i]
		if i+1 < n {
			right = x[i+1]
		}
		if x[i] < x[i-1] && x[i] <= right {
			troughs = append(troughs, i)
		}
	}
	return troughs
}

// boltzmannPMF is the truncated discrete exponential distribution on 0..n-1
func boltzmannPMF(k int, lambda float64, n int) float64 {
	if k < 0 || k >= n {
		return 0
	}
	return (1 - math.Exp(-lambda)) * math.Exp(-lambda*float64(k)) / (1 - math.Exp(-lambda*float64(n)))
}

// viterbi decodes the most likely state path in log space.
// States 0..numBins-1 are voiced pitch bins, numBins..2*numBins-1 their unvoiced twins.
func (p *PYIN) viterbi(observations [][]float64) []int {
	numFrames := len(observations)
	if numFrames == 0 {
		return []int{}
	}

	const tiny = 2.2250738585072014e-308
	n := p.numBins
	numStates := 2 * n
	half := p.transitionHalf

	logStay := math.Log(1 - p.params.SwitchProbability)
	logSwitch := math.Log(p.params.SwitchProbability + tiny)

	logTransition := make([][]float64, n)
	for i, row := range p.localTransition {
		logTransition[i] = make([]float64, len(row))
		for k, w := range row {
			logTransition[i][k] = math.Log(w + tiny)
		}
	}

	value := make([]float64, numStates)
	next := make([]float64, numStates)
	backpointers := make([][]int32, numFrames)

	logInit := math.Log(1.0 / float64(numStates))
	for s := 0; s < numStates; s++ {
		value[s] = logInit + math.Log(observations[0][s]+tiny)
	}

	for t := 1; t < numFrames; t++ {
		back := make([]int32, numStates)
		for s := 0; s < numStates; s++ {
			voicedTarget := s < n
			j := s % n

			best := math.Inf(-1)
			bestState := s
			for i := max(0, j-half); i <= min(n-1, j+half); i++ {
				local := logTransition[i][j-i+half]
				for _, from := range [2]int{i, i + n} {
					switchCost := logStay
					if (from < n) != voicedTarget {
						switchCost = logSwitch
					}
					candidate := value[from] + switchCost + local
					if candidate > best {
						best = candidate
						bestState = from
					}
				}
			}

			next[s] = best + math.Log(observations[t][s]+tiny)
			back[s] = int32(bestState)
		}
		backpointers[t] = back
		value, next = next, value
	}

	states := make([]int, numFrames)
	last := 0
	for s := 1; s < numStates; s++ {
		if value[s] > value[last] {
			last = s
		}
	}
	states[numFrames-1] = last
	for t := numFrames - 1; t > 0; t-- {
		states[t-1] = int(backpointers[t][states[t]])
	}

	return states
}
