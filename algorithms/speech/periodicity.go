package speech

import (
	"math"

	"github.com/RyanBlaney/vocalytics/algorithms/common"
)

// periodicityFrame is the forward cross-correlation analysis of one short window
type periodicityFrame struct {
	start  int     // First sample of the window
	silent bool    // Local peak below the silence threshold
	voiced bool    // An interior correlation maximum was found
	r      float64 // Normalised correlation at the chosen lag
	lag    float64 // Chosen lag in samples (fractional)

	candidates []lagCandidate
}

// lagCandidate is one interior correlation maximum
type lagCandidate struct {
	lag float64
	r   float64
}

func (f *periodicityFrame) choose(c lagCandidate) {
	f.voiced = true
	f.lag = c.lag
	f.r = c.r
}

// frameLayout describes how a signal is cut for correlation analysis
type frameLayout struct {
	windowLength int
	minLag       int
	maxLag       int
	step         int
}

func (fl frameLayout) span() int {
	return fl.windowLength + fl.maxLag + 1
}

// layoutFor derives the window and lag range from the pitch range
func (vqa *VoiceQualityAnalyzer) layoutFor(minPitch, maxPitch float64) frameLayout {
	sr := float64(vqa.params.SampleRate)
	return frameLayout{
		windowLength: max(2, int(math.Round(vqa.params.PeriodsPerWindow/minPitch*sr))),
		minLag:       max(2, int(math.Floor(sr/maxPitch))),
		maxLag:       int(math.Ceil(sr / minPitch)),
		step:         max(1, int(math.Round(vqa.params.TimeStep*sr))),
	}
}

// analyzeFrames runs normalised forward cross-correlation over every full window
func (vqa *VoiceQualityAnalyzer) analyzeFrames(signal []float64, layout frameLayout, silenceThreshold float64) []periodicityFrame {
	if len(signal) < layout.span() {
		return nil
	}

	globalPeak := 0.0
	for _, v := range signal {
		globalPeak = math.Max(globalPeak, math.Abs(v))
	}

	minPitch := float64(vqa.params.SampleRate) / float64(layout.maxLag)
	rs := make([]float64, layout.maxLag+2)

	var frames []periodicityFrame
	for start := 0; start+layout.span() <= len(signal); start += layout.step {
		frame := periodicityFrame{start: start}

		localPeak := 0.0
		for _, v := range signal[start : start+layout.span()] {
			localPeak = math.Max(localPeak, math.Abs(v))
		}
		if globalPeak == 0 || localPeak < silenceThreshold*globalPeak {
			frame.silent = true
			frames = append(frames, frame)
			continue
		}

		head := signal[start : start+layout.windowLength]
		headEnergy := common.SumSquares(head)
		for lag := layout.minLag - 1; lag <= layout.maxLag+1; lag++ {
			tail := signal[start+lag : start+lag+layout.windowLength]
			denom := math.Sqrt(headEnergy * common.SumSquares(tail))
			if denom == 0 {
				rs[lag] = 0
				continue
			}
			cross := 0.0
			for i, v := range head {
				cross += v * tail[i]
			}
			rs[lag] = cross / denom
		}

		best := -1
		bestScore := math.Inf(-1)
		for lag := layout.minLag; lag <= layout.maxLag; lag++ {
			if rs[lag] <= 0 || rs[lag] <= rs[lag-1] || rs[lag] < rs[lag+1] {
				continue
			}
			shift, r := common.ParabolicPeak(rs, lag)
			c := lagCandidate{lag: float64(lag) + shift, r: math.Min(r, 1.0)}
			frame.candidates = append(frame.candidates, c)

			// Prefer shorter periods among near-equal maxima (octave cost)
			score := c.r - vqa.params.OctaveCost*math.Log2(minPitch*c.lag/float64(vqa.params.SampleRate))
			if score > bestScore {
				bestScore = score
				best = len(frame.candidates) - 1
			}
		}

		if best >= 0 {
			frame.choose(frame.candidates[vqa.shortestStrong(frame.candidates, frame.candidates[best].r)])
		}

		frames = append(frames, frame)
	}

	return frames
}

// shortestStrong returns the shortest candidate whose correlation is within
// SubharmonicRatio of the best one. Candidates are in increasing lag order.
// A cycle-to-cycle alternation makes twice the period correlate best; this
// keeps the fundamental period instead.
func (vqa *VoiceQualityAnalyzer) shortestStrong(candidates []lagCandidate, bestR float64) int {
	floor := vqa.params.SubharmonicRatio * bestR
	for i, c := range candidates {
		if c.r >= floor {
			return i
		}
	}
	return len(candidates) - 1
}

// smoothRun moves frames of one voiced run off octave jumps. Each frame whose
// lag is more than half an octave from the run median takes the candidate
// closest to the median, provided that candidate still passes minR.
func smoothRun(run []periodicityFrame, minR float64) {
	if len(run) < 3 {
		return
	}

	lags := make([]float64, len(run))
	for i, f := range run {
		lags[i] = f.lag
	}
	median := common.Median(lags)
	if median <= 0 {
		return
	}

	const halfOctave = 0.5
	for i := range run {
		if math.Abs(math.Log2(run[i].lag/median)) <= halfOctave {
			continue
		}
		closest := -1
		closestDist := math.Inf(1)
		for k, c := range run[i].candidates {
			if c.r < minR {
				continue
			}
			if d := math.Abs(math.Log2(c.lag / median)); d < closestDist {
				closest, closestDist = k, d
			}
		}
		if closest >= 0 && closestDist <= halfOctave {
			run[i].choose(run[i].candidates[closest])
		}
	}
}
