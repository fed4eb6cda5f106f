package tonal

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/RyanBlaney/vocalytics/algorithms/common"
	"github.com/RyanBlaney/vocalytics/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 16000

func sine(freq float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}
	return out
}

func noise(n int) []float64 {
	rng := rand.New(rand.NewSource(3))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()*2 - 1
	}
	return out
}

func assertConsistent(t *testing.T, estimate *PitchEstimate) {
	t.Helper()
	require.Equal(t, len(estimate.F0), len(estimate.Voiced))
	for i := range estimate.F0 {
		assert.Equal(t, estimate.Voiced[i], estimate.F0[i].Valid, "frame %d", i)
	}
}

func TestPYIN_Setup(t *testing.T) {
	p, err := NewPYIN(DefaultPYINParams(testRate))
	require.NoError(t, err)

	assert.Equal(t, 399, p.NumBins())
	assert.Equal(t, 32, p.minPeriod)
	assert.Equal(t, 320, p.maxPeriod)
	assert.Equal(t, 35, p.transitionHalf)
	assert.InDelta(t, 1.0, common.Sum(p.thresholdProbs), 1e-9)

	for _, row := range p.localTransition {
		assert.InDelta(t, 1.0, common.Sum(row), 1e-9)
	}
}

func TestPYIN_RejectsBadParams(t *testing.T) {
	params := DefaultPYINParams(testRate)
	params.MinFreq = 600
	_, err := NewPYIN(params)
	assert.Error(t, err)

	params = DefaultPYINParams(0)
	_, err = NewPYIN(params)
	assert.Error(t, err)
}

func TestPYIN_Sine(t *testing.T) {
	p, err := NewPYIN(DefaultPYINParams(testRate))
	require.NoError(t, err)

	estimate, err := p.Track(sine(220, testRate))
	require.NoError(t, err)
	assertConsistent(t, estimate)

	assert.Equal(t, MethodPYIN, estimate.Method)
	assert.Equal(t, 1+testRate/256, estimate.Len())
	assert.Greater(t, estimate.VoicedRatio(), 0.9)
	assert.InDelta(t, 220.0, common.Median(estimate.VoicedValues()), 5.0)
}

func TestPYIN_Silence(t *testing.T) {
	p, err := NewPYIN(DefaultPYINParams(testRate))
	require.NoError(t, err)

	estimate, err := p.Track(make([]float64, testRate))
	require.NoError(t, err)
	assertConsistent(t, estimate)
	assert.Equal(t, 0.0, estimate.VoicedRatio())
	assert.Empty(t, estimate.VoicedValues())
}

func TestPYIN_Noise(t *testing.T) {
	p, err := NewPYIN(DefaultPYINParams(testRate))
	require.NoError(t, err)

	estimate, err := p.Track(noise(testRate))
	require.NoError(t, err)
	assertConsistent(t, estimate)
	assert.Less(t, estimate.VoicedRatio(), 0.5)
}

func TestPYIN_Empty(t *testing.T) {
	p, err := NewPYIN(DefaultPYINParams(testRate))
	require.NoError(t, err)

	estimate, err := p.Track(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, estimate.Len())
	assert.Equal(t, 0.0, estimate.VoicedRatio())
}

func TestPeakPicker_Sine(t *testing.T) {
	pp := NewPeakPicker(testRate, 2048, 256, 50, 500)
	estimate, err := pp.Track(sine(220, testRate))
	require.NoError(t, err)
	assertConsistent(t, estimate)

	assert.Equal(t, MethodPeakPicking, estimate.Method)
	assert.Greater(t, estimate.VoicedRatio(), 0.9)
	assert.InDelta(t, 220.0, common.Median(estimate.VoicedValues()), 5.0)
}

func TestPeakPicker_Silence(t *testing.T) {
	pp := NewPeakPicker(testRate, 2048, 256, 50, 500)
	estimate, err := pp.Track(make([]float64, 4000))
	require.NoError(t, err)
	assert.Equal(t, 0.0, estimate.VoicedRatio())
}

type failingTracker struct {
	panics bool
}

func (f failingTracker) Track([]float64) (*PitchEstimate, error) {
	if f.panics {
		panic("index out of range")
	}
	return nil, errors.New("numeric failure")
}

func TestTracker_FallsBack(t *testing.T) {
	fallback := NewPeakPicker(testRate, 2048, 256, 50, 500)

	for name, primary := range map[string]PitchTracker{
		"error": failingTracker{},
		"panic": failingTracker{panics: true},
	} {
		t.Run(name, func(t *testing.T) {
			tracker := NewTrackerWith(primary, fallback, &logging.NoOpLogger{})
			estimate, err := tracker.Track(sine(200, testRate/2))
			require.NoError(t, err)
			assert.Equal(t, MethodPeakPicking, estimate.Method)
		})
	}
}

func TestTracker_FallbackFailureIsReturned(t *testing.T) {
	tracker := NewTrackerWith(failingTracker{}, failingTracker{panics: true}, &logging.NoOpLogger{})
	_, err := tracker.Track(sine(200, 1000))
	assert.Error(t, err)
}

func TestTracker_UsesPrimary(t *testing.T) {
	tracker := NewTracker(DefaultTrackerConfig(testRate), &logging.NoOpLogger{})
	estimate, err := tracker.Track(sine(180, testRate/2))
	require.NoError(t, err)
	assert.Equal(t, MethodPYIN, estimate.Method)
}

func TestFindTroughs(t *testing.T) {
	assert.Equal(t, []int{0, 3}, findTroughs([]float64{1, 2, 3, 0.5, 4}))
	assert.Empty(t, findTroughs([]float64{0, 0, 0, 0}))
	assert.Equal(t, []int{1, 4}, findTroughs([]float64{5, 4, 4, 4, 3}))
}

func TestBoltzmannPMF(t *testing.T) {
	total := 0.0
	for k := 0; k < 5; k++ {
		total += boltzmannPMF(k, 2.0, 5)
	}
	assert.InDelta(t, 1.0, total, 1e-12)
	assert.Greater(t, boltzmannPMF(0, 2.0, 5), boltzmannPMF(1, 2.0, 5))
	assert.Equal(t, 0.0, boltzmannPMF(5, 2.0, 5))
}

func TestUnvoicedEstimate(t *testing.T) {
	est := UnvoicedEstimate(5, MethodSilence)

	assert.Equal(t, 5, est.Len())
	assert.Zero(t, est.VoicedRatio())
	assert.Empty(t, est.VoicedValues())
	assert.Equal(t, MethodSilence, est.Method)
}
