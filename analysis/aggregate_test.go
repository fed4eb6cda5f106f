package analysis

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/RyanBlaney/vocalytics/algorithms/common"
	"github.com/RyanBlaney/vocalytics/algorithms/spectral"
	"github.com/RyanBlaney/vocalytics/algorithms/tonal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func estimate(values ...float64) *tonal.PitchEstimate {
	pe := &tonal.PitchEstimate{
		F0:     make([]common.NullFloat, len(values)),
		Voiced: make([]bool, len(values)),
		Method: tonal.MethodPYIN,
	}
	for i, v := range values {
		if v > 0 {
			pe.F0[i] = common.Some(v)
			pe.Voiced[i] = true
		}
	}
	return pe
}

func TestAggregate_Reductions(t *testing.T) {
	s := Aggregate(AggregateInput{
		Duration:   1.5,
		SampleRate: 16000,
		RMS:        []float64{1, 3},
		Pitch:      estimate(100, 0, 300),
		Spectral: &spectral.Features{
			Centroid:  []float64{1000, 3000},
			Bandwidth: []float64{500, 700},
			Rolloff:   []float64{2000, 4000},
			Flatness:  []float64{0.2, 0.4},
		},
		Harmonicity: HarmonicityResult{
			Jitter: common.Some(0.02),
			HNR:    common.Some(15),
		},
	})

	assert.Equal(t, 1.5, s.Duration)
	assert.InDelta(t, 2.0, s.EnergyMean, 1e-12)
	assert.InDelta(t, 1.0, s.EnergyStd, 1e-12)
	assert.Equal(t, 3.0, s.PeakEnergy)
	assert.InDelta(t, 2.0/3.0, s.VoicedRatio, 1e-12)

	assert.InDelta(t, 200.0, s.PitchMean.Float64, 1e-9)
	assert.InDelta(t, 200.0, s.PitchMedian.Float64, 1e-9)
	assert.InDelta(t, 100.0, s.PitchStd.Float64, 1e-9)
	assert.Equal(t, common.Some(100), s.PitchMin)
	assert.Equal(t, common.Some(300), s.PitchMax)

	assert.InDelta(t, 2000.0, s.CentroidMean, 1e-9)
	assert.InDelta(t, 600.0, s.BandwidthMean, 1e-9)
	assert.InDelta(t, 3000.0, s.RolloffMean, 1e-9)
	assert.InDelta(t, 0.3, s.FlatnessMean, 1e-12)

	assert.Equal(t, common.Some(15), s.HNR)
	assert.Equal(t, common.Some(0.02), s.Jitter)
	assert.False(t, s.Shimmer.Valid)

	assert.InDelta(t, 0.0, s.SoftScore, 1e-6)
	assert.InDelta(t, math.Tanh(0.25), s.ToneScore, 1e-12)
	assert.InDelta(t, 0.7, s.WetnessScore, 1e-12)
	assert.InDelta(t, (1.0/3.0+0.5+0.02)/3.0, s.StrainScore, 1e-6)
}

func TestAggregate_MedianOfEvenCount(t *testing.T) {
	s := Aggregate(AggregateInput{
		SampleRate: 16000,
		RMS:        []float64{0.1},
		Pitch:      estimate(100, 200, 300, 400),
	})
	assert.InDelta(t, 250.0, s.PitchMedian.Float64, 1e-9)
}

func TestAggregate_NoVoicedFrames(t *testing.T) {
	s := Aggregate(AggregateInput{
		SampleRate: 16000,
		RMS:        []float64{0, 0, 0},
		Pitch:      estimate(0, 0, 0),
		Spectral: &spectral.Features{
			Centroid:  []float64{0, 0, 0},
			Bandwidth: []float64{0, 0, 0},
			Rolloff:   []float64{0, 0, 0},
			Flatness:  []float64{1, 1, 1},
		},
		Harmonicity: HarmonicityResult{HNR: common.Some(60)},
	})

	assert.Zero(t, s.EnergyMean)
	assert.Zero(t, s.EnergyStd)
	assert.Zero(t, s.PeakEnergy)
	assert.Zero(t, s.VoicedRatio)
	for _, v := range []common.NullFloat{s.PitchMean, s.PitchMedian, s.PitchStd, s.PitchMin, s.PitchMax} {
		assert.False(t, v.Valid)
	}

	assert.Equal(t, 1.0, s.SoftScore)
	assert.Equal(t, 0.0, s.ToneScore)
	assert.Equal(t, 0.0, s.WetnessScore)
	assert.Equal(t, 0.0, s.StrainScore)
}

func TestStrainScore(t *testing.T) {
	// Pitch and energy only
	got := strainScore(common.Some(250), 2, 1, common.None())
	assert.InDelta(t, (0.5+0.5)/2, got, 1e-6)

	// Energy variability above 1 is compressed by the final clip
	got = strainScore(common.None(), 1, 2.5, common.Some(4))
	assert.Equal(t, 1.0, got)

	// Low pitch contributes zero rather than a negative value
	got = strainScore(common.Some(60), 1, 0, common.None())
	assert.Equal(t, 0.0, got)
}

func TestScoresStayBounded(t *testing.T) {
	cases := []AggregateInput{
		{SampleRate: 16000, RMS: []float64{0, 10, 0, 10}, Pitch: estimate(480, 490)},
		{SampleRate: 8000, RMS: []float64{1e-12}, Spectral: &spectral.Features{Centroid: []float64{4000}, Flatness: []float64{1.2}}},
		{SampleRate: 16000, RMS: []float64{0.5}, Harmonicity: HarmonicityResult{Jitter: common.Some(100)}},
		{SampleRate: 0, RMS: nil},
	}

	for i, in := range cases {
		s := Aggregate(in)
		for name, score := range map[string]float64{
			"soft": s.SoftScore, "tone": s.ToneScore, "wetness": s.WetnessScore, "strain": s.StrainScore,
		} {
			assert.GreaterOrEqual(t, score, 0.0, "case %d %s", i, name)
			assert.LessOrEqual(t, score, 1.0, "case %d %s", i, name)
		}
		assert.GreaterOrEqual(t, s.VoicedRatio, 0.0)
		assert.LessOrEqual(t, s.VoicedRatio, 1.0)
	}
}

func TestSummary_Serialization(t *testing.T) {
	s := Aggregate(AggregateInput{
		Duration:    1,
		SampleRate:  16000,
		RMS:         []float64{0.1, 0.2},
		Pitch:       estimate(0, 0),
		Harmonicity: HarmonicityResult{HNR: common.Some(12.5)},
	})

	m := s.AsMap()
	assert.Len(t, m, len(SummaryKeys))
	for _, key := range SummaryKeys {
		assert.Contains(t, m, key)
	}
	assert.Nil(t, m["pitch_mean"])
	assert.Nil(t, m["jitter"])
	assert.Equal(t, 12.5, m["hnr_db"])

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Len(t, decoded, len(SummaryKeys))
	assert.Nil(t, decoded["pitch_mean"])
	assert.Equal(t, 12.5, decoded["hnr_db"])

	out, err := yaml.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(out), "pitch_mean: null")
	assert.Contains(t, string(out), "hnr_db: 12.5")
}

func TestSummary_Finite(t *testing.T) {
	s := &Summary{EnergyMean: 0.1}
	assert.True(t, s.finite())

	s.CentroidMean = math.NaN()
	assert.False(t, s.finite())

	s.CentroidMean = 0
	s.HNR = common.Some(math.Inf(1))
	assert.False(t, s.finite())
}
