package analysis

import (
	"math"

	"github.com/RyanBlaney/vocalytics/algorithms/common"
	"github.com/RyanBlaney/vocalytics/algorithms/spectral"
	"github.com/RyanBlaney/vocalytics/algorithms/tonal"
)

// Score weights of the softness proxy. The centroid term is carried with a zero weight.
const (
	softEnergyWeight   = 1.0
	softCentroidWeight = 0.0
)

// Strain component scaling
const (
	strainPitchOffset  = 100.0 // Hz
	strainPitchRange   = 300.0 // Hz
	strainJitterScale  = 1.0
	strainComponentCap = 3.0
)

// AggregateInput is everything the aggregator reduces
type AggregateInput struct {
	Duration    float64
	SampleRate  int
	RMS         []float64
	Pitch       *tonal.PitchEstimate
	Spectral    *spectral.Features
	Harmonicity HarmonicityResult
}

// Aggregate reduces the frame series to a Summary and derives the bounded scores
func Aggregate(in AggregateInput) *Summary {
	s := &Summary{
		Duration:   in.Duration,
		EnergyMean: common.Mean(in.RMS),
		EnergyStd:  common.PopulationStdDev(in.RMS),
		PeakEnergy: common.Max(in.RMS),
		HNR:        in.Harmonicity.HNR,
		Jitter:     in.Harmonicity.Jitter,
		Shimmer:    in.Harmonicity.Shimmer,
	}

	if in.Pitch != nil {
		s.VoicedRatio = in.Pitch.VoicedRatio()
		if voiced := in.Pitch.VoicedValues(); len(voiced) > 0 {
			s.PitchMean = common.Some(common.Mean(voiced))
			s.PitchMedian = common.Some(common.Median(voiced))
			s.PitchStd = common.Some(common.PopulationStdDev(voiced))
			s.PitchMin = common.Some(common.Min(voiced))
			s.PitchMax = common.Some(common.Max(voiced))
		}
	}

	if in.Spectral != nil {
		s.CentroidMean = common.Mean(in.Spectral.Centroid)
		s.BandwidthMean = common.Mean(in.Spectral.Bandwidth)
		s.RolloffMean = common.Mean(in.Spectral.Rolloff)
		s.FlatnessMean = common.Mean(in.Spectral.Flatness)
	}

	s.SoftScore = softScore(s.EnergyMean, s.CentroidMean)
	s.ToneScore = toneScore(s.CentroidMean, in.SampleRate)
	s.WetnessScore = wetnessScore(s.FlatnessMean)
	s.StrainScore = strainScore(s.PitchMean, s.EnergyMean, s.EnergyStd, s.Jitter)

	return s
}

func softScore(energyMean, centroidMean float64) float64 {
	eps := common.Epsilon
	loudness := softEnergyWeight*(energyMean/(energyMean+eps)) +
		softCentroidWeight*(centroidMean/(centroidMean+eps))
	return common.Clamp(1-common.Clamp(loudness, 0, 1), 0, 1)
}

// toneScore saturates brightness relative to Nyquist
func toneScore(centroidMean float64, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return common.Clamp(math.Tanh(centroidMean/(float64(sampleRate)/2)), 0, 1)
}

func wetnessScore(flatnessMean float64) float64 {
	return 1 - common.Clamp(flatnessMean, 0, 1)
}

// strainScore averages whichever instability components are available
func strainScore(pitchMean common.NullFloat, energyMean, energyStd float64, jitter common.NullFloat) float64 {
	components := make([]float64, 0, 3)

	if pm, ok := pitchMean.Get(); ok {
		components = append(components, common.Clamp((pm-strainPitchOffset)/strainPitchRange, 0, 1))
	}
	components = append(components, common.Clamp(energyStd/(energyMean+common.Epsilon), 0, strainComponentCap))
	if j, ok := jitter.Get(); ok {
		components = append(components, common.Clamp(j/strainJitterScale, 0, strainComponentCap))
	}

	return common.Clamp(common.Mean(components), 0, 1)
}
