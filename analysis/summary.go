package analysis

import (
	"github.com/RyanBlaney/vocalytics/algorithms/common"
)

// Summary is the flat set of clip-level metrics handed to report generators.
// Field names are part of the external contract. Pitch-derived fields are
// absent when no frame is voiced; every *_score lies in [0, 1].
type Summary struct {
	Duration    float64 `json:"duration" yaml:"duration"`
	EnergyMean  float64 `json:"energy_mean" yaml:"energy_mean"`
	EnergyStd   float64 `json:"energy_std" yaml:"energy_std"`
	PeakEnergy  float64 `json:"peak_energy" yaml:"peak_energy"`
	VoicedRatio float64 `json:"voiced_ratio" yaml:"voiced_ratio"`

	PitchMean   common.NullFloat `json:"pitch_mean" yaml:"pitch_mean"`
	PitchMedian common.NullFloat `json:"pitch_median" yaml:"pitch_median"`
	PitchStd    common.NullFloat `json:"pitch_std" yaml:"pitch_std"`
	PitchMin    common.NullFloat `json:"pitch_min" yaml:"pitch_min"`
	PitchMax    common.NullFloat `json:"pitch_max" yaml:"pitch_max"`

	CentroidMean  float64 `json:"centroid_mean" yaml:"centroid_mean"`
	BandwidthMean float64 `json:"bandwidth_mean" yaml:"bandwidth_mean"`
	RolloffMean   float64 `json:"rolloff_mean" yaml:"rolloff_mean"`
	FlatnessMean  float64 `json:"flatness_mean" yaml:"flatness_mean"`

	HNR     common.NullFloat `json:"hnr_db" yaml:"hnr_db"`
	Jitter  common.NullFloat `json:"jitter" yaml:"jitter"`
	Shimmer common.NullFloat `json:"shimmer" yaml:"shimmer"`

	SoftScore    float64 `json:"soft_score" yaml:"soft_score"`
	ToneScore    float64 `json:"tone_score" yaml:"tone_score"`
	WetnessScore float64 `json:"wetness_score" yaml:"wetness_score"`
	StrainScore  float64 `json:"strain_score" yaml:"strain_score"`
}

// SummaryKeys lists the summary fields in contract order
var SummaryKeys = []string{
	"duration", "energy_mean", "energy_std", "peak_energy", "voiced_ratio",
	"pitch_mean", "pitch_median", "pitch_std", "pitch_min", "pitch_max",
	"centroid_mean", "bandwidth_mean", "rolloff_mean", "flatness_mean",
	"hnr_db", "jitter", "shimmer",
	"soft_score", "tone_score", "wetness_score", "strain_score",
}

func nullable(v common.NullFloat) any {
	if p := v.Ptr(); p != nil {
		return *p
	}
	return nil
}

// AsMap returns the summary as plain key/value pairs; absent values are nil
func (s *Summary) AsMap() map[string]any {
	return map[string]any{
		"duration":       s.Duration,
		"energy_mean":    s.EnergyMean,
		"energy_std":     s.EnergyStd,
		"peak_energy":    s.PeakEnergy,
		"voiced_ratio":   s.VoicedRatio,
		"pitch_mean":     nullable(s.PitchMean),
		"pitch_median":   nullable(s.PitchMedian),
		"pitch_std":      nullable(s.PitchStd),
		"pitch_min":      nullable(s.PitchMin),
		"pitch_max":      nullable(s.PitchMax),
		"centroid_mean":  s.CentroidMean,
		"bandwidth_mean": s.BandwidthMean,
		"rolloff_mean":   s.RolloffMean,
		"flatness_mean":  s.FlatnessMean,
		"hnr_db":         nullable(s.HNR),
		"jitter":         nullable(s.Jitter),
		"shimmer":        nullable(s.Shimmer),
		"soft_score":     s.SoftScore,
		"tone_score":     s.ToneScore,
		"wetness_score":  s.WetnessScore,
		"strain_score":   s.StrainScore,
	}
}

// finite reports whether every present value is a finite number
func (s *Summary) finite() bool {
	for _, v := range s.AsMap() {
		if f, ok := v.(float64); ok && !common.IsFinite(f) {
			return false
		}
	}
	return true
}
