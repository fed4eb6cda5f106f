package speech

import (
	"errors"
	"fmt"
	"math"

	"github.com/RyanBlaney/vocalytics/algorithms/common"
)

// ErrNoVoicedFrames is returned when a measure has nothing periodic to work on
var ErrNoVoicedFrames = errors.New("no voiced frames")

// VoiceReportParams holds the analysis settings of the voice report.
// The defaults follow the conventional phonetics settings for speech.
type VoiceReportParams struct {
	SampleRate int `json:"sample_rate"`

	// Harmonicity (cross-correlation)
	TimeStep         float64 `json:"time_step"`         // Seconds between analysis frames
	MinPitch         float64 `json:"min_pitch"`         // Lowest pitch considered (Hz)
	MaxPitch         float64 `json:"max_pitch"`         // Highest pitch considered (Hz)
	SilenceThreshold float64 `json:"silence_threshold"` // Relative to the global peak
	PeriodsPerWindow float64 `json:"periods_per_window"`
	OctaveCost       float64 `json:"octave_cost"`
	SubharmonicRatio float64 `json:"subharmonic_ratio"` // Shortest lag within this fraction of the best r wins

	// Point process
	VoicingThreshold      float64 `json:"voicing_threshold"`
	PulseSilenceThreshold float64 `json:"pulse_silence_threshold"`

	// Perturbation
	Limits PeriodLimits `json:"limits"`
}

// DefaultVoiceReportParams returns the standard speech settings
func DefaultVoiceReportParams(sampleRate int) VoiceReportParams {
	return VoiceReportParams{
		SampleRate:            sampleRate,
		TimeStep:              0.01,
		MinPitch:              75.0,
		MaxPitch:              500.0,
		SilenceThreshold:      0.1,
		PeriodsPerWindow:      1.0,
		OctaveCost:            0.01,
		SubharmonicRatio:      0.9,
		VoicingThreshold:      0.45,
		PulseSilenceThreshold: 0.03,
		Limits:                DefaultPeriodLimits(),
	}
}

// VoiceReport holds the perturbation and noise measures of a recording.
// A measure that could not be computed is absent and its cause is kept in Failures.
type VoiceReport struct {
	HNR       common.NullFloat `json:"hnr_db"`
	Jitter    common.NullFloat `json:"jitter"`
	Shimmer   common.NullFloat `json:"shimmer"`
	MeanF0    common.NullFloat `json:"mean_f0"`
	NumPulses int              `json:"num_pulses"`

	Failures map[string]error `json:"-"`
}

func (r *VoiceReport) fail(measure string, err error) {
	if r.Failures == nil {
		r.Failures = make(map[string]error)
	}
	r.Failures[measure] = err
}

// VoiceQualityAnalyzer computes harmonicity and cycle-to-cycle perturbation
// of a voice recording
type VoiceQualityAnalyzer struct {
	params VoiceReportParams
}

// NewVoiceQualityAnalyzer creates an analyzer with default settings
func NewVoiceQualityAnalyzer(sampleRate int) *VoiceQualityAnalyzer {
	return &VoiceQualityAnalyzer{params: DefaultVoiceReportParams(sampleRate)}
}

// NewVoiceQualityAnalyzerWithParams creates an analyzer with custom settings
func NewVoiceQualityAnalyzerWithParams(params VoiceReportParams) *VoiceQualityAnalyzer {
	return &VoiceQualityAnalyzer{params: params}
}

// Params returns the analyzer settings
func (vqa *VoiceQualityAnalyzer) Params() VoiceReportParams {
	return vqa.params
}

// Analyze computes every measure independently; a failing one does not affect the others
func (vqa *VoiceQualityAnalyzer) Analyze(signal []float64) *VoiceReport {
	report := &VoiceReport{}

	if hnr, err := vqa.HarmonicityCC(signal); err != nil {
		report.fail("hnr", err)
	} else {
		report.HNR = common.SomeIfFinite(hnr)
	}

	pulses, err := vqa.PointProcess(signal)
	if err != nil {
		report.fail("point_process", err)
		report.fail("jitter", err)
		report.fail("shimmer", err)
		return report
	}
	report.NumPulses = len(pulses)

	if len(pulses) > 1 {
		span := pulses[len(pulses)-1].Time - pulses[0].Time
		if span > 0 {
			report.MeanF0 = common.SomeIfFinite(float64(len(pulses)-1) / span)
		}
	}

	if jitter, err := LocalJitter(pulses, vqa.params.Limits); err != nil {
		report.fail("jitter", err)
	} else {
		report.Jitter = common.SomeIfFinite(jitter)
	}

	if shimmer, err := LocalShimmer(pulses, signal, vqa.params.SampleRate, vqa.params.Limits); err != nil {
		report.fail("shimmer", err)
	} else {
		report.Shimmer = common.SomeIfFinite(shimmer)
	}

	return report
}

// maxCorrelation caps r so a perfectly periodic frame reports about 60 dB
const maxCorrelation = 0.999999

// HarmonicityCC returns the mean harmonics-to-noise ratio in dB over non-silent frames,
// using forward cross-correlation with one period per window
func (vqa *VoiceQualityAnalyzer) HarmonicityCC(signal []float64) (float64, error) {
	if vqa.params.SampleRate <= 0 {
		return 0, fmt.Errorf("invalid sample rate: %d", vqa.params.SampleRate)
	}

	layout := vqa.layoutFor(vqa.params.MinPitch, vqa.params.MaxPitch)
	frames := vqa.analyzeFrames(signal, layout, vqa.params.SilenceThreshold)
	if len(frames) == 0 {
		return 0, fmt.Errorf("signal shorter than one analysis window (%d samples)", layout.span())
	}

	sum := 0.0
	count := 0
	for _, f := range frames {
		if f.silent || !f.voiced {
			continue
		}
		r := common.Clamp(f.r, 1e-10, maxCorrelation)
		sum += 10 * math.Log10(r/(1-r))
		count++
	}

	if count == 0 {
		return 0, ErrNoVoicedFrames
	}
	return sum / float64(count), nil
}
