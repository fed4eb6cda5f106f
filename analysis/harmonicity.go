package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/RyanBlaney/vocalytics/algorithms/common"
	"github.com/RyanBlaney/vocalytics/algorithms/harmonic"
	"github.com/RyanBlaney/vocalytics/algorithms/speech"
	"github.com/RyanBlaney/vocalytics/logging"
	"github.com/RyanBlaney/vocalytics/transcode"
)

// Provider names reported in HarmonicityResult.Source
const (
	SourcePrecise   = "precise"
	SourceHeuristic = "heuristic"
	SourceNone      = "none"
)

// HarmonicityResult holds jitter, shimmer and HNR; each may be absent on its own
type HarmonicityResult struct {
	Jitter  common.NullFloat `json:"jitter"`
	Shimmer common.NullFloat `json:"shimmer"`
	HNR     common.NullFloat `json:"hnr_db"`
	Source  string           `json:"source"` // Provider that filled HNR
}

// HarmonicityProvider estimates voice harmonicity measures of a waveform.
// Providers never fail as a whole; unavailable measures are left absent.
type HarmonicityProvider interface {
	Name() string
	Estimate(ctx context.Context, waveform *transcode.Waveform) HarmonicityResult
}

// PreciseProvider computes cross-correlation HNR and pulse-based jitter and shimmer.
// It sees the same decoded mono waveform as the other extractors, already
// resampled to the analysis rate, not the original encoded bytes.
type PreciseProvider struct {
	config HarmonicityConfig
	logger logging.Logger
}

// NewPreciseProvider creates the voice report provider
func NewPreciseProvider(cfg HarmonicityConfig, logger logging.Logger) *PreciseProvider {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &PreciseProvider{
		config: cfg,
		logger: logger.WithFields(logging.Fields{logging.FieldSource: SourcePrecise}),
	}
}

func (p *PreciseProvider) Name() string {
	return SourcePrecise
}

func (p *PreciseProvider) Estimate(ctx context.Context, waveform *transcode.Waveform) (result HarmonicityResult) {
	result.Source = SourceNone

	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("Voice report panicked, measures unavailable", logging.Fields{
				"panic": fmt.Sprint(r),
			})
			result = HarmonicityResult{Source: SourceNone}
		}
	}()

	if err := ctx.Err(); err != nil {
		return result
	}

	vqa := speech.NewVoiceQualityAnalyzerWithParams(p.config.voiceReportParams(waveform.SampleRate))
	report := vqa.Analyze(waveform.Float64())

	for measure, err := range report.Failures {
		p.logger.Debug("Voice measure unavailable", logging.Fields{
			"measure": measure,
			"error":   err.Error(),
		})
	}

	result.Jitter = report.Jitter
	result.Shimmer = report.Shimmer
	result.HNR = report.HNR
	if result.HNR.Valid {
		result.Source = SourcePrecise
	}
	return result
}

// HeuristicProvider approximates HNR from harmonic/percussive separation.
// It has no jitter or shimmer estimate.
type HeuristicProvider struct {
	hpss   *harmonic.HPSS
	logger logging.Logger
}

// NewHeuristicProvider creates the HPSS-based provider
func NewHeuristicProvider(params harmonic.HPSSParams, logger logging.Logger) *HeuristicProvider {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &HeuristicProvider{
		hpss:   harmonic.NewHPSS(params),
		logger: logger.WithFields(logging.Fields{logging.FieldSource: SourceHeuristic}),
	}
}

func (h *HeuristicProvider) Name() string {
	return SourceHeuristic
}

func (h *HeuristicProvider) Estimate(ctx context.Context, waveform *transcode.Waveform) HarmonicityResult {
	result := HarmonicityResult{Source: SourceNone}
	if err := ctx.Err(); err != nil {
		return result
	}

	hnr, err := h.hpss.HarmonicToNoiseDB(waveform.Float64(), waveform.SampleRate)
	if err != nil {
		h.logger.Warn("Heuristic HNR unavailable", logging.Fields{"error": err.Error()})
		return result
	}

	result.HNR = common.SomeIfFinite(hnr)
	if result.HNR.Valid {
		result.Source = SourceHeuristic
	}
	return result
}

// Capabilities records which harmonicity providers can run in this process
type Capabilities struct {
	Precise     bool             `json:"precise"`
	Reason      string           `json:"reason,omitempty"`
	ProbeHNR    common.NullFloat `json:"probe_hnr_db"`
	ProbeJitter common.NullFloat `json:"probe_jitter"`
}

// probeFrequency is the pitch of the synthetic self-test tone
const probeFrequency = 150.0

// ProbeCapabilities decides whether the precise provider is usable. It must be
// enabled and produce a finite HNR and jitter on a one second 150 Hz tone.
func ProbeCapabilities(cfg HarmonicityConfig, sampleRate int, logger logging.Logger) Capabilities {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	logger = logger.WithFields(logging.Fields{
		logging.FieldComponent:  "harmonicity_probe",
		logging.FieldSampleRate: sampleRate,
	})

	if !cfg.EnablePrecise {
		logger.Debug("Precise harmonicity disabled by configuration")
		return Capabilities{Reason: "disabled by configuration"}
	}
	if sampleRate <= 0 {
		return Capabilities{Reason: fmt.Sprintf("invalid sample rate %d", sampleRate)}
	}

	samples := make([]float64, sampleRate)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*probeFrequency*float64(i)/float64(sampleRate))
	}

	// Self-test failures are reported through caps, not logged
	provider := NewPreciseProvider(cfg, &logging.NoOpLogger{})
	result := provider.Estimate(context.Background(), transcode.NewWaveform(samples, sampleRate))

	caps := Capabilities{
		ProbeHNR:    result.HNR,
		ProbeJitter: result.Jitter,
	}
	switch {
	case !result.HNR.Valid:
		caps.Reason = "self-test produced no HNR"
	case !result.Jitter.Valid:
		caps.Reason = "self-test produced no jitter"
	default:
		caps.Precise = true
	}

	logger.Debug("Probed harmonicity capabilities", logging.Fields{
		"precise":      caps.Precise,
		"reason":       caps.Reason,
		"probe_hnr":    caps.ProbeHNR.String(),
		"probe_jitter": caps.ProbeJitter.String(),
	})

	return caps
}

// HarmonicityEstimator prefers the precise provider when the capabilities allow it
// and takes HNR from the heuristic provider whenever the precise one has none
type HarmonicityEstimator struct {
	precise   HarmonicityProvider
	heuristic HarmonicityProvider
	logger    logging.Logger
}

// NewHarmonicityEstimator builds the providers selected by caps
func NewHarmonicityEstimator(cfg HarmonicityConfig, caps Capabilities, logger logging.Logger) *HarmonicityEstimator {
	var precise HarmonicityProvider
	if caps.Precise {
		precise = NewPreciseProvider(cfg, logger)
	}
	return NewHarmonicityEstimatorWith(precise, NewHeuristicProvider(cfg.HPSS, logger), logger)
}

// NewHarmonicityEstimatorWith composes arbitrary providers; precise may be nil
func NewHarmonicityEstimatorWith(precise, heuristic HarmonicityProvider, logger logging.Logger) *HarmonicityEstimator {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &HarmonicityEstimator{
		precise:   precise,
		heuristic: heuristic,
		logger:    logging.ForStage(logger, "harmonicity"),
	}
}

// Estimate returns jitter and shimmer from the precise provider (absent without
// it) and HNR from whichever provider produced one first
func (e *HarmonicityEstimator) Estimate(ctx context.Context, waveform *transcode.Waveform) HarmonicityResult {
	result := HarmonicityResult{Source: SourceNone}

	if e.precise != nil {
		result = e.precise.Estimate(ctx, waveform)
	}

	if !result.HNR.Valid && e.heuristic != nil {
		fallback := e.heuristic.Estimate(ctx, waveform)
		result.HNR = fallback.HNR
		result.Source = fallback.Source
		if e.precise != nil {
			e.logger.Debug("Precise HNR unavailable, using heuristic", logging.Fields{
				"hnr": result.HNR.String(),
			})
		}
	}

	return result
}
