package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/RyanBlaney/vocalytics/algorithms/spectral"
	"github.com/RyanBlaney/vocalytics/algorithms/temporal"
	"github.com/RyanBlaney/vocalytics/algorithms/tonal"
	"github.com/RyanBlaney/vocalytics/logging"
	"github.com/RyanBlaney/vocalytics/transcode"
)

// Analyzer turns encoded voice clips into a Summary and its FrameBundle.
// It holds no per-call state and may be shared between goroutines.
type Analyzer struct {
	config       Config
	decoder      *transcode.Decoder
	capabilities Capabilities
	harmonicity  *HarmonicityEstimator
	logger       logging.Logger
}

// NewAnalyzer validates cfg and probes the harmonicity capabilities once
func NewAnalyzer(cfg Config, logger logging.Logger) (*Analyzer, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	caps := ProbeCapabilities(cfg.Harmonicity, cfg.Decoder.TargetSampleRate, logger)
	return NewAnalyzerWithCapabilities(cfg, caps, logger)
}

// NewAnalyzerWithCapabilities skips the probe and uses caps as given
func NewAnalyzerWithCapabilities(cfg Config, caps Capabilities, logger logging.Logger) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis configuration: %w", err)
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	decoderConfig := cfg.Decoder
	decoder := transcode.NewDecoder(&decoderConfig)
	if err := decoder.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("invalid decoder configuration: %w", err)
	}

	return &Analyzer{
		config:       cfg,
		decoder:      decoder,
		capabilities: caps,
		harmonicity:  NewHarmonicityEstimator(cfg.Harmonicity, caps, logger),
		logger: logger.WithFields(logging.Fields{
			logging.FieldComponent: "voice_analyzer",
		}),
	}, nil
}

// Capabilities returns the probed harmonicity capabilities
func (a *Analyzer) Capabilities() Capabilities {
	return a.capabilities
}

// Config returns the analyzer configuration
func (a *Analyzer) Config() Config {
	return a.config
}

// Decoder returns the audio loader used by Analyze
func (a *Analyzer) Decoder() *transcode.Decoder {
	return a.decoder
}

// Analyze decodes audio bytes (format sniffed from content) and analyzes them.
// Decode failures match ErrUnreadableAudio; later faults match ErrAnalysisFailed.
func (a *Analyzer) Analyze(ctx context.Context, audio []byte) (*Summary, *FrameBundle, error) {
	waveform, err := a.decoder.DecodeBytes(ctx, audio)
	if err != nil {
		a.logger.Debug("Decode failed", logging.Fields{
			"bytes": len(audio),
			"error": err.Error(),
		})
		return nil, nil, fmt.Errorf("decode audio: %w", err)
	}
	return a.AnalyzeWaveform(ctx, waveform)
}

// AnalyzeFile reads and analyzes an audio file
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*Summary, *FrameBundle, error) {
	waveform, err := a.decoder.DecodeFile(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return a.AnalyzeWaveform(ctx, waveform)
}

// AnalyzeWaveform runs every extractor on an already decoded waveform.
// Every extractor, the voice report included, reads the waveform at its own
// sample rate. No partial summary is returned on error.
func (a *Analyzer) AnalyzeWaveform(ctx context.Context, waveform *transcode.Waveform) (summary *Summary, bundle *FrameBundle, err error) {
	if waveform == nil || waveform.Len() == 0 {
		return nil, nil, transcode.NewAudioError(transcode.ErrCodeNoSamples, "", "waveform has no samples", nil)
	}
	if waveform.SampleRate <= 0 {
		return nil, nil, transcode.NewAudioError(transcode.ErrCodeInvalidHeader, "", fmt.Sprintf("invalid sample rate %d", waveform.SampleRate), nil)
	}

	logger := a.logger.WithContext(ctx).WithFields(logging.Fields{
		logging.FieldFunction:   "AnalyzeWaveform",
		logging.FieldSampleRate: waveform.SampleRate,
		"samples":               waveform.Len(),
	})

	defer func() {
		if r := recover(); r != nil {
			summary, bundle = nil, nil
			err = stageError("pipeline", fmt.Errorf("panic: %v", r))
			logger.Error(err, "Analysis panicked")
		}
	}()

	start := time.Now()
	logger.Debug("Starting voice analysis")

	sr := waveform.SampleRate
	frame := a.config.Frame
	signal := waveform.Float64()

	rms := temporal.NewEnergy(frame.FrameLength, frame.HopLength).ComputeRMS(signal)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var pitch *tonal.PitchEstimate
	if temporal.IsSilent(rms, 0) {
		logger.Debug("Silent input, skipping pitch tracking")
		pitch = tonal.UnvoicedEstimate(len(rms), tonal.MethodSilence)
	} else {
		tracker := tonal.NewTracker(a.config.trackerConfig(sr), logging.ForStage(logger, "pitch"))
		pitch, err = tracker.Track(signal)
		if err != nil {
			return nil, nil, stageError("pitch", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	spectralAnalyzer := spectral.NewAnalyzer(sr, frame.FrameLength, frame.HopLength)
	spectralAnalyzer.SetRolloffPercent(a.config.Spectral.RolloffPercent)
	features, err := spectralAnalyzer.Analyze(signal)
	if err != nil {
		return nil, nil, stageError("spectral", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	harmonicity := a.harmonicity.Estimate(ctx, waveform)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	summary = Aggregate(AggregateInput{
		Duration:    waveform.Seconds(),
		SampleRate:  sr,
		RMS:         rms,
		Pitch:       pitch,
		Spectral:    features,
		Harmonicity: harmonicity,
	})
	if !summary.finite() {
		return nil, nil, stageError("aggregate", fmt.Errorf("non-finite metric in summary"))
	}

	bundle = &FrameBundle{
		Time:              spectral.FrameTimes(len(rms), frame.HopLength, sr),
		RMS:               rms,
		F0:                pitch.F0,
		Voiced:            pitch.Voiced,
		Centroid:          features.Centroid,
		Bandwidth:         features.Bandwidth,
		Rolloff:           features.Rolloff,
		Flatness:          features.Flatness,
		SampleRate:        sr,
		HopLength:         frame.HopLength,
		PitchMethod:       pitch.Method,
		HarmonicitySource: harmonicity.Source,
	}

	logger.Debug("Voice analysis completed", logging.Fields{
		"frames":       len(rms),
		"voiced_ratio": summary.VoicedRatio,
		"pitch_method": pitch.Method,
		"hnr_source":   harmonicity.Source,
		"elapsed":      time.Since(start).String(),
	})

	return summary, bundle, nil
}
