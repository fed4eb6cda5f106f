package analysis

import (
	"fmt"

	"github.com/RyanBlaney/vocalytics/algorithms/harmonic"
	"github.com/RyanBlaney/vocalytics/algorithms/spectral"
	"github.com/RyanBlaney/vocalytics/algorithms/speech"
	"github.com/RyanBlaney/vocalytics/algorithms/tonal"
	"github.com/RyanBlaney/vocalytics/transcode"
)

// FrameConfig is the framing shared by the energy, pitch and spectral series
type FrameConfig struct {
	FrameLength int `json:"frame_length" mapstructure:"frame_length"`
	HopLength   int `json:"hop_length" mapstructure:"hop_length"`
}

// PitchConfig bounds the f0 search
type PitchConfig struct {
	MinFreq float64 `json:"min_freq" mapstructure:"min_freq"`
	MaxFreq float64 `json:"max_freq" mapstructure:"max_freq"`
}

// SpectralConfig holds spectral descriptor settings
type SpectralConfig struct {
	RolloffPercent float64 `json:"rolloff_percent" mapstructure:"rolloff_percent"`
}

// HarmonicityConfig configures both harmonicity providers
type HarmonicityConfig struct {
	EnablePrecise    bool                `json:"enable_precise" mapstructure:"enable_precise"`
	TimeStep         float64             `json:"time_step" mapstructure:"time_step"`
	MinPitch         float64             `json:"min_pitch" mapstructure:"min_pitch"`
	MaxPitch         float64             `json:"max_pitch" mapstructure:"max_pitch"`
	SilenceThreshold float64             `json:"silence_threshold" mapstructure:"silence_threshold"`
	PeriodsPerWindow float64             `json:"periods_per_window" mapstructure:"periods_per_window"`
	HPSS             harmonic.HPSSParams `json:"hpss" mapstructure:"hpss"`
}

// Config holds everything the pipeline needs
type Config struct {
	Decoder     transcode.DecoderConfig `json:"decoder" mapstructure:"decoder"`
	Frame       FrameConfig             `json:"frame" mapstructure:"frame"`
	Pitch       PitchConfig             `json:"pitch" mapstructure:"pitch"`
	Spectral    SpectralConfig          `json:"spectral" mapstructure:"spectral"`
	Harmonicity HarmonicityConfig       `json:"harmonicity" mapstructure:"harmonicity"`
}

// DefaultConfig returns the speech defaults: 16 kHz, 2048/256 frames,
// 50-500 Hz pitch search, precise harmonicity enabled
func DefaultConfig() Config {
	voice := speech.DefaultVoiceReportParams(0)
	return Config{
		Decoder: *transcode.DefaultDecoderConfig(),
		Frame: FrameConfig{
			FrameLength: 2048,
			HopLength:   256,
		},
		Pitch: PitchConfig{
			MinFreq: 50.0,
			MaxFreq: 500.0,
		},
		Spectral: SpectralConfig{
			RolloffPercent: spectral.DefaultRolloffPercent,
		},
		Harmonicity: HarmonicityConfig{
			EnablePrecise:    true,
			TimeStep:         voice.TimeStep,
			MinPitch:         voice.MinPitch,
			MaxPitch:         voice.MaxPitch,
			SilenceThreshold: voice.SilenceThreshold,
			PeriodsPerWindow: voice.PeriodsPerWindow,
			HPSS:             harmonic.DefaultHPSSParams(),
		},
	}
}

// Validate checks the configuration for values the pipeline cannot run with
func (c Config) Validate() error {
	if c.Decoder.TargetSampleRate <= 0 {
		return fmt.Errorf("target sample rate must be positive")
	}
	if c.Frame.FrameLength <= 0 || c.Frame.HopLength <= 0 {
		return fmt.Errorf("frame length and hop length must be positive")
	}
	if c.Frame.HopLength > c.Frame.FrameLength {
		return fmt.Errorf("hop length (%d) cannot exceed frame length (%d)", c.Frame.HopLength, c.Frame.FrameLength)
	}
	if c.Pitch.MinFreq <= 0 || c.Pitch.MaxFreq <= c.Pitch.MinFreq {
		return fmt.Errorf("pitch range must satisfy 0 < min_freq < max_freq")
	}
	if c.Spectral.RolloffPercent <= 0 || c.Spectral.RolloffPercent >= 1 {
		return fmt.Errorf("rolloff percent must be between 0 and 1")
	}

	h := c.Harmonicity
	if h.TimeStep <= 0 || h.MinPitch <= 0 || h.MaxPitch <= h.MinPitch || h.PeriodsPerWindow <= 0 {
		return fmt.Errorf("invalid harmonicity analysis settings")
	}
	if h.SilenceThreshold < 0 || h.SilenceThreshold >= 1 {
		return fmt.Errorf("silence threshold must be in [0, 1)")
	}
	if h.HPSS.WindowSize <= 0 || h.HPSS.HopSize <= 0 || h.HPSS.KernelSize <= 0 {
		return fmt.Errorf("HPSS window, hop and kernel sizes must be positive")
	}

	return nil
}

// trackerConfig maps the pipeline settings onto the pitch tracker at sampleRate
func (c Config) trackerConfig(sampleRate int) tonal.TrackerConfig {
	cfg := tonal.DefaultTrackerConfig(sampleRate)
	cfg.FrameLength = c.Frame.FrameLength
	cfg.HopLength = c.Frame.HopLength
	cfg.MinFreq = c.Pitch.MinFreq
	cfg.MaxFreq = c.Pitch.MaxFreq
	return cfg
}

// voiceReportParams maps the harmonicity settings onto the voice report at sampleRate
func (h HarmonicityConfig) voiceReportParams(sampleRate int) speech.VoiceReportParams {
	params := speech.DefaultVoiceReportParams(sampleRate)
	params.TimeStep = h.TimeStep
	params.MinPitch = h.MinPitch
	params.MaxPitch = h.MaxPitch
	params.SilenceThreshold = h.SilenceThreshold
	params.PeriodsPerWindow = h.PeriodsPerWindow
	return params
}
