package tonal

import (
	"fmt"

	"github.com/RyanBlaney/vocalytics/algorithms/common"
	"github.com/RyanBlaney/vocalytics/logging"
)

// Pitch tracking method names reported in PitchEstimate.Method
const (
	MethodPYIN        = "pyin"
	MethodPeakPicking = "peak_picking"
	MethodSilence     = "silence"
)

// PitchEstimate is a per-frame fundamental frequency series.
// Voiced[i] is true exactly when F0[i] holds a value.
type PitchEstimate struct {
	F0     []common.NullFloat `json:"f0"`
	Voiced []bool             `json:"voiced"`
	Method string             `json:"method"`
}

// Len returns the number of frames
func (pe *PitchEstimate) Len() int {
	return len(pe.F0)
}

// VoicedValues returns the f0 values of voiced frames
func (pe *PitchEstimate) VoicedValues() []float64 {
	return common.ValidValues(pe.F0)
}

// VoicedRatio returns the share of voiced frames, 0 for an empty estimate
func (pe *PitchEstimate) VoicedRatio() float64 {
	if len(pe.Voiced) == 0 {
		return 0
	}
	voiced := 0
	for _, v := range pe.Voiced {
		if v {
			voiced++
		}
	}
	return float64(voiced) / float64(len(pe.Voiced))
}

// UnvoicedEstimate returns a track of n unvoiced frames
func UnvoicedEstimate(n int, method string) *PitchEstimate {
	return &PitchEstimate{
		F0:     make([]common.NullFloat, n),
		Voiced: make([]bool, n),
		Method: method,
	}
}

// PitchTracker is any per-frame f0 estimator
type PitchTracker interface {
	Track(signal []float64) (*PitchEstimate, error)
}

// TrackerConfig holds the shared framing and search range of both estimators
type TrackerConfig struct {
	SampleRate  int     `json:"sample_rate"`
	FrameLength int     `json:"frame_length"`
	HopLength   int     `json:"hop_length"`
	MinFreq     float64 `json:"min_freq"`
	MaxFreq     float64 `json:"max_freq"`
}

// DefaultTrackerConfig returns the speech defaults (50-500 Hz, 2048/256)
func DefaultTrackerConfig(sampleRate int) TrackerConfig {
	return TrackerConfig{
		SampleRate:  sampleRate,
		FrameLength: 2048,
		HopLength:   256,
		MinFreq:     50.0,
		MaxFreq:     500.0,
	}
}

// Tracker runs the probabilistic tracker and falls back to spectral peak
// picking when it fails
type Tracker struct {
	primary  PitchTracker
	fallback PitchTracker
	logger   logging.Logger
}

// NewTracker builds the pYIN primary and peak-picking fallback for cfg
func NewTracker(cfg TrackerConfig, logger logging.Logger) *Tracker {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	logger = logger.WithFields(logging.Fields{
		"component": "pitch_tracker",
	})

	t := &Tracker{
		fallback: NewPeakPicker(cfg.SampleRate, cfg.FrameLength, cfg.HopLength, cfg.MinFreq, cfg.MaxFreq),
		logger:   logger,
	}

	params := DefaultPYINParams(cfg.SampleRate)
	params.FrameLength = cfg.FrameLength
	params.HopLength = cfg.HopLength
	params.MinFreq = cfg.MinFreq
	params.MaxFreq = cfg.MaxFreq

	pyin, err := NewPYIN(params)
	if err != nil {
		logger.Warn("pYIN unavailable for this configuration", logging.Fields{
			"error": err.Error(),
		})
	} else {
		t.primary = pyin
	}

	return t
}

// NewTrackerWith composes arbitrary estimators; primary may be nil
func NewTrackerWith(primary, fallback PitchTracker, logger logging.Logger) *Tracker {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Tracker{
		primary:  primary,
		fallback: fallback,
		logger:   logger.WithFields(logging.Fields{"component": "pitch_tracker"}),
	}
}

// Track returns the primary estimate, or the fallback's when the primary errors or panics
func (t *Tracker) Track(signal []float64) (*PitchEstimate, error) {
	if t.primary != nil {
		estimate, err := safeTrack(t.primary, signal)
		if err == nil {
			return estimate, nil
		}
		t.logger.Warn("Primary pitch tracker failed, using fallback", logging.Fields{
			"function": "Track",
			"error":    err.Error(),
		})
	}

	if t.fallback == nil {
		return nil, fmt.Errorf("no pitch tracker available")
	}

	estimate, err := safeTrack(t.fallback, signal)
	if err != nil {
		return nil, fmt.Errorf("fallback pitch tracker: %w", err)
	}
	return estimate, nil
}

func safeTrack(tracker PitchTracker, signal []float64) (estimate *PitchEstimate, err error) {
	defer func() {
		if r := recover(); r != nil {
			estimate = nil
			err = fmt.Errorf("pitch tracker panic: %v", r)
		}
	}()
	return tracker.Track(signal)
}
