package analysis

import (
	"fmt"
	"strings"

	"github.com/RyanBlaney/vocalytics/algorithms/common"
)

// FrameBundle holds the per-frame series behind a Summary, time aligned on a
// shared hop, for plotting collaborators
type FrameBundle struct {
	Time      []float64          `json:"time" yaml:"time"`
	RMS       []float64          `json:"rms" yaml:"rms"`
	F0        []common.NullFloat `json:"f0" yaml:"f0"`
	Voiced    []bool             `json:"voiced" yaml:"voiced"`
	Centroid  []float64          `json:"centroid" yaml:"centroid"`
	Bandwidth []float64          `json:"bandwidth" yaml:"bandwidth"`
	Rolloff   []float64          `json:"rolloff" yaml:"rolloff"`
	Flatness  []float64          `json:"flatness" yaml:"flatness"`

	SampleRate int `json:"sample_rate" yaml:"sample_rate"`
	HopLength  int `json:"hop_length" yaml:"hop_length"`

	PitchMethod       string `json:"pitch_method" yaml:"pitch_method"`
	HarmonicitySource string `json:"harmonicity_source" yaml:"harmonicity_source"`
}

// Frames returns the number of frames on the time axis
func (b *FrameBundle) Frames() int {
	return len(b.Time)
}

func describeSeries(sb *strings.Builder, name string, values []float64) {
	if len(values) == 0 {
		fmt.Fprintf(sb, "%s: no frames\n", name)
		return
	}
	fmt.Fprintf(sb, "%s: %d frames, min %.4g, mean %.4g, max %.4g\n",
		name, len(values), common.Min(values), common.Mean(values), common.Max(values))
}

// String renders a short text description of the series for report prompts
func (b *FrameBundle) String() string {
	var sb strings.Builder

	duration := 0.0
	if n := len(b.Time); n > 0 {
		duration = b.Time[n-1]
	}
	fmt.Fprintf(&sb, "frames: %d (hop %d at %d Hz, last frame at %.2fs)\n",
		b.Frames(), b.HopLength, b.SampleRate, duration)

	describeSeries(&sb, "rms", b.RMS)

	voiced := common.ValidValues(b.F0)
	if len(voiced) == 0 {
		fmt.Fprintf(&sb, "f0 (%s): no voiced frames of %d\n", b.PitchMethod, len(b.F0))
	} else {
		fmt.Fprintf(&sb, "f0 (%s): %d voiced frames of %d, min %.1f Hz, median %.1f Hz, max %.1f Hz\n",
			b.PitchMethod, len(voiced), len(b.F0), common.Min(voiced), common.Median(voiced), common.Max(voiced))
	}

	describeSeries(&sb, "centroid", b.Centroid)
	describeSeries(&sb, "bandwidth", b.Bandwidth)
	describeSeries(&sb, "rolloff", b.Rolloff)
	describeSeries(&sb, "flatness", b.Flatness)
	fmt.Fprintf(&sb, "hnr source: %s", b.HarmonicitySource)

	return sb.String()
}
