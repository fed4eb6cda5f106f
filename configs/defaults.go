package configs

import (
	"github.com/RyanBlaney/vocalytics/analysis"
	"github.com/spf13/viper"
)

// SetDefaults registers default values for every configuration key
func SetDefaults(v *viper.Viper) {
	d := analysis.DefaultConfig()

	// Application defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("output_format", "table")

	// Decoder defaults
	v.SetDefault("decoder.target_sample_rate", d.Decoder.TargetSampleRate)
	v.SetDefault("decoder.max_duration", d.Decoder.MaxDuration)
	v.SetDefault("decoder.resample_quality", string(d.Decoder.ResampleQuality))
	v.SetDefault("decoder.ffmpeg_path", d.Decoder.FFmpegPath)
	v.SetDefault("decoder.ffprobe_path", d.Decoder.FFprobePath)
	v.SetDefault("decoder.timeout", d.Decoder.Timeout)

	// Framing shared by energy, pitch and spectral series
	v.SetDefault("frame.frame_length", d.Frame.FrameLength)
	v.SetDefault("frame.hop_length", d.Frame.HopLength)

	// Pitch search range
	v.SetDefault("pitch.min_freq", d.Pitch.MinFreq)
	v.SetDefault("pitch.max_freq", d.Pitch.MaxFreq)

	v.SetDefault("spectral.rolloff_percent", d.Spectral.RolloffPercent)

	// Harmonicity defaults
	v.SetDefault("harmonicity.enable_precise", d.Harmonicity.EnablePrecise)
	v.SetDefault("harmonicity.time_step", d.Harmonicity.TimeStep)
	v.SetDefault("harmonicity.min_pitch", d.Harmonicity.MinPitch)
	v.SetDefault("harmonicity.max_pitch", d.Harmonicity.MaxPitch)
	v.SetDefault("harmonicity.silence_threshold", d.Harmonicity.SilenceThreshold)
	v.SetDefault("harmonicity.periods_per_window", d.Harmonicity.PeriodsPerWindow)
	v.SetDefault("harmonicity.hpss.window_size", d.Harmonicity.HPSS.WindowSize)
	v.SetDefault("harmonicity.hpss.hop_size", d.Harmonicity.HPSS.HopSize)
	v.SetDefault("harmonicity.hpss.kernel_size", d.Harmonicity.HPSS.KernelSize)
	v.SetDefault("harmonicity.hpss.power", d.Harmonicity.HPSS.Power)
	v.SetDefault("harmonicity.hpss.margin", d.Harmonicity.HPSS.Margin)
}
