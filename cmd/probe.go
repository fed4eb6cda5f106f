package cmd

import (
	"fmt"
	"strings"

	"github.com/RyanBlaney/vocalytics/analysis"
	"github.com/RyanBlaney/vocalytics/logging"
	"github.com/RyanBlaney/vocalytics/transcode"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Show which decoders and harmonicity providers are available",
	Long: `Run the startup capability checks and print the results: whether the
voice report passes its self-test on a synthetic 150 Hz tone, whether ffmpeg
and ffprobe can be executed, and which input formats can be decoded.`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg := appConfig.Analysis()
	w := cmd.OutOrStdout()

	caps := analysis.ProbeCapabilities(cfg.Harmonicity, cfg.Decoder.TargetSampleRate, logging.GetGlobalLogger())
	decoderConfig := cfg.Decoder
	decoder := transcode.NewDecoder(&decoderConfig)

	printSection(w, "HARMONICITY")
	printKeyValue(w, "Precise provider", fmt.Sprintf("%t", caps.Precise))
	if caps.Reason != "" {
		printKeyValue(w, "Reason", caps.Reason)
	}
	printKeyValue(w, "Self-test HNR (dB)", caps.ProbeHNR.String())
	printKeyValue(w, "Self-test jitter", caps.ProbeJitter.String())
	printKeyValue(w, "Heuristic provider", "true")

	printSection(w, "DECODER")
	ffmpeg := "available"
	if err := decoder.CheckFFmpegAvailability(); err != nil {
		ffmpeg = err.Error()
	}
	printKeyValue(w, "FFmpeg", ffmpeg)
	printKeyValue(w, "Target sample rate", fmt.Sprintf("%d Hz", cfg.Decoder.TargetSampleRate))
	printKeyValue(w, "Supported formats", strings.Join(decoder.GetSupportedFormats(), ", "))

	return nil
}
