package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/RyanBlaney/vocalytics/analysis"
	"github.com/RyanBlaney/vocalytics/logging"
	"github.com/spf13/cobra"
)

var (
	analyzeFrames     bool
	analyzeSampleRate int
	analyzeNoPrecise  bool
	analyzeTimeout    time.Duration
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze a voice clip and print its metrics summary",
	Long: `Decode an audio clip, extract energy, pitch, spectral and harmonicity
features, and print the metrics summary with its perceptual scores.

The container is detected from the file content, not its extension.

Examples:
  # Table output
  vocalytics analyze sample.wav

  # JSON with the per-frame series
  vocalytics analyze -o json --frames sample.mp3

  # Read the clip from stdin
  cat sample.wav | vocalytics analyze -

  # Skip the voice report and use the HPSS estimate for HNR only
  vocalytics analyze --no-precise sample.ogg`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolVar(&analyzeFrames, "frames", false,
		"include the per-frame series in the output")
	analyzeCmd.Flags().IntVar(&analyzeSampleRate, "sample-rate", 16000,
		"analysis sample rate in Hz")
	analyzeCmd.Flags().BoolVar(&analyzeNoPrecise, "no-precise", false,
		"disable the voice report provider (jitter and shimmer become unavailable)")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 2*time.Minute,
		"timeout for the whole analysis")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]

	logger := logging.WithFields(logging.Fields{
		"command": "analyze",
		"file":    path,
	})

	cfg := appConfig.Analysis()
	if analyzeNoPrecise {
		cfg.Harmonicity.EnablePrecise = false
	}

	analyzer, err := analysis.NewAnalyzer(cfg, logger)
	if err != nil {
		return err
	}

	caps := analyzer.Capabilities()
	if !caps.Precise {
		logger.Info("Voice report unavailable, jitter and shimmer will be empty", logging.Fields{
			"reason": caps.Reason,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	start := time.Now()
	var (
		summary *analysis.Summary
		bundle  *analysis.FrameBundle
	)
	if path == "-" {
		waveform, err := analyzer.Decoder().DecodeReader(ctx, cmd.InOrStdin())
		if err != nil {
			return err
		}
		summary, bundle, err = analyzer.AnalyzeWaveform(ctx, waveform)
		if err != nil {
			return err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		summary, bundle, err = analyzer.Analyze(ctx, data)
		if err != nil {
			return err
		}
	}

	logger.Debug("Analysis finished", logging.Fields{
		"elapsed":     time.Since(start).String(),
		"duration":    summary.Duration,
		"hnr_source":  bundle.HarmonicitySource,
		"pitch_track": bundle.PitchMethod,
	})

	r := report{File: path, Summary: summary}
	if analyzeFrames {
		r.Frames = bundle
	}
	return writeReport(cmd.OutOrStdout(), appConfig.OutputFormat, r)
}
