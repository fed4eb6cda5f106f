package cmd

import (
	"fmt"
	"os"

	"github.com/RyanBlaney/vocalytics/configs"
	"github.com/RyanBlaney/vocalytics/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	configFile   string
	logLevel     string
	logFormat    string
	outputFormat string

	appViper  *viper.Viper
	appConfig *configs.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vocalytics",
	Short: "Voice quality feature extraction",
	Long: `Vocalytics extracts acoustic features from a short voice clip and derives
bounded perceptual scores for tone, wetness, softness and strain.

Key features:
- WAV decoding built in, MP3/OGG/OPUS/FLAC/M4A through ffmpeg
- Probabilistic YIN pitch tracking with a spectral fallback
- Spectral centroid, bandwidth, rolloff and flatness
- HNR, jitter and shimmer from a voice report, HPSS fallback for HNR
- JSON, YAML and table output`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is ./vocalytics.yaml or $HOME/.config/vocalytics/vocalytics.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format (text, json)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table",
		"output format (json, yaml, table)")
}

// initializeConfig loads the configuration after flags are parsed and installs the logger
func initializeConfig(cmd *cobra.Command) error {
	v, err := configs.NewViper(configFile)
	if err != nil {
		return err
	}

	if err := bindFlags(cmd, v); err != nil {
		return err
	}

	config, err := configs.LoadConfig(v)
	if err != nil {
		return err
	}

	logger, err := config.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logging.SetGlobalLogger(logger)

	appViper = v
	appConfig = config
	return nil
}

// flagKeys maps flag names onto configuration keys
var flagKeys = map[string]string{
	"log-level":   "log_level",
	"log-format":  "log_format",
	"output":      "output_format",
	"sample-rate": "decoder.target_sample_rate",
}

// bindFlags binds each mapped cobra flag to its viper configuration key.
// Flags only take precedence when set on the command line.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			lastErr = err
		}
	})

	return lastErr
}
