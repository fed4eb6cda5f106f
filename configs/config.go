package configs

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/RyanBlaney/vocalytics/analysis"
	"github.com/RyanBlaney/vocalytics/logging"
	"github.com/RyanBlaney/vocalytics/transcode"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. VOCALYTICS_DECODER_TARGET_SAMPLE_RATE
const EnvPrefix = "VOCALYTICS"

// Config represents the application configuration
type Config struct {
	// Application settings
	LogLevel     string `mapstructure:"log_level"`
	LogFormat    string `mapstructure:"log_format"`
	OutputFormat string `mapstructure:"output_format"`

	// Audio loading
	Decoder transcode.DecoderConfig `mapstructure:"decoder"`

	// Feature extraction
	Frame       analysis.FrameConfig       `mapstructure:"frame"`
	Pitch       analysis.PitchConfig       `mapstructure:"pitch"`
	Spectral    analysis.SpectralConfig    `mapstructure:"spectral"`
	Harmonicity analysis.HarmonicityConfig `mapstructure:"harmonicity"`
}

// Output formats understood by the CLI
var OutputFormats = []string{"json", "yaml", "table"}

// Log formats understood by the CLI
var LogFormats = []string{"text", "json"}

// NewViper returns a viper instance with defaults and environment overrides.
// When configFile is non-empty it is read; a missing default file is not an error.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		return v, nil
	}

	v.SetConfigName("vocalytics")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("$HOME/.config/vocalytics")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return v, nil
}

// LoadConfig decodes and validates the configuration held by v
func LoadConfig(v *viper.Viper) (*Config, error) {
	config := &Config{}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if _, err := logging.ParseLevel(config.LogLevel); err != nil {
		return err
	}

	if !slices.Contains(LogFormats, config.LogFormat) {
		return fmt.Errorf("log format must be one of %v, got %q", LogFormats, config.LogFormat)
	}

	if !slices.Contains(OutputFormats, config.OutputFormat) {
		return fmt.Errorf("output format must be one of %v, got %q", OutputFormats, config.OutputFormat)
	}

	switch config.Decoder.ResampleQuality {
	case transcode.ResampleFast, transcode.ResampleMedium, transcode.ResampleHigh:
	default:
		return fmt.Errorf("resample quality must be fast, medium or high, got %q", config.Decoder.ResampleQuality)
	}

	if err := config.Analysis().Validate(); err != nil {
		return fmt.Errorf("invalid analysis configuration: %w", err)
	}

	return nil
}

// Analysis returns the pipeline part of the configuration
func (c *Config) Analysis() analysis.Config {
	return analysis.Config{
		Decoder:     c.Decoder,
		Frame:       c.Frame,
		Pitch:       c.Pitch,
		Spectral:    c.Spectral,
		Harmonicity: c.Harmonicity,
	}
}

// Logger builds the logrus-backed logger described by the configuration
func (c *Config) Logger(out io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewLogrusLogger(out, level, c.LogFormat == "json"), nil
}
