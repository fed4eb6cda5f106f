package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging defaults, the config file,
VOCALYTICS_* environment variables and command line flags.

Examples:
  vocalytics config
  VOCALYTICS_PITCH_MAX_FREQ=400 vocalytics config
  vocalytics --config ./vocalytics.yaml config`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()

	source := appViper.ConfigFileUsed()
	if source == "" {
		source = "defaults and environment"
	}
	fmt.Fprintf(w, "# source: %s\n", source)

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(appViper.AllSettings()); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return encoder.Close()
}

func printSection(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
}

func printKeyValue(w io.Writer, key, value string) {
	if value == "" {
		fmt.Fprintf(w, "%-25s\n", key)
	} else {
		fmt.Fprintf(w, "%-25s %s\n", key+":", value)
	}
}
