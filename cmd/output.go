package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/RyanBlaney/vocalytics/analysis"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

var titleCaser = cases.Title(language.English)

// formatLabel turns a summary key such as "hnr_db" into "Hnr Db"
func formatLabel(key string) string {
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "n/a"
	case float64:
		return fmt.Sprintf("%.4f", val)
	default:
		return fmt.Sprint(val)
	}
}

// report is the serialized form of one analysis
type report struct {
	File    string                `json:"file,omitempty" yaml:"file,omitempty"`
	Summary *analysis.Summary     `json:"summary" yaml:"summary"`
	Frames  *analysis.FrameBundle `json:"frames,omitempty" yaml:"frames,omitempty"`
}

func writeReport(w io.Writer, format string, r report) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(r)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(r); err != nil {
			return err
		}
		return encoder.Close()
	case "table":
		return writeTable(w, r)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func writeTable(w io.Writer, r report) error {
	if r.File != "" {
		fmt.Fprintf(w, "Voice analysis: %s\n\n", r.File)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	values := r.Summary.AsMap()
	for _, key := range analysis.SummaryKeys {
		fmt.Fprintf(tw, "%s\t%s\n", formatLabel(key), formatValue(values[key]))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.Frames != nil {
		fmt.Fprintf(w, "\n%s\n", r.Frames.String())
	}
	return nil
}
