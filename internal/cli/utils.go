// Package cli provides output helpers for the essayscore CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hyperjump/essayscore/internal/models"
	"github.com/hyperjump/essayscore/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

// WriteScoreResults writes a scored exam to w in the given format. The JSON
// form is the same document the HTTP API returns.
func WriteScoreResults(w io.Writer, result *models.BatchResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, result)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tQUESTION\tSIMILARITY\tSCORE")
	for i, r := range result.Results {
		qid := r.QuestionID
		if qid == "" {
			qid = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%.4f\t%d/%d\n", i+1, utils.Truncate(qid, 32), r.SimilarityScore, r.FinalScore, r.MaxScore)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nTotal: %d/%d", result.TotalScore, result.TotalMaxScore)
	if result.TotalMaxScore > 0 {
		fmt.Fprintf(w, " (%.1f%%)", 100*float64(result.TotalScore)/float64(result.TotalMaxScore))
	}
	fmt.Fprintln(w)
	return nil
}

// WriteHealth writes a health report to w in the given format.
func WriteHealth(w io.Writer, h *models.HealthResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, h)
	}
	fmt.Fprintf(w, "Status:       %s\n", h.Status)
	fmt.Fprintf(w, "Model state:  %s\n", h.ModelState)
	fmt.Fprintf(w, "Model source: %s\n", h.ModelSource)
	if h.ModelID != "" {
		fmt.Fprintf(w, "Model ID:     %s\n", h.ModelID)
	}
	if h.ModelFiles > 0 {
		fmt.Fprintf(w, "Model files:  %d (%s)\n", h.ModelFiles, FormatBytes(h.ModelDiskBytes))
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
