// Package cli renders reqmerge results for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/reqmerge/internal/export"
	"github.com/hyperjump/reqmerge/internal/indexer"
	"github.com/hyperjump/reqmerge/internal/models"
	"github.com/hyperjump/reqmerge/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// bodyPreviewLen bounds each body shown in text output.
const bodyPreviewLen = 120

// ParseOutputFormat accepts "text", "json" or "" (text).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("invalid output format %q (use text or json)", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRequirements writes a requirement list to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteRequirements(w io.Writer, response *models.RequirementResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	shown := len(response.Requirements)
	if shown == response.Total {
		fmt.Fprintf(w, "\nFound %d requirements in %dms\n\n", response.Total, response.QueryTime)
	} else {
		fmt.Fprintf(w, "\nShowing %d of %d requirements (%dms)\n\n", shown, response.Total, response.QueryTime)
	}
	if response.DidYouMean != "" {
		fmt.Fprintf(w, "Did you mean: %s\n\n", response.DidYouMean)
	}
	for _, r := range response.Requirements {
		writeOneRequirement(w, r, response.Labels)
	}
	return nil
}

func writeOneRequirement(w io.Writer, r *models.Requirement, labels []models.SourceLabel) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "%s [%s]", r.ID, r.Kind)
	if r.Service != "" {
		fmt.Fprintf(w, " service: %s", r.Service)
	}
	fmt.Fprintln(w)
	for _, l := range labels {
		body := r.Body(l.Label)
		if body == "" {
			body = "-"
		}
		fmt.Fprintf(w, "  %-10s %s\n", l.Label, utils.Truncate(utils.SingleLine(body), bodyPreviewLen))
	}
	fmt.Fprintln(w)
}

// WriteSummary writes the outcome of an extraction run.
func WriteSummary(w io.Writer, summary *indexer.Summary, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, summary)
	}
	fmt.Fprintln(w, summary.Message)
	for _, d := range summary.Documents {
		switch {
		case d.Error != "":
			fmt.Fprintf(w, "  FAILED  %s: %s\n", d.Filename, d.Error)
		case d.Positional:
			fmt.Fprintf(w, "  ok      %s -> %s (by position), %d anchors\n", d.Filename, d.Label, d.Hits)
		default:
			fmt.Fprintf(w, "  ok      %s -> %s, %d anchors\n", d.Filename, d.Label, d.Hits)
		}
	}
	if !summary.Stored {
		fmt.Fprintln(w, "No document could be read; the previous result was kept.")
	}
	return nil
}

// WriteLabels writes the source labels in input order.
func WriteLabels(w io.Writer, labels []models.SourceLabel, format OutputFormat) error {
	if format == OutputJSON {
		if labels == nil {
			labels = []models.SourceLabel{}
		}
		return writeJSON(w, labels)
	}
	if len(labels) == 0 {
		fmt.Fprintln(w, "No labels. Run extract first.")
		return nil
	}
	for _, l := range labels {
		suffix := ""
		if l.Positional {
			suffix = " (by position)"
		}
		fmt.Fprintf(w, "%-10s %s%s\n", l.Label, l.Filename, suffix)
	}
	return nil
}

// WriteRequirement writes a single requirement with full bodies.
func WriteRequirement(w io.Writer, r *models.Requirement, labels []models.SourceLabel, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, r)
	}
	fmt.Fprintf(w, "%s [%s]\n", r.ID, r.Kind)
	fmt.Fprintf(w, "Service: %s\n", r.Service)
	for _, l := range labels {
		fmt.Fprintf(w, "\n%s%s:\n", export.LabelHeaderPrefix, l.Label)
		if body := r.Body(l.Label); body != "" {
			fmt.Fprintln(w, body)
		} else {
			fmt.Fprintln(w, "-")
		}
	}
	return nil
}
