// Package export projects the merged requirement collection into a row-oriented table
// and serializes it as a spreadsheet or CSV.
package export

import (
	"strings"
	"time"

	"github.com/hyperjump/reqmerge/internal/models"
)

// Fixed header cells.
const (
	HeaderIdentifier  = "Identifier"
	HeaderDescription = "Description"
	HeaderService     = "Service"
	// LabelHeaderPrefix precedes the label in each per-source column header.
	LabelHeaderPrefix = "Cadence "
)

// Options selects what the projection includes.
type Options struct {
	// Labels lists the source labels to include, in column order. Labels may be
	// wrapped in single or double quotes. Empty means every known label.
	Labels         []string
	IncludeService bool
}

// Table is a header row plus one row per requirement.
type Table struct {
	Header []string
	Rows   [][]string
}

// Project builds the export table. Rows follow the collection's order.
func Project(coll *models.Collection, labels []models.SourceLabel, opts Options) Table {
	selected := SelectLabels(labels, opts.Labels)

	header := []string{HeaderIdentifier, HeaderDescription}
	for _, l := range selected {
		header = append(header, LabelHeaderPrefix+l)
	}
	if opts.IncludeService {
		header = append(header, HeaderService)
	}

	t := Table{Header: header, Rows: make([][]string, 0, coll.Len())}
	for _, r := range coll.All() {
		row := make([]string, 0, len(header))
		row = append(row, r.ID, string(r.Kind))
		for _, l := range selected {
			row = append(row, r.Body(l))
		}
		if opts.IncludeService {
			row = append(row, r.Service)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// SelectLabels resolves a requested label list against the known labels. Quotes and
// surrounding blanks are stripped and duplicates dropped; an empty request selects all
// known labels in their original order.
func SelectLabels(known []models.SourceLabel, requested []string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(l string) {
		if l == "" || seen[l] {
			return
		}
		seen[l] = true
		out = append(out, l)
	}
	for _, r := range requested {
		add(Unquote(r))
	}
	if len(out) > 0 {
		return out
	}
	for _, l := range known {
		add(l.Label)
	}
	return out
}

// Unquote trims blanks and one pair of matching single or double quotes.
func Unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

// Filename returns the export file name for a timestamp, e.g.
// Requirements_Export_2024-03-01T14-05-09.xlsx.
func Filename(now time.Time, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return "Requirements_Export_" + now.UTC().Format("2006-01-02T15-04-05") + "." + ext
}
