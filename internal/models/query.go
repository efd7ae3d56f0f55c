package models

import "fmt"

// SortField is a column the requirement list can be ordered by.
type SortField string

const (
	SortByID      SortField = "id"
	SortByKind    SortField = "kind"
	SortByService SortField = "service"
)

// RequirementQuery filters and orders the reviewed requirement list.
type RequirementQuery struct {
	Term       string    `json:"term,omitempty"`  // matched against id, kind, service, and body text
	Label      string    `json:"label,omitempty"` // keep only requirements with a body for this label
	SortBy     SortField `json:"sort_by,omitempty"`
	Descending bool      `json:"descending,omitempty"`
	Limit      int       `json:"limit,omitempty"` // 0 means no limit
	Fuzzy      bool      `json:"fuzzy,omitempty"`
}

// Validate normalizes defaults and rejects unknown sort fields.
func (q *RequirementQuery) Validate() error {
	switch q.SortBy {
	case "":
		q.SortBy = SortByID
	case SortByID, SortByKind, SortByService:
	default:
		return fmt.Errorf("unknown sort field %q", q.SortBy)
	}
	if q.Limit < 0 {
		q.Limit = 0
	}
	if q.Label == "all" {
		q.Label = ""
	}
	return nil
}

// RequirementResponse is the filtered, ordered requirement list.
type RequirementResponse struct {
	Requirements []*Requirement `json:"requirements"`
	Labels       []SourceLabel  `json:"labels"`
	// Total is the number of matches before Limit was applied.
	Total int    `json:"total"`
	Query string `json:"query,omitempty"`
	// DidYouMean is a corrected term when a non-empty term matched nothing.
	DidYouMean string `json:"did_you_mean,omitempty"`
	QueryTime  int64  `json:"query_time_ms"`
}
