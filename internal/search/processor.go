package search

import (
	"strings"

	"github.com/hyperjump/reqmerge/internal/models"
)

// ProcessQuery validates and applies defaults to the query.
func ProcessQuery(query *models.RequirementQuery) error {
	query.Term = strings.TrimSpace(query.Term)
	query.Label = strings.TrimSpace(query.Label)
	return query.Validate()
}

// matchesField reports whether term occurs in any of the requirement's short fields,
// ignoring case.
func matchesField(r *models.Requirement, term string) bool {
	term = strings.ToLower(term)
	for _, v := range []string{r.ID, string(r.Kind), r.Service} {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

// compareBy orders two requirements by field, case-insensitively first.
func compareBy(field models.SortField, a, b *models.Requirement) int {
	var x, y string
	switch field {
	case models.SortByKind:
		x, y = string(a.Kind), string(b.Kind)
	case models.SortByService:
		x, y = a.Service, b.Service
	default:
		x, y = a.ID, b.ID
	}
	if c := strings.Compare(strings.ToLower(x), strings.ToLower(y)); c != 0 {
		return c
	}
	return strings.Compare(x, y)
}
