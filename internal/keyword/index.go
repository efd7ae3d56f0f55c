// Package keyword provides full-text search over requirement bodies and services.
package keyword

import (
	"context"

	"github.com/hyperjump/reqmerge/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// Fuzzy enables typo-tolerant matching.
	Fuzzy bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2).
	// Default is 1 when Fuzzy is true; requirement text is short and identifiers are dense.
	Fuzziness int
}

// Index defines the full-text operations over the requirement collection.
type Index interface {
	// Replace drops every indexed requirement and indexes reqs.
	Replace(ctx context.Context, reqs []*models.Requirement) error
	// Update reindexes a single requirement, e.g. after its service changed.
	Update(ctx context.Context, req *models.Requirement) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error)
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword search hit.
type Result struct {
	ID    string
	Score float64
}

// TermDictionary provides access to the term dictionary for spell checking.
type TermDictionary interface {
	// GetAllTerms returns all unique terms in the index.
	GetAllTerms() ([]string, error)
	// GetTermFrequency returns the document frequency for a term.
	GetTermFrequency(term string) (int, error)
}
