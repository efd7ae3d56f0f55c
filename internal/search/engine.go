// Package search filters and orders the stored requirement collection.
package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hyperjump/reqmerge/internal/keyword"
	"github.com/hyperjump/reqmerge/internal/models"
	"github.com/hyperjump/reqmerge/internal/storage"
	"go.uber.org/zap"
)

// Engine answers requirement list queries from storage and the keyword index.
type Engine struct {
	storage      storage.Storage
	keywordIndex keyword.Index
	spell        *keyword.SpellChecker
	logger       *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSpellChecker enables "did you mean" suggestions for terms that match nothing.
func WithSpellChecker(s *keyword.SpellChecker) Option {
	return func(e *Engine) { e.spell = s }
}

// WithLogger sets a logger for keyword index failures.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(storage storage.Storage, keywordIndex keyword.Index, opts ...Option) *Engine {
	e := &Engine{storage: storage, keywordIndex: keywordIndex}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns the requirements matching query. A term matches when it occurs in
// the identifier, kind, or service (case-insensitive substring) or when the keyword
// index finds it in a body. Ordering is stable: ties keep extraction order.
func (e *Engine) Search(ctx context.Context, query *models.RequirementQuery) (*models.RequirementResponse, error) {
	startTime := time.Now()
	if err := ProcessQuery(query); err != nil {
		return nil, err
	}

	labels, coll, err := e.storage.LoadCollection(ctx)
	if err != nil {
		return nil, fmt.Errorf("load requirements: %w", err)
	}

	var bodyHits map[string]bool
	if query.Term != "" && e.keywordIndex != nil {
		results, err := e.keywordIndex.Search(ctx, query.Term, 0, &keyword.SearchOptions{Fuzzy: query.Fuzzy})
		if err != nil {
			return nil, fmt.Errorf("keyword search failed: %w", err)
		}
		bodyHits = make(map[string]bool, len(results))
		for _, r := range results {
			bodyHits[r.ID] = true
		}
	}

	matched := make([]*models.Requirement, 0, coll.Len())
	for _, r := range coll.All() {
		if query.Term != "" && !bodyHits[r.ID] && !matchesField(r, query.Term) {
			continue
		}
		if query.Label != "" && r.Body(query.Label) == "" {
			continue
		}
		matched = append(matched, r)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		c := compareBy(query.SortBy, matched[i], matched[j])
		if query.Descending {
			return c > 0
		}
		return c < 0
	})

	response := &models.RequirementResponse{
		Labels: labels,
		Total:  len(matched),
		Query:  query.Term,
	}
	if query.Limit > 0 && len(matched) > query.Limit {
		matched = matched[:query.Limit]
	}
	response.Requirements = matched

	if len(matched) == 0 && query.Term != "" && e.spell != nil {
		response.DidYouMean = e.spell.SuggestedQuery(query.Term)
	}
	response.QueryTime = time.Since(startTime).Milliseconds()
	if e.logger != nil {
		e.logger.Debug("requirement search",
			zap.String("term", query.Term),
			zap.String("label", query.Label),
			zap.Int("total", response.Total))
	}
	return response, nil
}

// Get returns one requirement by identifier.
func (e *Engine) Get(ctx context.Context, id string) (*models.Requirement, error) {
	return e.storage.GetRequirement(ctx, id)
}

// Labels returns the source labels of the stored result in input order.
func (e *Engine) Labels(ctx context.Context) ([]models.SourceLabel, error) {
	labels, _, err := e.storage.LoadCollection(ctx)
	return labels, err
}

// IndexedCount returns the number of requirements in the keyword index.
func (e *Engine) IndexedCount() (uint64, error) {
	if e.keywordIndex == nil {
		return 0, nil
	}
	return e.keywordIndex.DocCount()
}
