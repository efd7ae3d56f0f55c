package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/reqmerge/internal/models"
)

// Indexed text fields.
const (
	fieldBody    = "body"
	fieldService = "service"
)

// requirementDoc is the indexed form of a requirement. Bodies of every label are
// joined so a term found in any cadence matches.
type requirementDoc struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Body    string `json:"body"`
	Service string `json:"service"`
}

func newRequirementDoc(r *models.Requirement) requirementDoc {
	labels := make([]string, 0, len(r.Bodies))
	for l := range r.Bodies {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	var bodies []string
	for _, l := range labels {
		if b := r.Bodies[l]; b != "" {
			bodies = append(bodies, b)
		}
	}
	return requirementDoc{
		ID:      r.ID,
		Kind:    string(r.Kind),
		Body:    strings.Join(bodies, "\n"),
		Service: r.Service,
	}
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
	mu    sync.Mutex // serializes Replace against Update
}

func newIndexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so "encrypt" does not
	// match "encryption" unless fuzzy search is on.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(fieldBody, textFieldMapping)
	docMapping.AddFieldMappingsAt(fieldService, textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	keywordFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("kind", keywordFieldMapping)
	im.AddDocumentMapping("requirement", docMapping)
	im.DefaultType = "requirement"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path keeps the index
// in memory; it is then rebuilt from storage on startup.
// If you change the index mapping in code, remove the index directory to force a rebuild.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := newIndexMapping()
	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Replace drops every indexed requirement and indexes reqs in one batch.
func (b *BleveIndex) Replace(ctx context.Context, reqs []*models.Requirement) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing, err := b.allIDs()
	if err != nil {
		return err
	}
	batch := b.index.NewBatch()
	// deletes first: a later Index of the same id in the batch wins
	for _, id := range existing {
		batch.Delete(id)
	}
	for _, r := range reqs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(r.ID, newRequirementDoc(r)); err != nil {
			return fmt.Errorf("index %s: %w", r.ID, err)
		}
	}
	if batch.Size() == 0 {
		return nil
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	return nil
}

func (b *BleveIndex) allIDs() ([]string, error) {
	count, err := b.index.DocCount()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(count), 0, false)
	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("list indexed requirements: %w", err)
	}
	ids := make([]string, len(res.Hits))
	for i, hit := range res.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

// Update reindexes one requirement.
func (b *BleveIndex) Update(ctx context.Context, req *models.Requirement) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Index(req.ID, newRequirementDoc(req))
}

// Search runs a match query over body and service text and returns up to limit results
// ordered by score. limit <= 0 returns every hit.
// When opts.Fuzzy is true, each query term is matched within the configured edit distance.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	fuzzy := false
	fuzziness := 1
	if opts != nil {
		fuzzy = opts.Fuzzy
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	var q blevequery.Query
	if fuzzy {
		q = buildFuzzyQuery(query, fuzziness)
	} else {
		q = bleve.NewMatchQuery(query)
	}

	size := limit
	if size <= 0 {
		count, err := b.index.DocCount()
		if err != nil {
			return nil, err
		}
		size = int(count)
		if size == 0 {
			return nil, nil
		}
	}
	search := bleve.NewSearchRequest(q)
	search.Size = size
	results, err := b.index.SearchInContext(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Result{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms, filtering out empty strings.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries for each term in the query.
func buildFuzzyQuery(queryStr string, fuzziness int) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		return bleve.NewMatchQuery(queryStr)
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	// OR semantics, like MatchQuery
	return bleve.NewDisjunctionQuery(queries...)
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of requirements in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// GetAllTerms returns all unique terms from the body and service dictionaries.
func (b *BleveIndex) GetAllTerms() ([]string, error) {
	seen := make(map[string]struct{})
	var terms []string
	for _, field := range []string{fieldBody, fieldService} {
		dict, err := b.index.FieldDict(field)
		if err != nil {
			return nil, fmt.Errorf("field dictionary %s: %w", field, err)
		}
		for {
			entry, err := dict.Next()
			if err != nil || entry == nil {
				break
			}
			if _, ok := seen[entry.Term]; !ok {
				terms = append(terms, entry.Term)
				seen[entry.Term] = struct{}{}
			}
		}
		_ = dict.Close()
	}
	return terms, nil
}

// GetTermFrequency returns the number of requirements containing the given term.
func (b *BleveIndex) GetTermFrequency(term string) (int, error) {
	q := bleve.NewMatchQuery(term)
	req := bleve.NewSearchRequest(q)
	req.Size = 0
	results, err := b.index.Search(req)
	if err != nil {
		return 0, fmt.Errorf("failed to search for term frequency: %w", err)
	}
	return int(results.Total), nil
}
