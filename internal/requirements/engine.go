package requirements

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hyperjump/reqmerge/internal/config"
	"github.com/hyperjump/reqmerge/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine runs extraction over a batch of documents and merges the results.
type Engine struct {
	scanner    *Scanner
	classifier *Classifier
	collector  *Collector
	tagger     *Tagger
	workers    int
	logger     *zap.Logger // optional; when set, logs per-document events
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for rejected anchors, failed documents, and label collisions.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithWorkers overrides the number of documents extracted concurrently.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewEngine builds an engine from the extraction config. Zero values in cfg fall back
// to the package defaults.
func NewEngine(cfg *config.ExtractionConfig, opts ...EngineOption) (*Engine, error) {
	c := *cfg
	config.ApplyExtractionDefaults(&c)

	scanner, err := NewScanner(c.AnchorLabel, c.CodePrefix)
	if err != nil {
		return nil, fmt.Errorf("anchor pattern: %w", err)
	}
	patterns := c.HeadingPatterns
	if patterns == nil {
		patterns = DefaultHeadingPatterns
	}
	policy, err := NewHeadingPolicy(patterns, c.MinBodyLength)
	if err != nil {
		return nil, err
	}
	classifier := NewClassifier(scanner)
	e := &Engine{
		scanner:    scanner,
		classifier: classifier,
		collector:  NewCollector(scanner, classifier, policy, c.InfoMarker, c.MaxBodyLines),
		tagger:     NewTagger(),
		workers:    c.Workers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// DocumentReport describes what one input document contributed to a run.
type DocumentReport struct {
	Filename   string `json:"filename"`
	Label      string `json:"label,omitempty"`
	Positional bool   `json:"positional,omitempty"`
	Hits       int    `json:"hits"`
	Err        error  `json:"-"`
	Error      string `json:"error,omitempty"`
}

// Result is the outcome of one batch run.
type Result struct {
	Labels       []models.SourceLabel `json:"labels"`
	Requirements *models.Collection   `json:"requirements"`
	Documents    []DocumentReport     `json:"documents"`
}

// Failed returns the number of documents that contributed nothing because of an error.
func (r *Result) Failed() int {
	n := 0
	for _, d := range r.Documents {
		if d.Err != nil {
			n++
		}
	}
	return n
}

// Summary returns a one-line description of the run for the caller to display.
func (r *Result) Summary() string {
	s := fmt.Sprintf("processed %d documents, extracted %d requirements", len(r.Documents), r.Requirements.Len())
	if n := r.Failed(); n > 0 {
		s += fmt.Sprintf(" (%d failed)", n)
	}
	return s
}

// Run extracts every document and merges the hits. Documents are processed
// concurrently but merged in input order. A document that failed to load or to
// extract is reported and skipped; the only error returned is ctx's, in which case
// no result is produced.
func (e *Engine) Run(ctx context.Context, docs []models.SourceDocument) (*Result, error) {
	reports := make([]DocumentReport, len(docs))
	perDoc := make([][]models.RawHit, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i], perDoc[i] = e.process(i, doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	labels := models.NewLabelSet()
	var hits []models.RawHit
	for i, rep := range reports {
		if rep.Err != nil {
			e.warn("document skipped", zap.String("filename", rep.Filename), zap.Error(rep.Err))
			continue
		}
		if !labels.Add(models.SourceLabel{Label: rep.Label, Filename: rep.Filename, Positional: rep.Positional}) {
			first, _ := labels.Get(rep.Label)
			e.warn("label already used by another document; merging into the same column",
				zap.String("label", rep.Label),
				zap.String("filename", rep.Filename),
				zap.String("first_filename", first.Filename))
		}
		hits = append(hits, perDoc[i]...)
	}

	return &Result{
		Labels:       labels.Labels(),
		Requirements: Merge(labels, hits),
		Documents:    reports,
	}, nil
}

// process tags and extracts one document. A panic inside extraction is turned into a
// failed report so the rest of the batch is unaffected.
func (e *Engine) process(i int, doc models.SourceDocument) (report DocumentReport, hits []models.RawHit) {
	report.Filename = doc.Filename
	if doc.Err != nil {
		report.Err = doc.Err
		report.Error = doc.Err.Error()
		return report, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("extract %s: %v", doc.Filename, r)
			report = DocumentReport{Filename: doc.Filename, Err: err, Error: err.Error()}
			hits = nil
		}
	}()

	label, ok := e.tagger.Tag(doc.Text, doc.Filename)
	if !ok {
		label = strconv.Itoa(i + 1)
		report.Positional = true
	}
	report.Label = label
	hits = e.ExtractDocument(i, label, doc.Text)
	report.Hits = len(hits)
	if e.logger != nil {
		e.logger.Debug("document extracted",
			zap.String("filename", doc.Filename),
			zap.String("label", label),
			zap.Bool("positional", report.Positional),
			zap.Int("hits", len(hits)))
	}
	return report, hits
}

// ExtractDocument returns the hits of one document, tagged with label and the
// document's input position.
func (e *Engine) ExtractDocument(doc int, label, text string) []models.RawHit {
	if text == "" {
		return nil
	}
	lines, starts := splitLines(text)
	var hits []models.RawHit
	for a := range e.scanner.Scan(text) {
		ctx := Context{Lines: lines, Index: lineAt(starts, a.Byte)}
		if reason, ok := e.classifier.Classify(ctx); !ok {
			if e.logger != nil {
				e.logger.Debug("anchor rejected", zap.String("id", a.ID), zap.String("reason", string(reason)))
			}
			continue
		}
		body, keep := e.collector.Collect(ctx)
		if !keep {
			if e.logger != nil {
				e.logger.Debug("anchor without body", zap.String("id", a.ID))
			}
			continue
		}
		kind := models.KindRequirement
		if e.collector.IsInformation(ctx.Line()) {
			kind = models.KindInformation
		}
		hits = append(hits, models.RawHit{
			ID:       a.ID,
			Kind:     kind,
			Body:     body,
			Label:    label,
			Document: doc,
			Position: a.Offset,
		})
	}
	return hits
}

func (e *Engine) warn(msg string, fields ...zap.Field) {
	if e.logger != nil {
		e.logger.Warn(msg, fields...)
	}
}

// splitLines splits text on "\n", dropping a trailing "\r", and returns each line's
// starting byte offset.
func splitLines(text string) ([]string, []int) {
	lines := strings.Split(text, "\n")
	starts := make([]int, len(lines))
	off := 0
	for i, l := range lines {
		starts[i] = off
		off += len(l) + 1
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines, starts
}

// lineAt returns the index of the line containing offset.
func lineAt(starts []int, offset int) int {
	return sort.Search(len(starts), func(i int) bool { return starts[i] > offset }) - 1
}
