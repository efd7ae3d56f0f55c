// Package indexer runs extraction batches and keeps storage and the keyword index in step.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/reqmerge/internal/extract"
	"github.com/hyperjump/reqmerge/internal/keyword"
	"github.com/hyperjump/reqmerge/internal/models"
	"github.com/hyperjump/reqmerge/internal/requirements"
	"github.com/hyperjump/reqmerge/internal/storage"
	"go.uber.org/zap"
)

// ErrNoDocuments is returned when a run is requested without any input file.
var ErrNoDocuments = errors.New("no documents to extract")

// Indexer loads documents, runs the extraction engine, and stores the merged result.
type Indexer struct {
	storage      storage.Storage
	keywordIndex keyword.Index
	engine       *requirements.Engine
	extractor    *extract.Extractor
	spell        *keyword.SpellChecker
	logger       *zap.Logger // optional; when set, logs debug events

	// runs replace the whole stored result, so they never overlap
	mu sync.Mutex
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for run and annotation events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithSpellChecker registers a spell checker whose term cache is dropped whenever the
// keyword index changes.
func WithSpellChecker(s *keyword.SpellChecker) IndexerOption {
	return func(idx *Indexer) { idx.spell = s }
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(
	storage storage.Storage,
	keywordIndex keyword.Index,
	engine *requirements.Engine,
	extractor *extract.Extractor,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		storage:      storage,
		keywordIndex: keywordIndex,
		engine:       engine,
		extractor:    extractor,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Upload is one file received in memory, e.g. from a multipart request. Err is set
// when the file could not be received; it is then reported as a failed document.
type Upload struct {
	Name    string
	Content []byte
	Err     error
}

// Summary describes a finished run.
type Summary struct {
	Run       models.Run                    `json:"run"`
	Labels    []models.SourceLabel          `json:"labels"`
	Documents []requirements.DocumentReport `json:"documents"`
	Message   string                        `json:"message"`

	// Stored is false when every document failed and the previous result was kept.
	Stored bool `json:"stored"`
}

// IndexPaths extracts the given files and directories as one batch. Directories are
// expanded to their supported files in lexical order. A path that cannot be read is
// reported as a failed document; the rest of the batch still runs.
func (idx *Indexer) IndexPaths(ctx context.Context, paths []string, recursive bool) (*Summary, error) {
	var docs []models.SourceDocument
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			docs = append(docs, idx.failedDocument(p, err))
			continue
		}
		files := []string{p}
		if info.IsDir() {
			if files, err = idx.extractor.ListDirectory(p, recursive); err != nil {
				docs = append(docs, idx.failedDocument(p, err))
				continue
			}
		}
		loaded, err := idx.extractor.LoadFiles(ctx, files)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}
	return idx.IndexDocuments(ctx, docs)
}

func (idx *Indexer) failedDocument(name string, err error) models.SourceDocument {
	if idx.logger != nil {
		idx.logger.Warn("could not read input", zap.String("path", name), zap.Error(err))
	}
	return models.SourceDocument{Filename: name, Err: err}
}

// IndexFiles extracts the files in the given order. The order decides positional
// labels and the first-seen order of requirements.
func (idx *Indexer) IndexFiles(ctx context.Context, paths []string) (*Summary, error) {
	if len(paths) == 0 {
		return nil, ErrNoDocuments
	}
	docs, err := idx.extractor.LoadFiles(ctx, paths)
	if err != nil {
		return nil, err
	}
	return idx.IndexDocuments(ctx, docs)
}

// IndexDirectory extracts every supported file under dir.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string, recursive bool) (*Summary, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	return idx.IndexPaths(ctx, []string{absDir}, recursive)
}

// IndexUploads extracts in-memory files in the given order.
func (idx *Indexer) IndexUploads(ctx context.Context, uploads []Upload) (*Summary, error) {
	if len(uploads) == 0 {
		return nil, ErrNoDocuments
	}
	docs := make([]models.SourceDocument, len(uploads))
	for i, u := range uploads {
		if u.Err != nil {
			docs[i] = idx.failedDocument(u.Name, u.Err)
			continue
		}
		docs[i] = idx.extractor.Load(u.Name, u.Content)
	}
	return idx.IndexDocuments(ctx, docs)
}

// IndexDocuments runs the engine over docs and replaces the stored result with its
// output. Service annotations already stored are kept. When no document could be
// used the stored result is left untouched.
func (idx *Indexer) IndexDocuments(ctx context.Context, docs []models.SourceDocument) (*Summary, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	run := models.Run{ID: uuid.New().String(), StartedAt: time.Now().UTC()}
	result, err := idx.engine.Run(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("extraction run: %w", err)
	}
	run.FinishedAt = time.Now().UTC()
	run.Documents = len(result.Documents)
	run.Requirements = result.Requirements.Len()
	run.Failed = result.Failed()

	summary := &Summary{
		Run:       run,
		Labels:    result.Labels,
		Documents: result.Documents,
		Message:   result.Summary(),
	}
	for i := range summary.Documents {
		if d := &summary.Documents[i]; d.Err != nil {
			d.Error = d.Err.Error()
		}
	}
	if len(result.Labels) == 0 {
		if idx.logger != nil {
			idx.logger.Warn("every document failed; keeping the previous result", zap.String("run", run.ID))
		}
		return summary, nil
	}

	if err := idx.storage.ReplaceResult(ctx, run, result.Labels, result.Requirements); err != nil {
		return nil, fmt.Errorf("failed to store result: %w", err)
	}
	if err := idx.Rebuild(ctx); err != nil {
		return nil, err
	}
	summary.Stored = true
	if idx.logger != nil {
		idx.logger.Info("extraction run stored",
			zap.String("run", run.ID),
			zap.Int("documents", run.Documents),
			zap.Int("requirements", run.Requirements),
			zap.Int("failed", run.Failed),
			zap.Duration("duration", run.Duration()))
	}
	return summary, nil
}

// Rebuild repopulates the keyword index from storage. Call it at startup when the
// index is kept in memory.
func (idx *Indexer) Rebuild(ctx context.Context) error {
	_, coll, err := idx.storage.LoadCollection(ctx)
	if err != nil {
		return fmt.Errorf("load requirements: %w", err)
	}
	if err := idx.keywordIndex.Replace(ctx, coll.All()); err != nil {
		return fmt.Errorf("failed to index keywords: %w", err)
	}
	if idx.spell != nil {
		idx.spell.Invalidate()
	}
	if idx.logger != nil {
		idx.logger.Debug("keyword index rebuilt", zap.Int("requirements", coll.Len()))
	}
	return nil
}

// SetService records a reviewer's service value and refreshes the requirement in the
// keyword index.
func (idx *Indexer) SetService(ctx context.Context, id, value string) (*models.Requirement, error) {
	if err := idx.storage.SetService(ctx, id, value); err != nil {
		return nil, err
	}
	r, err := idx.storage.GetRequirement(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := idx.keywordIndex.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to index keywords: %w", err)
	}
	if idx.spell != nil {
		idx.spell.Invalidate()
	}
	if idx.logger != nil {
		idx.logger.Debug("service set", zap.String("id", id), zap.String("service", value))
	}
	return r, nil
}
