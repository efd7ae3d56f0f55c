// Package extract decodes requirement documents into line-preserving plain text.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/reqmerge/internal/fileid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Extractor extracts plain text from document files. Decoded text is cached by
// content so unchanged files are not decoded again on the next run.
type Extractor struct {
	cache      *gocache.Cache
	extensions map[string]struct{}
	logger     *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithCacheTTL sets how long decoded text is kept. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Extractor) {
		if ttl <= 0 {
			e.cache = nil
			return
		}
		e.cache = gocache.New(ttl, 2*ttl)
	}
}

// WithExtensions limits directory loading to the given extensions (with leading dot).
func WithExtensions(exts []string) Option {
	return func(e *Extractor) {
		e.extensions = make(map[string]struct{}, len(exts))
		for _, ext := range exts {
			e.extensions[strings.ToLower(ext)] = struct{}{}
		}
	}
}

// WithLogger sets a logger for skipped and failed files.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor returns a new Extractor. Without options there is no cache and every
// supported extension is accepted.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{}
	WithExtensions(supportedExtensions)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var supportedExtensions = []string{".pdf", ".docx", ".odt", ".rtf", ".xlsx", ".txt", ".md", ".rst"}

// Supported reports whether path has an extension this extractor loads from directories.
func (e *Extractor) Supported(path string) bool {
	_, ok := e.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Line breaks of the source
// document are kept; the anchor heuristics depend on them.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	ext = strings.ToLower(ext)
	var key string
	if e.cache != nil {
		key = fileid.ContentID(content, ext)
		if v, ok := e.cache.Get(key); ok {
			return v.(string), nil
		}
	}
	text, err := decode(content, ext)
	if err != nil {
		return "", err
	}
	if e.cache != nil {
		e.cache.Set(key, text, gocache.DefaultExpiration)
	}
	return text, nil
}

// CachedDocuments returns the number of decoded documents currently cached.
func (e *Extractor) CachedDocuments() int {
	if e.cache == nil {
		return 0
	}
	return e.cache.ItemCount()
}

func decode(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt", ".rtf":
		return extractOpenDocument(content)
	case ".xlsx":
		return extractExcel(content)
	case ".txt", ".md", ".rst", "":
		return extractPlain(content)
	default:
		// Unknown extension: treat as plain text
		return extractPlain(content)
	}
}
