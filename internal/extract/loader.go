package extract

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/reqmerge/internal/models"
	"go.uber.org/zap"
)

// Load decodes one in-memory file. A decode failure is recorded on the document.
func (e *Extractor) Load(name string, content []byte) models.SourceDocument {
	doc := models.SourceDocument{Filename: name}
	text, err := e.ExtractBytes(content, filepath.Ext(name))
	if err != nil {
		doc.Err = fmt.Errorf("%s: %w", filepath.Base(name), err)
		e.logFailure(name, doc.Err)
		return doc
	}
	doc.Text = text
	return doc
}

// LoadFiles decodes paths in the given order. Files that cannot be read or decoded
// are returned with Err set so the caller can report them; only ctx cancellation
// aborts the batch.
func (e *Extractor) LoadFiles(ctx context.Context, paths []string) ([]models.SourceDocument, error) {
	docs := make([]models.SourceDocument, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := os.ReadFile(p)
		if err != nil {
			err = fmt.Errorf("read file: %w", err)
			e.logFailure(p, err)
			docs = append(docs, models.SourceDocument{Filename: p, Err: err})
			continue
		}
		docs = append(docs, e.Load(p, content))
	}
	return docs, nil
}

// LoadDirectory decodes every supported file under dir in lexical path order.
// Hidden files and directories are skipped.
func (e *Extractor) LoadDirectory(ctx context.Context, dir string, recursive bool) ([]models.SourceDocument, error) {
	paths, err := e.ListDirectory(dir, recursive)
	if err != nil {
		return nil, err
	}
	return e.LoadFiles(ctx, paths)
}

// ListDirectory returns the supported files under dir in lexical path order.
func (e *Extractor) ListDirectory(dir string, recursive bool) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path == dir {
				return nil
			}
			if !recursive || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !e.Supported(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func (e *Extractor) logFailure(name string, err error) {
	if e.logger != nil {
		e.logger.Warn("could not load document", zap.String("filename", name), zap.Error(err))
	}
}
