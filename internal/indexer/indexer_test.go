package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/reqmerge/internal/config"
	"github.com/hyperjump/reqmerge/internal/extract"
	"github.com/hyperjump/reqmerge/internal/keyword"
	"github.com/hyperjump/reqmerge/internal/models"
	"github.com/hyperjump/reqmerge/internal/requirements"
	"github.com/hyperjump/reqmerge/internal/storage"
)

func testIndexer(t *testing.T) (*Indexer, storage.Storage, *keyword.BleveIndex) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	kwIndex, err := keyword.NewBleveIndex(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kwIndex.Close() })
	engine, err := requirements.NewEngine(&config.ExtractionConfig{})
	if err != nil {
		t.Fatal(err)
	}
	return NewIndexer(store, kwIndex, engine, extract.NewExtractor()), store, kwIndex
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestIndexDirectory(t *testing.T) {
	idx, store, kwIndex := testIndexer(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "requirements_1.0.txt"), "GUID: CYS-100\nEncrypt backups at rest.\n")
	writeFile(t, filepath.Join(dir, "zz", "requirements_2.0.txt"), "GUID: CYS-100\nEncrypt backups with managed keys.\nGUID: CYS-200\nRotate credentials.\n")
	writeFile(t, filepath.Join(dir, "notes.go"), "GUID: CYS-999\nIgnored.\n")

	summary, err := idx.IndexDirectory(ctx, dir, true)
	if err != nil {
		t.Fatalf("IndexDirectory: %v", err)
	}
	if !summary.Stored {
		t.Fatal("expected result to be stored")
	}
	if len(summary.Labels) != 2 || summary.Labels[0].Label != "1.0" || summary.Labels[1].Label != "2.0" {
		t.Errorf("labels = %+v", summary.Labels)
	}
	if summary.Run.ID == "" || summary.Run.Requirements != 2 || summary.Run.Documents != 2 {
		t.Errorf("run = %+v", summary.Run)
	}
	n, err := store.CountRequirements(ctx)
	if err != nil || n != 2 {
		t.Errorf("CountRequirements = %d, %v; want 2", n, err)
	}
	last, err := store.LastRun(ctx)
	if err != nil || last == nil || last.ID != summary.Run.ID {
		t.Errorf("LastRun = %+v, %v", last, err)
	}
	hits, err := kwIndex.Search(ctx, "credentials", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != "CYS-200" {
		t.Errorf("keyword hits = %+v", hits)
	}
}

func TestIndexDirectory_notRecursive(t *testing.T) {
	idx, _, _ := testIndexer(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a_1.0.txt"), "GUID: CYS-1\nBody.\n")
	writeFile(t, filepath.Join(dir, "sub", "b_2.0.txt"), "GUID: CYS-2\nBody.\n")

	summary, err := idx.IndexDirectory(context.Background(), dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Documents) != 1 {
		t.Errorf("documents = %d, want 1", len(summary.Documents))
	}
}

func TestIndexPaths_filesAndDirectories(t *testing.T) {
	idx, _, _ := testIndexer(t)
	dir := t.TempDir()
	single := filepath.Join(dir, "single_3.0.txt")
	writeFile(t, single, "GUID: CYS-3\nBody three.\n")
	sub := filepath.Join(dir, "batch")
	writeFile(t, filepath.Join(sub, "x_1.0.txt"), "GUID: CYS-1\nBody one.\n")

	summary, err := idx.IndexPaths(context.Background(), []string{single, sub}, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Labels) != 2 || summary.Labels[0].Label != "3.0" {
		t.Errorf("labels = %+v", summary.Labels)
	}
}

func TestIndexPaths_missingPathFailsAlone(t *testing.T) {
	idx, store, _ := testIndexer(t)
	ctx := context.Background()
	dir := t.TempDir()
	good := filepath.Join(dir, "cadence_1.txt")
	writeFile(t, good, "GUID: CYS-1\nEncrypt backups at rest.\n")
	missing := filepath.Join(dir, "missing_2.txt")

	summary, err := idx.IndexPaths(ctx, []string{good, missing}, true)
	if err != nil {
		t.Fatalf("IndexPaths: %v", err)
	}
	if !summary.Stored || summary.Run.Requirements != 1 || summary.Run.Failed != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if len(summary.Documents) != 2 {
		t.Fatalf("documents = %+v", summary.Documents)
	}
	failed := summary.Documents[1]
	if failed.Filename != missing || failed.Error == "" {
		t.Errorf("failed document = %+v", failed)
	}
	if n := strings.Count(failed.Error, missing); n != 1 {
		t.Errorf("error %q names the path %d times, want 1", failed.Error, n)
	}
	if n, err := store.CountRequirements(ctx); err != nil || n != 1 {
		t.Errorf("CountRequirements = %d, %v; want 1", n, err)
	}

	summary, err = idx.IndexPaths(ctx, []string{filepath.Join(dir, "missing")}, true)
	if err != nil {
		t.Fatalf("IndexPaths(missing only): %v", err)
	}
	if summary.Stored {
		t.Error("a batch of unreadable paths must keep the previous result")
	}
}

func TestIndexUploads_failedUploadFailsAlone(t *testing.T) {
	idx, _, _ := testIndexer(t)
	summary, err := idx.IndexUploads(context.Background(), []Upload{
		{Name: "a_1.0.txt", Content: []byte("GUID: CYS-1\nBody one.\n")},
		{Name: "b_2.0.pdf", Err: errors.New("read upload: unexpected EOF")},
	})
	if err != nil {
		t.Fatalf("IndexUploads: %v", err)
	}
	if !summary.Stored || summary.Run.Failed != 1 || len(summary.Labels) != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Documents[1].Error != "read upload: unexpected EOF" {
		t.Errorf("failed upload error = %q", summary.Documents[1].Error)
	}
}

func TestIndexUploads_serviceSurvivesRerun(t *testing.T) {
	idx, store, kwIndex := testIndexer(t)
	ctx := context.Background()
	uploads := []Upload{
		{Name: "reqs_1.0.txt", Content: []byte("GUID: CYS-100\nFirst body.\n")},
		{Name: "reqs_2.0.txt", Content: []byte("GUID: CYS-100\nSecond body.\n")},
	}
	if _, err := idx.IndexUploads(ctx, uploads); err != nil {
		t.Fatal(err)
	}
	r, err := idx.SetService(ctx, "CYS-100", "Vault")
	if err != nil {
		t.Fatalf("SetService: %v", err)
	}
	if r.Service != "Vault" {
		t.Errorf("service = %q", r.Service)
	}
	hits, err := kwIndex.Search(ctx, "vault", 10, nil)
	if err != nil || len(hits) != 1 {
		t.Errorf("service not searchable: %+v, %v", hits, err)
	}

	if _, err := idx.IndexUploads(ctx, uploads[:1]); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetRequirement(ctx, "CYS-100")
	if err != nil {
		t.Fatal(err)
	}
	if got.Service != "Vault" {
		t.Errorf("service after re-run = %q, want Vault", got.Service)
	}
	if _, ok := got.Bodies["2.0"]; ok {
		t.Errorf("stale label survived re-run: %+v", got.Bodies)
	}
}

func TestIndexUploads_allFailedKeepsPrevious(t *testing.T) {
	idx, store, _ := testIndexer(t)
	ctx := context.Background()
	if _, err := idx.IndexUploads(ctx, []Upload{{Name: "ok_1.0.txt", Content: []byte("GUID: CYS-1\nBody.\n")}}); err != nil {
		t.Fatal(err)
	}

	summary, err := idx.IndexUploads(ctx, []Upload{{Name: "broken_2.0.docx", Content: []byte("not a zip")}})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Stored {
		t.Error("expected nothing to be stored")
	}
	if summary.Run.Failed != 1 || summary.Documents[0].Error == "" {
		t.Errorf("summary = %+v", summary)
	}
	n, _ := store.CountRequirements(ctx)
	if n != 1 {
		t.Errorf("CountRequirements = %d, want previous result kept", n)
	}
}

func TestIndexer_noDocuments(t *testing.T) {
	idx, _, _ := testIndexer(t)
	if _, err := idx.IndexFiles(context.Background(), nil); !errors.Is(err, ErrNoDocuments) {
		t.Errorf("IndexFiles(nil) err = %v", err)
	}
	if _, err := idx.IndexUploads(context.Background(), nil); !errors.Is(err, ErrNoDocuments) {
		t.Errorf("IndexUploads(nil) err = %v", err)
	}
}

func TestSetService_unknownID(t *testing.T) {
	idx, _, _ := testIndexer(t)
	_, err := idx.SetService(context.Background(), "CYS-404", "x")
	if !errors.Is(err, models.ErrRequirementNotFound) {
		t.Errorf("err = %v, want ErrRequirementNotFound", err)
	}
}

func TestRebuild(t *testing.T) {
	idx, store, _ := testIndexer(t)
	ctx := context.Background()
	if _, err := idx.IndexUploads(ctx, []Upload{{Name: "a_1.0.txt", Content: []byte("GUID: CYS-7\nMonitor egress traffic.\n")}}); err != nil {
		t.Fatal(err)
	}

	fresh, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	defer fresh.Close()
	engine, _ := requirements.NewEngine(&config.ExtractionConfig{})
	other := NewIndexer(store, fresh, engine, extract.NewExtractor())
	if err := other.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := fresh.DocCount(); n != 1 {
		t.Errorf("DocCount = %d, want 1", n)
	}
}
