package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
extraction:
  code_prefix: "REQ-"
  workers: 2
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Extraction.CodePrefix != "REQ-" || cfg.Extraction.AnchorLabel != "GUID" {
		t.Errorf("extraction: got prefix %q label %q", cfg.Extraction.CodePrefix, cfg.Extraction.AnchorLabel)
	}
	if cfg.Extraction.Workers != 2 {
		t.Errorf("workers: got %d", cfg.Extraction.Workers)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_durationsAndHeadingPatterns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
extraction:
  cache_ttl: 1m
  heading_patterns:
    - "^Scope$"
watch:
  debounce: 250ms
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Extraction.CacheTTL != time.Minute {
		t.Errorf("cache_ttl: got %v", cfg.Extraction.CacheTTL)
	}
	if cfg.Watch.Debounce != 250*time.Millisecond {
		t.Errorf("debounce: got %v", cfg.Watch.Debounce)
	}
	if len(cfg.Extraction.HeadingPatterns) != 1 || cfg.Extraction.HeadingPatterns[0] != "^Scope$" {
		t.Errorf("heading_patterns: got %v", cfg.Extraction.HeadingPatterns)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/requirements.db"
  bleve_index_path: "./data/bleve"
watch:
  directories: ["./inbox"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "requirements.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	wantIdx := filepath.Join(dir, "data", "bleve")
	if cfg.Storage.BleveIndexPath != wantIdx {
		t.Errorf("bleve_index_path = %s, want %s", cfg.Storage.BleveIndexPath, wantIdx)
	}
	if len(cfg.Watch.Directories) != 1 || cfg.Watch.Directories[0] != filepath.Join(dir, "inbox") {
		t.Errorf("watch directories: got %v", cfg.Watch.Directories)
	}
}

func TestLoad_emptyBleveIndexPathStaysInMemory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
	if cfg.Storage.BleveIndexPath != "" {
		t.Errorf("bleve_index_path should stay empty, got %q", cfg.Storage.BleveIndexPath)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Extraction.AnchorLabel != "GUID" || cfg.Extraction.CodePrefix != "CYS-" {
		t.Errorf("default anchor: got %q %q", cfg.Extraction.AnchorLabel, cfg.Extraction.CodePrefix)
	}
	if cfg.Extraction.InfoMarker != "information only" {
		t.Errorf("default info marker: got %q", cfg.Extraction.InfoMarker)
	}
	if cfg.Extraction.Workers != 4 || cfg.Extraction.MinBodyLength != 1 {
		t.Errorf("default workers/min length: got %d/%d", cfg.Extraction.Workers, cfg.Extraction.MinBodyLength)
	}
	if cfg.Extraction.HeadingPatterns != nil {
		t.Error("heading patterns should stay nil so the engine uses its built-in list")
	}
	if len(cfg.Extraction.Extensions) != len(DefaultExtensions) || cfg.Extraction.Extensions[0] != ".pdf" {
		t.Errorf("extensions: got %v", cfg.Extraction.Extensions)
	}
	if cfg.Export.SheetName != "Requirements" || !cfg.Export.IncludeServiceOrDefault() {
		t.Errorf("export defaults: got %+v", cfg.Export)
	}
	if cfg.Watch.Debounce != 400*time.Millisecond {
		t.Errorf("debounce: got %v", cfg.Watch.Debounce)
	}
}

func TestApplyDefaults_WatchRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Watch: WatchConfig{Directories: []string{"/tmp/docs"}}}
	ApplyDefaults(cfg)
	if cfg.Watch.Recursive == nil || !*cfg.Watch.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &WatchConfig{}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &WatchConfig{Recursive: &f}
		if got := w.RecursiveOrDefault(); got {
			t.Errorf("RecursiveOrDefault() = %v, want false", got)
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}
