package config

import "time"

// DefaultExtensions are the document types the loader decodes.
var DefaultExtensions = []string{".pdf", ".docx", ".odt", ".rtf", ".xlsx", ".txt", ".md"}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 64 << 20
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/reqmerge/data/requirements.db"
	}
	ApplyExtractionDefaults(&cfg.Extraction)
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 400 * time.Millisecond
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
	if cfg.Export.SheetName == "" {
		cfg.Export.SheetName = "Requirements"
	}
}

// ApplyExtractionDefaults fills the zero values of the extraction section.
// HeadingPatterns stays nil when unset; the engine then uses its built-in list.
func ApplyExtractionDefaults(e *ExtractionConfig) {
	if e.AnchorLabel == "" {
		e.AnchorLabel = "GUID"
	}
	if e.CodePrefix == "" {
		e.CodePrefix = "CYS-"
	}
	if e.InfoMarker == "" {
		e.InfoMarker = "information only"
	}
	if e.Workers <= 0 {
		e.Workers = 4
	}
	if e.MinBodyLength <= 0 {
		e.MinBodyLength = 1
	}
	if e.Extensions == nil {
		e.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if e.CacheTTL == 0 {
		e.CacheTTL = 10 * time.Minute
	}
}
