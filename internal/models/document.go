// Package models defines the data model shared by extraction, storage, search, and export.
package models

// SourceDocument is one input document handed to the extraction engine.
// Text is already decoded plain text; the engine never sees the original bytes.
// Err is set by the loader when the file could not be read or decoded.
type SourceDocument struct {
	Filename string `json:"filename"`
	Text     string `json:"-"`
	Err      error  `json:"-"`
}

// Failed reports whether the loader could not produce text for the document.
func (d SourceDocument) Failed() bool {
	return d.Err != nil
}
