package requirements

import (
	"path/filepath"
	"regexp"
)

var (
	contentLabelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\brelease\s+cadence\s*[:#-]?\s*(\d+(?:\.\d+)*)`),
		regexp.MustCompile(`(?i)\bcadence\s*[:#-]?\s*(\d+(?:\.\d+)*)`),
		regexp.MustCompile(`(?i)\bversion\s*[:#-]?\s*v?(\d+(?:\.\d+)*)`),
	}
	filenameLabelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+(?:\.\d+)+)`),
		regexp.MustCompile(`(?i)cadence[_\s-]*(\d+)`),
		regexp.MustCompile(`(\d+)`),
	}
)

// Tagger derives a cadence label for a document.
type Tagger struct{}

// NewTagger returns a Tagger.
func NewTagger() *Tagger {
	return &Tagger{}
}

// Tag tries the content patterns first, then the filename patterns; the first match wins.
// It returns false when nothing matches.
func (t *Tagger) Tag(text, filename string) (string, bool) {
	for _, re := range contentLabelPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	base := filepath.Base(filename)
	for _, re := range filenameLabelPatterns {
		if m := re.FindStringSubmatch(base); m != nil {
			return m[1], true
		}
	}
	return "", false
}
