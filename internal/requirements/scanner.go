// Package requirements locates requirement anchors in document text, separates genuine
// anchors from headings and page furniture, collects requirement bodies, tags each
// document with a cadence label, and merges per-document hits into one collection.
package requirements

import (
	"errors"
	"iter"
	"regexp"
	"unicode/utf8"
)

const (
	// DefaultAnchorLabel is the literal token that introduces an identifier ("GUID: CYS-100").
	DefaultAnchorLabel = "GUID"
	// DefaultCodePrefix is the required prefix of every identifier.
	DefaultCodePrefix = "CYS-"
)

// Anchor is one identifier occurrence. Offset counts characters from the start of the
// text to the match; Byte is the same position in bytes.
type Anchor struct {
	ID     string
	Offset int
	Byte   int
}

// Scanner finds identifier anchors: label token, colon, optional blanks, code prefix,
// then an alphanumeric/hyphen/underscore body. Matching is case-insensitive and never
// crosses a line break.
type Scanner struct {
	re *regexp.Regexp
}

// NewScanner builds a scanner for the given label token and code prefix.
func NewScanner(label, prefix string) (*Scanner, error) {
	if label == "" || prefix == "" {
		return nil, errors.New("anchor label and code prefix are required")
	}
	pattern := `(?i)` + regexp.QuoteMeta(label) + `:[ \t]*(` + regexp.QuoteMeta(prefix) + `[A-Za-z0-9_-]+)`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Scanner{re: re}, nil
}

// Scan returns the anchors in text in order of appearance. The sequence is lazy and
// can be ranged over any number of times.
func (s *Scanner) Scan(text string) iter.Seq[Anchor] {
	return func(yield func(Anchor) bool) {
		base, chars := 0, 0
		rest := text
		for {
			loc := s.re.FindStringSubmatchIndex(rest)
			if loc == nil {
				return
			}
			chars += utf8.RuneCountInString(rest[:loc[0]])
			if !yield(Anchor{ID: rest[loc[2]:loc[3]], Offset: chars, Byte: base + loc[0]}) {
				return
			}
			chars += utf8.RuneCountInString(rest[loc[0]:loc[1]])
			base += loc[1]
			rest = rest[loc[1]:]
		}
	}
}

// Contains reports whether line holds at least one anchor.
func (s *Scanner) Contains(line string) bool {
	return s.re.MatchString(line)
}
