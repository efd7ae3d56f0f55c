package requirements

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultHeadingPatterns match bodies that are only a heading. The list is a starting
// point for tuning and is expected to be overridden from configuration.
var DefaultHeadingPatterns = []string{
	// "Section 3", "Appendix B", "Chapter 2.1:"
	`(?i)^(section|chapter|appendix|part)\s+[0-9A-Z]+(\.[0-9]+)*\s*[:.-]?$`,
	// bare section labels
	`(?i)^(introduction|overview|scope|purpose|background|references|glossary|definitions|contents|table of contents|requirements|notes?)\s*:?$`,
	// short capitalized noun phrase with nothing after it
	`^[A-Z][A-Za-z]*(\s+([A-Z][A-Za-z]*|and|of|for|the|&)){0,5}$`,
}

// HeadingPolicy discards collected bodies that are too short or look like a heading.
type HeadingPolicy struct {
	Patterns      []*regexp.Regexp
	MinBodyLength int
}

// NewHeadingPolicy compiles patterns. minBodyLength below 1 is raised to 1 so empty
// bodies are always discarded.
func NewHeadingPolicy(patterns []string, minBodyLength int) (HeadingPolicy, error) {
	p := HeadingPolicy{MinBodyLength: minBodyLength}
	if p.MinBodyLength < 1 {
		p.MinBodyLength = 1
	}
	for _, s := range patterns {
		re, err := regexp.Compile(s)
		if err != nil {
			return HeadingPolicy{}, fmt.Errorf("heading pattern %q: %w", s, err)
		}
		p.Patterns = append(p.Patterns, re)
	}
	return p, nil
}

// DefaultHeadingPolicy returns the policy built from DefaultHeadingPatterns.
func DefaultHeadingPolicy() HeadingPolicy {
	p, err := NewHeadingPolicy(DefaultHeadingPatterns, 1)
	if err != nil {
		panic(err)
	}
	return p
}

// Discard reports whether body should not become a hit.
func (p HeadingPolicy) Discard(body string) bool {
	body = strings.TrimSpace(body)
	if len(body) < p.MinBodyLength {
		return true
	}
	for _, re := range p.Patterns {
		if re.MatchString(body) {
			return true
		}
	}
	return false
}
