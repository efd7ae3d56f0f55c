package requirements

import (
	"regexp"
	"strings"
)

// DefaultInfoMarker is the parenthetical phrase that marks an information-only item.
const DefaultInfoMarker = "information only"

// Collector gathers the body text that follows an accepted anchor.
type Collector struct {
	scanner    *Scanner
	classifier *Classifier
	policy     HeadingPolicy
	maxLines   int
	infoRe     *regexp.Regexp
}

// NewCollector returns a collector. maxLines caps the number of body lines; 0 means no cap.
func NewCollector(scanner *Scanner, classifier *Classifier, policy HeadingPolicy, infoMarker string, maxLines int) *Collector {
	if infoMarker == "" {
		infoMarker = DefaultInfoMarker
	}
	words := strings.Fields(infoMarker)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return &Collector{
		scanner:    scanner,
		classifier: classifier,
		policy:     policy,
		maxLines:   maxLines,
		infoRe:     regexp.MustCompile(`(?i)\(\s*` + strings.Join(words, `[\s-]+`) + `\s*\)`),
	}
}

// Collect returns the body for the anchor at ctx and whether it should become a hit.
// Leading blank lines are skipped; collection stops before the next anchor line or a
// boilerplate line.
func (c *Collector) Collect(ctx Context) (string, bool) {
	i := ctx.Index + 1
	for i < len(ctx.Lines) && strings.TrimSpace(ctx.Lines[i]) == "" {
		i++
	}
	var parts []string
	for ; i < len(ctx.Lines); i++ {
		line := strings.TrimSpace(ctx.Lines[i])
		if line == "" {
			continue
		}
		if c.scanner.Contains(line) {
			break
		}
		if _, ok := c.classifier.Boilerplate(line); ok {
			break
		}
		parts = append(parts, line)
		if c.maxLines > 0 && len(parts) >= c.maxLines {
			break
		}
	}
	body := strings.TrimSpace(strings.Join(parts, " "))
	if c.policy.Discard(body) {
		return "", false
	}
	return body, true
}

// IsInformation reports whether the anchor line carries the information-only marker.
func (c *Collector) IsInformation(line string) bool {
	return c.infoRe.MatchString(line)
}
