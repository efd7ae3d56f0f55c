package requirements

import (
	"regexp"
	"strings"
)

// Reason names the rule that rejected an anchor.
type Reason string

const (
	ReasonCopyrightFooter  Reason = "copyright-footer"
	ReasonPageNumber       Reason = "page-number"
	ReasonFileExtension    Reason = "file-extension"
	ReasonSectionHeading   Reason = "section-heading"
	ReasonHeadingReference Reason = "heading-reference"
)

// copyrightFooterRe matches ©, "(c) <year>", or a copyright/confidential/proprietary
// word together with a year or an "<n> of <n>" page marker on the same line.
var copyrightFooterRe = regexp.MustCompile(`(?i)(©|\(c\)\s*\d{4}` +
	`|\b(copyright|confidential|proprietary)\b.*(\b(19|20)\d{2}\b|\b\d+\s+of\s+\d+\b)` +
	`|(\b(19|20)\d{2}\b|\b\d+\s+of\s+\d+\b).*\b(copyright|confidential|proprietary)\b)`)

var (
	pageNumberRe     = regexp.MustCompile(`(?i)(\bpage\s+\d+\s+of\s+\d+\b|\b\d+\s+of\s+\d+\s*$)`)
	fileExtensionRe  = regexp.MustCompile(`(?i)\.(pdf|docx?|xlsx?|pptx?|odt|rtf|txt|md)\s*$`)
	sectionHeadingRe = regexp.MustCompile(`^\s*\d+(\.\d+)*\.?\s+[A-Z]`)
)

// Context is an anchor's position inside a document split into lines.
type Context struct {
	Lines []string
	Index int
}

// Line returns the anchor line.
func (c Context) Line() string {
	return c.Lines[c.Index]
}

// nextNonBlank returns the first non-blank line after the anchor line.
func (c Context) nextNonBlank() (string, bool) {
	for i := c.Index + 1; i < len(c.Lines); i++ {
		if line := strings.TrimSpace(c.Lines[i]); line != "" {
			return line, true
		}
	}
	return "", false
}

// Rule rejects an anchor when Match returns true.
type Rule struct {
	Reason Reason
	Match  func(Context) bool
}

func lineRule(reason Reason, re *regexp.Regexp) Rule {
	return Rule{Reason: reason, Match: func(c Context) bool { return re.MatchString(c.Line()) }}
}

// Classifier decides whether an anchor is a genuine requirement or page furniture.
// Rules are evaluated in order and the first match wins.
type Classifier struct {
	rules []Rule
	// boilerplate is the prefix of rules that only look at a single line;
	// the body collector stops on the same lines.
	boilerplate []Rule
}

// NewClassifier returns the default rule list. scanner is used by the heading-reference rule.
func NewClassifier(scanner *Scanner) *Classifier {
	boilerplate := []Rule{
		lineRule(ReasonCopyrightFooter, copyrightFooterRe),
		lineRule(ReasonPageNumber, pageNumberRe),
		lineRule(ReasonFileExtension, fileExtensionRe),
		lineRule(ReasonSectionHeading, sectionHeadingRe),
	}
	rules := append([]Rule{}, boilerplate...)
	rules = append(rules, Rule{
		Reason: ReasonHeadingReference,
		Match: func(c Context) bool {
			next, ok := c.nextNonBlank()
			return ok && scanner.Contains(next)
		},
	})
	return &Classifier{rules: rules, boilerplate: boilerplate}
}

// Rules returns the ordered rule list.
func (c *Classifier) Rules() []Rule {
	return c.rules
}

// Classify returns ("", true) when the anchor is accepted, or the rejecting reason and false.
func (c *Classifier) Classify(ctx Context) (Reason, bool) {
	for _, r := range c.rules {
		if r.Match(ctx) {
			return r.Reason, false
		}
	}
	return "", true
}

// Boilerplate reports whether line is a footer, page number, file-name header, or
// numbered section heading.
func (c *Classifier) Boilerplate(line string) (Reason, bool) {
	ctx := Context{Lines: []string{line}}
	for _, r := range c.boilerplate {
		if r.Match(ctx) {
			return r.Reason, true
		}
	}
	return "", false
}
