package models

// SourceLabel identifies the provenance (cadence) of one input document.
type SourceLabel struct {
	Label    string `json:"label"`
	Filename string `json:"filename"`
	// Positional is true when no label could be derived and the document's
	// 1-based input position was used instead.
	Positional bool `json:"positional,omitempty"`
}

// LabelSet accumulates the labels discovered during one batch run, in input order.
// A label string is stored once; later documents resolving to the same label
// share its bucket.
type LabelSet struct {
	labels []SourceLabel
	index  map[string]int
}

// NewLabelSet returns an empty LabelSet.
func NewLabelSet() *LabelSet {
	return &LabelSet{index: make(map[string]int)}
}

// Add records l and reports whether its label string was not yet known.
// When the label is already present the existing entry is kept.
func (s *LabelSet) Add(l SourceLabel) bool {
	if _, ok := s.index[l.Label]; ok {
		return false
	}
	s.index[l.Label] = len(s.labels)
	s.labels = append(s.labels, l)
	return true
}

// Has reports whether label is known.
func (s *LabelSet) Has(label string) bool {
	_, ok := s.index[label]
	return ok
}

// Get returns the entry for label.
func (s *LabelSet) Get(label string) (SourceLabel, bool) {
	i, ok := s.index[label]
	if !ok {
		return SourceLabel{}, false
	}
	return s.labels[i], true
}

// Len returns the number of distinct labels.
func (s *LabelSet) Len() int {
	return len(s.labels)
}

// Labels returns a copy of the entries in insertion order.
func (s *LabelSet) Labels() []SourceLabel {
	out := make([]SourceLabel, len(s.labels))
	copy(out, s.labels)
	return out
}

// Names returns the label strings in insertion order.
func (s *LabelSet) Names() []string {
	out := make([]string, len(s.labels))
	for i, l := range s.labels {
		out[i] = l.Label
	}
	return out
}

// LabelSetOf builds a LabelSet from labels, keeping the first entry for duplicates.
func LabelSetOf(labels []SourceLabel) *LabelSet {
	s := NewLabelSet()
	for _, l := range labels {
		s.Add(l)
	}
	return s
}
