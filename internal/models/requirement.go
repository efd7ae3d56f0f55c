package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrRequirementNotFound is returned when an identifier is not in the collection.
var ErrRequirementNotFound = errors.New("requirement not found")

// Kind classifies a requirement as binding or descriptive.
type Kind string

const (
	KindRequirement Kind = "Requirement"
	KindInformation Kind = "Information"
)

// ParseKind maps a stored kind string back to a Kind. Unknown values are treated as requirements.
func ParseKind(s string) Kind {
	if Kind(s) == KindInformation {
		return KindInformation
	}
	return KindRequirement
}

// RawHit is one accepted anchor with its collected body, scoped to a single document.
type RawHit struct {
	ID    string
	Kind  Kind
	Body  string
	Label string
	// Document is the input position of the source document; Position is the
	// character offset of the anchor inside it. Together they order merging.
	Document int
	Position int
}

// Requirement is the merged record for one identifier across all sources.
type Requirement struct {
	ID     string            `json:"id"`
	Kind   Kind              `json:"kind"`
	Bodies map[string]string `json:"bodies"`
	// Service is set only by a reviewer; extraction leaves it empty.
	Service string `json:"service"`
}

// Body returns the body text for label, or "" when the label has none.
func (r *Requirement) Body(label string) string {
	return r.Bodies[label]
}

// Clone returns a deep copy of r.
func (r *Requirement) Clone() *Requirement {
	c := *r
	c.Bodies = make(map[string]string, len(r.Bodies))
	for k, v := range r.Bodies {
		c.Bodies[k] = v
	}
	return &c
}

// Collection is the set of merged requirements keyed by identifier, in first-seen order.
type Collection struct {
	order []string
	byID  map[string]*Requirement
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{byID: make(map[string]*Requirement)}
}

// Put inserts r, or replaces the requirement with the same identifier in place.
func (c *Collection) Put(r *Requirement) {
	if _, ok := c.byID[r.ID]; !ok {
		c.order = append(c.order, r.ID)
	}
	c.byID[r.ID] = r
}

// Get returns the requirement with identifier id.
func (c *Collection) Get(id string) (*Requirement, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// Len returns the number of requirements.
func (c *Collection) Len() int {
	return len(c.order)
}

// IDs returns identifiers in insertion order.
func (c *Collection) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// All returns the requirements in insertion order.
func (c *Collection) All() []*Requirement {
	out := make([]*Requirement, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// SetService sets the reviewer-entered service value for id. It is idempotent and
// never touches any other field.
func (c *Collection) SetService(id, value string) error {
	r, ok := c.byID[id]
	if !ok {
		return fmt.Errorf("set service %s: %w", id, ErrRequirementNotFound)
	}
	r.Service = value
	return nil
}

// MarshalJSON encodes the collection as an ordered array.
func (c *Collection) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.All())
}
