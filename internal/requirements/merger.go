package requirements

import (
	"sort"

	"github.com/hyperjump/reqmerge/internal/models"
)

// Merge combines hits from all documents into one collection keyed by identifier.
// Every requirement's body map holds exactly one entry per label in labels.
// Hits are applied in (document, position) order: the first sighting fixes the kind,
// and a later sighting for the same label overwrites that label's body.
func Merge(labels *models.LabelSet, hits []models.RawHit) *models.Collection {
	ordered := make([]models.RawHit, len(hits))
	copy(ordered, hits)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Document != ordered[j].Document {
			return ordered[i].Document < ordered[j].Document
		}
		return ordered[i].Position < ordered[j].Position
	})

	names := labels.Names()
	coll := models.NewCollection()
	for _, h := range ordered {
		// a label outside the set would add a key no other requirement has
		if !labels.Has(h.Label) {
			continue
		}
		r, ok := coll.Get(h.ID)
		if !ok {
			r = &models.Requirement{
				ID:     h.ID,
				Kind:   h.Kind,
				Bodies: make(map[string]string, len(names)),
			}
			for _, n := range names {
				r.Bodies[n] = ""
			}
			coll.Put(r)
		}
		r.Bodies[h.Label] = h.Body
	}
	return coll
}
