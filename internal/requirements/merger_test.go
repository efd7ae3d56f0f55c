package requirements

import (
	"testing"

	"github.com/hyperjump/reqmerge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labelsOf(names ...string) *models.LabelSet {
	s := models.NewLabelSet()
	for _, n := range names {
		s.Add(models.SourceLabel{Label: n, Filename: "catalogue_" + n + ".pdf"})
	}
	return s
}

func TestMerge_EveryRequirementHasEveryLabel(t *testing.T) {
	labels := labelsOf("1.0.0", "2.0.0", "3")
	hits := []models.RawHit{
		{ID: "CYS-1", Kind: models.KindRequirement, Body: "a", Label: "1.0.0", Document: 0, Position: 0},
		{ID: "CYS-2", Kind: models.KindInformation, Body: "b", Label: "2.0.0", Document: 1, Position: 5},
	}
	coll := Merge(labels, hits)

	require.Equal(t, 2, coll.Len())
	for _, r := range coll.All() {
		assert.Len(t, r.Bodies, 3, r.ID)
		for _, n := range labels.Names() {
			_, ok := r.Bodies[n]
			assert.True(t, ok, "%s missing label %s", r.ID, n)
		}
		assert.Empty(t, r.Service)
	}
	r, _ := coll.Get("CYS-2")
	assert.Equal(t, map[string]string{"1.0.0": "", "2.0.0": "b", "3": ""}, r.Bodies)
}

func TestMerge_FirstSightingFixesKind(t *testing.T) {
	labels := labelsOf("1", "2")
	hits := []models.RawHit{
		{ID: "CYS-1", Kind: models.KindRequirement, Body: "new", Label: "2", Document: 1},
		{ID: "CYS-1", Kind: models.KindInformation, Body: "old", Label: "1", Document: 0},
	}
	r, ok := Merge(labels, hits).Get("CYS-1")
	require.True(t, ok)
	assert.Equal(t, models.KindInformation, r.Kind)
	assert.Equal(t, "old", r.Bodies["1"])
	assert.Equal(t, "new", r.Bodies["2"])
}

func TestMerge_LastWriteWinsWithinLabel(t *testing.T) {
	labels := labelsOf("1")
	hits := []models.RawHit{
		{ID: "CYS-1", Kind: models.KindRequirement, Body: "second", Label: "1", Document: 0, Position: 90},
		{ID: "CYS-1", Kind: models.KindRequirement, Body: "first", Label: "1", Document: 0, Position: 10},
	}
	r, _ := Merge(labels, hits).Get("CYS-1")
	assert.Equal(t, "second", r.Bodies["1"])
}

func TestMerge_OrderIndependent(t *testing.T) {
	labels := labelsOf("A", "B")
	hits := []models.RawHit{
		{ID: "CYS-1", Kind: models.KindRequirement, Body: "a1", Label: "A", Document: 0, Position: 0},
		{ID: "CYS-2", Kind: models.KindRequirement, Body: "a2", Label: "A", Document: 0, Position: 20},
		{ID: "CYS-1", Kind: models.KindRequirement, Body: "b1", Label: "B", Document: 1, Position: 0},
	}
	reversed := []models.RawHit{hits[2], hits[1], hits[0]}

	want := Merge(labels, hits)
	got := Merge(labels, reversed)
	assert.Equal(t, want.IDs(), got.IDs())
	assert.Equal(t, want.All(), got.All())
	assert.Equal(t, "CYS-1", hits[0].ID, "input slice is not reordered")
	assert.Equal(t, "b1", reversed[0].Body)
}

func TestMerge_UnknownLabelDropped(t *testing.T) {
	coll := Merge(labelsOf("1"), []models.RawHit{{ID: "CYS-1", Body: "x", Label: "9"}})
	assert.Equal(t, 0, coll.Len())
}

func TestMerge_Empty(t *testing.T) {
	coll := Merge(models.NewLabelSet(), nil)
	assert.Equal(t, 0, coll.Len())
	assert.Empty(t, coll.All())
}
