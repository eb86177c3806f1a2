package cache

import (
	"testing"

	"studyhub/internal/document/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(id, title string) model.Document {
	return model.Document{ID: id, Title: title, Kind: model.KindPrivate}
}

func TestUpsertOnePrependsNewDocuments(t *testing.T) {
	c := New()
	c.UpsertOne(doc("a", "first"))
	c.UpsertOne(doc("b", "second"))

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID, "new documents surface first")
	assert.Equal(t, "a", list[1].ID)
}

func TestUpsertOneKeepsListOrderForKnownIDs(t *testing.T) {
	c := New()
	c.UpsertOne(doc("a", "first"))
	c.UpsertOne(doc("b", "second"))

	c.UpsertOne(doc("a", "renamed"))

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)
	assert.Equal(t, "renamed", list[1].Title)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "renamed", got.Title)
}

func TestPatchUpdatesMapAndListInPlace(t *testing.T) {
	c := New()
	c.UpsertOne(doc("a", "first"))

	title := "patched"
	content := "body"
	c.Patch("a", model.Patch{Title: &title, Content: &content})

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "patched", got.Title)
	assert.Equal(t, "body", got.Content)

	list := c.List()
	require.Len(t, list, 1)
	assert.Equal(t, "patched", list[0].Title)
}

func TestPatchAbsentIDIsNoOp(t *testing.T) {
	c := New()
	title := "ghost"
	c.Patch("missing", model.Patch{Title: &title})

	_, ok := c.Get("missing")
	assert.False(t, ok, "patches never create entries")
	assert.Empty(t, c.List())
}

func TestPatchClearsNullableFields(t *testing.T) {
	c := New()
	icon := "📚"
	d := doc("a", "first")
	d.Icon = &icon
	c.UpsertOne(d)

	empty := ""
	c.Patch("a", model.Patch{Icon: &empty})

	got, _ := c.Get("a")
	assert.Nil(t, got.Icon)
}

func TestRemoveDeletesFromMapAndList(t *testing.T) {
	c := New()
	c.UpsertOne(doc("a", "first"))
	c.UpsertOne(doc("b", "second"))

	c.Remove("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
	list := c.List()
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].ID)
}

func TestReplaceAllKeepsMapEntriesOutsideList(t *testing.T) {
	c := New()
	c.UpsertOne(doc("old", "kept"))

	c.ReplaceAll([]model.Document{doc("a", "first"), doc("b", "second")})

	// The list is exactly the supplied sequence.
	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	// The keyed map is add/overwrite only.
	_, ok := c.Get("old")
	assert.True(t, ok, "entries absent from docs are never deleted")
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "first", got.Title)
}

func TestListReturnsCopy(t *testing.T) {
	c := New()
	c.UpsertOne(doc("a", "first"))

	list := c.List()
	list[0].Title = "mutated"

	got, _ := c.Get("a")
	assert.Equal(t, "first", got.Title)
}
