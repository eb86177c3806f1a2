// Package cache holds a session-scoped mirror of fetched documents: a keyed
// map for point lookups plus an ordered list for display. The cache is
// advisory only — anything read from it may be stale relative to the store,
// and remote fetches are applied unconditionally (last write wins).
package cache

import (
	"sync"

	"studyhub/internal/document/model"
)

type Cache struct {
	mu   sync.RWMutex
	docs map[string]model.Document
	list []model.Document
}

func New() *Cache {
	return &Cache{docs: make(map[string]model.Document)}
}

// UpsertOne inserts or replaces the keyed entry. New documents are prepended
// to the list so they surface first; known ids keep their list position.
func (c *Cache) UpsertOne(doc model.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, known := c.docs[doc.ID]
	c.docs[doc.ID] = doc

	if !known {
		c.list = append([]model.Document{doc}, c.list...)
		return
	}
	for i := range c.list {
		if c.list[i].ID == doc.ID {
			c.list[i] = doc
			return
		}
	}
}

// Patch merges fields into an existing entry, in the map and in the list in
// place. Patching an absent id is a no-op: patches never create entries.
func (c *Cache) Patch(id string, patch model.Patch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, ok := c.docs[id]
	if !ok {
		return
	}
	applyPatch(&doc, patch)
	c.docs[id] = doc
	for i := range c.list {
		if c.list[i].ID == id {
			c.list[i] = doc
			return
		}
	}
}

// Remove deletes the id from both the map and the list.
func (c *Cache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.docs, id)
	for i := range c.list {
		if c.list[i].ID == id {
			c.list = append(c.list[:i], c.list[i+1:]...)
			return
		}
	}
}

// ReplaceAll adds or overwrites a map entry per supplied document — entries
// outside docs are kept — and replaces the list with exactly docs. Callers
// merging a partial fetch with prior state must compute the union themselves
// before calling.
func (c *Cache) ReplaceAll(docs []model.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, doc := range docs {
		c.docs[doc.ID] = doc
	}
	c.list = append([]model.Document(nil), docs...)
}

// Get is a point lookup with no network access.
func (c *Cache) Get(id string) (model.Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[id]
	return doc, ok
}

// List returns a copy of the ordered list.
func (c *Cache) List() []model.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Document(nil), c.list...)
}

func applyPatch(doc *model.Document, patch model.Patch) {
	if patch.Title != nil {
		doc.Title = *patch.Title
	}
	if patch.Content != nil {
		doc.Content = *patch.Content
	}
	if patch.Icon != nil {
		doc.Icon = nullable(*patch.Icon)
	}
	if patch.CoverImage != nil {
		doc.CoverImage = nullable(*patch.CoverImage)
	}
	if patch.IsPublished != nil {
		doc.IsPublished = *patch.IsPublished
	}
	if patch.IsArchived != nil {
		doc.IsArchived = *patch.IsArchived
	}
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
