package access

import (
	"sort"

	"studyhub/internal/document/model"
)

// MergeByID unions the owned and shared listings of study hubs. The two
// inputs describe the same underlying records, so when an id appears in both
// the later-fetched (shared) copy wins. The result is de-duplicated and
// re-sorted newest createdAt first.
func MergeByID(owned, shared []model.Document) []model.Document {
	byID := make(map[string]model.Document, len(owned)+len(shared))
	order := make([]string, 0, len(owned)+len(shared))

	for _, doc := range owned {
		if _, seen := byID[doc.ID]; !seen {
			order = append(order, doc.ID)
		}
		byID[doc.ID] = doc
	}
	for _, doc := range shared {
		if _, seen := byID[doc.ID]; !seen {
			order = append(order, doc.ID)
		}
		byID[doc.ID] = doc
	}

	merged := make([]model.Document, 0, len(order))
	for _, id := range order {
		merged = append(merged, byID[id])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}
