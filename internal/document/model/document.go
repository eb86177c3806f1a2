package model

import "time"

// Kind discriminates the two document flavors: shareable study hubs and
// personal notes/subjects.
type Kind string

const (
	KindContainer Kind = "container"
	KindPrivate   Kind = "private"
)

const DefaultTitle = "Untitled"

// Document is the sole persisted entity. Documents form a forest via
// ParentID; a document is never reparented after creation.
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	OwnerID     string    `json:"owner_id"`
	ParentID    *string   `json:"parent_id"`
	Kind        Kind      `json:"kind"`
	IsSubject   bool      `json:"is_subject"`
	IsArchived  bool      `json:"is_archived"`
	Icon        *string   `json:"icon,omitempty"`
	CoverImage  *string   `json:"cover_image,omitempty"`
	Content     string    `json:"content"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ShareCode   *string   `json:"share_code,omitempty"`
	SharedWith  []string  `json:"shared_with"`
	IsShared    bool      `json:"is_shared"`
}

// IsMember reports whether userID appears in SharedWith.
func (d *Document) IsMember(userID string) bool {
	for _, id := range d.SharedWith {
		if id == userID {
			return true
		}
	}
	return false
}

// CreateSpec carries the caller-supplied fields for a new document.
type CreateSpec struct {
	Title     string  `json:"title"`
	Kind      Kind    `json:"kind"`
	ParentID  *string `json:"parent_id"`
	IsSubject bool    `json:"is_subject"`
}

// Patch is a merge patch: nil fields are left untouched, non-nil fields are
// written. For the nullable text columns (Icon, CoverImage) an empty string
// clears the stored value. Sharing fields are owned by the share service and
// parentage is immutable, so neither appears here.
type Patch struct {
	Title       *string `json:"title"`
	Content     *string `json:"content"`
	Icon        *string `json:"icon"`
	CoverImage  *string `json:"cover_image"`
	IsPublished *bool   `json:"is_published"`
	IsArchived  *bool   `json:"-"`
}

// IsEmpty reports whether the patch would write nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Icon == nil &&
		p.CoverImage == nil && p.IsPublished == nil && p.IsArchived == nil
}

type CreateDocResponse struct {
	DocID string `json:"document_id"`
}

type JoinRequest struct {
	Code string `json:"code"`
}

type JoinResponse struct {
	DocID string `json:"document_id"`
}

type ShareResponse struct {
	ShareCode string `json:"share_code"`
}
