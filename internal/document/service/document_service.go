package service

import (
	"studyhub/internal/access"
	"studyhub/internal/document/model"
	"studyhub/pkg/apperr"
)

// Store is the slice of the repository the service needs.
type Store interface {
	Create(spec model.CreateSpec, ownerID string) (string, error)
	Get(docID string) (*model.Document, error)
	Update(docID string, patch model.Patch) error
	Delete(docID string) error
	List(ownerID string, kind model.Kind, parentID *string) ([]model.Document, error)
	ListShared(userID string) ([]model.Document, error)
	ListArchived(ownerID string) ([]model.Document, error)
	ListChildren(parentID string, ownerID *string) ([]model.Document, error)
	CountActiveChildren(parentID string) (int, error)
}

type DocumentService struct {
	Repo  Store
	Authz *access.Authorizer
}

func NewDocumentService(repo Store, authz *access.Authorizer) *DocumentService {
	return &DocumentService{Repo: repo, Authz: authz}
}

// Create validates the parent (it must exist, be a subject, and be reachable
// by the caller) and inserts the document. Parents are immutable after
// creation, so an existing parent can never be a descendant of the new
// document and the tree stays acyclic.
func (s *DocumentService) Create(userID string, spec model.CreateSpec) (string, error) {
	if userID == "" {
		return "", apperr.ErrUnauthenticated
	}
	if spec.Kind != model.KindContainer {
		spec.Kind = model.KindPrivate
	}

	if spec.ParentID != nil {
		parent, err := s.Repo.Get(*spec.ParentID)
		if err != nil {
			return "", err
		}
		if !parent.IsSubject || parent.IsArchived {
			return "", apperr.ErrInvalidParent
		}
		if !s.Authz.CanContribute(userID, parent) {
			return "", apperr.ErrPermissionDenied
		}
	}

	return s.Repo.Create(spec, userID)
}

// Get returns the document if the caller may see it. Invisible records are
// reported as not found so foreign ids leak nothing.
func (s *DocumentService) Get(userID, docID string) (*model.Document, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	doc, err := s.Repo.Get(docID)
	if err != nil {
		return nil, err
	}
	if !s.Authz.CanView(userID, doc) {
		return nil, apperr.ErrNotFound
	}
	return doc, nil
}

// Update merge-patches the caller's own document.
func (s *DocumentService) Update(userID, docID string, patch model.Patch) error {
	if userID == "" {
		return apperr.ErrUnauthenticated
	}
	doc, err := s.Repo.Get(docID)
	if err != nil {
		return err
	}
	if !s.Authz.CanEdit(userID, doc) {
		return apperr.ErrPermissionDenied
	}
	return s.Repo.Update(docID, patch)
}

// Archive soft-deletes a document. Children are left in place; they drop out
// of navigation but stay live records.
func (s *DocumentService) Archive(userID, docID string) error {
	return s.setArchived(userID, docID, true)
}

// Restore brings a document back from the trash.
func (s *DocumentService) Restore(userID, docID string) error {
	return s.setArchived(userID, docID, false)
}

func (s *DocumentService) setArchived(userID, docID string, archived bool) error {
	if userID == "" {
		return apperr.ErrUnauthenticated
	}
	doc, err := s.Repo.Get(docID)
	if err != nil {
		return err
	}
	if !s.Authz.CanEdit(userID, doc) {
		return apperr.ErrPermissionDenied
	}
	return s.Repo.Update(docID, model.Patch{IsArchived: &archived})
}

// Delete permanently removes a document. Deletion is refused while the
// document still has non-archived children, from any author.
func (s *DocumentService) Delete(userID, docID string) error {
	if userID == "" {
		return apperr.ErrUnauthenticated
	}
	doc, err := s.Repo.Get(docID)
	if err != nil {
		return err
	}
	if !s.Authz.CanDelete(userID, doc) {
		return apperr.ErrPermissionDenied
	}
	n, err := s.Repo.CountActiveChildren(docID)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.ErrHasChildren
	}
	return s.Repo.Delete(docID)
}

// List returns the caller-visible, non-archived documents of the given kind,
// newest first. For containers the result merges owned and shared hubs.
func (s *DocumentService) List(userID string, kind model.Kind, parentID *string) ([]model.Document, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthenticated
	}

	owned, err := s.Repo.List(userID, kind, parentID)
	if err != nil {
		return nil, err
	}
	if kind != model.KindContainer {
		return owned, nil
	}

	shared, err := s.Repo.ListShared(userID)
	if err != nil {
		return nil, err
	}
	shared = filterByParent(shared, parentID)
	return access.MergeByID(owned, shared), nil
}

// ListArchived returns the caller's trash, most recently touched first.
func (s *DocumentService) ListArchived(userID string) ([]model.Document, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	return s.Repo.ListArchived(userID)
}

// ListChildren resolves the parent first to decide the filter: children of a
// shared hub the caller belongs to come from every member, otherwise only
// the caller's own children are returned.
func (s *DocumentService) ListChildren(userID, parentID string) ([]model.Document, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	parent, err := s.Repo.Get(parentID)
	if err != nil {
		return nil, err
	}
	if !s.Authz.CanView(userID, parent) {
		return nil, apperr.ErrNotFound
	}
	if parent.IsShared && parent.IsMember(userID) {
		return s.Repo.ListChildren(parentID, nil)
	}
	return s.Repo.ListChildren(parentID, &userID)
}

func filterByParent(docs []model.Document, parentID *string) []model.Document {
	out := docs[:0]
	for _, doc := range docs {
		switch {
		case parentID == nil && doc.ParentID == nil:
			out = append(out, doc)
		case parentID != nil && doc.ParentID != nil && *doc.ParentID == *parentID:
			out = append(out, doc)
		}
	}
	return out
}
