package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"studyhub/internal/document/model"
	"studyhub/pkg/apperr"
	"studyhub/pkg/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// docColumns is the canonical select list; scanDocument must stay in sync.
const docColumns = `id, title, owner_id, parent_id, kind, is_subject, is_archived,
	icon, cover_image, content, is_published, created_at, updated_at,
	share_code, shared_with, is_shared`

type DocumentRepository struct {
	DB *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{DB: db}
}

// Create inserts a new document with server-assigned timestamps and returns
// its generated id. Defaults are the caller's concern except sharing state,
// which is fixed at creation: containers start with the owner as the only
// member, nothing starts shared.
func (r *DocumentRepository) Create(spec model.CreateSpec, ownerID string) (string, error) {
	docID := uuid.NewString()

	title := strings.TrimSpace(spec.Title)
	if title == "" {
		title = model.DefaultTitle
	}

	sharedWith := []string{}
	if spec.Kind == model.KindContainer {
		sharedWith = []string{ownerID}
	}

	_, err := r.DB.Exec(`INSERT INTO documents
		(id, title, owner_id, parent_id, kind, is_subject, is_archived, content, is_published, created_at, updated_at, shared_with, is_shared)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, '', FALSE, NOW(), NOW(), $7, FALSE)`,
		docID, title, ownerID, spec.ParentID, string(spec.Kind), spec.IsSubject, pq.Array(sharedWith))
	if err != nil {
		logger.Sugar.Errorf("Failed to create document: %v", err)
		return "", fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	return docID, nil
}

// Get fetches a single record by id. Visibility filtering is the caller's
// responsibility; archived and foreign records are returned as-is.
func (r *DocumentRepository) Get(docID string) (*model.Document, error) {
	row := r.DB.QueryRow(`SELECT `+docColumns+` FROM documents WHERE id = $1`, docID)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to get document %s: %v", docID, err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	return doc, nil
}

// Update merge-patches the supplied fields and always bumps updated_at.
func (r *DocumentRepository) Update(docID string, patch model.Patch) error {
	sets := []string{}
	args := []interface{}{}
	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)+1))
		args = append(args, value)
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Content != nil {
		add("content", *patch.Content)
	}
	if patch.Icon != nil {
		add("icon", nullable(*patch.Icon))
	}
	if patch.CoverImage != nil {
		add("cover_image", nullable(*patch.CoverImage))
	}
	if patch.IsPublished != nil {
		add("is_published", *patch.IsPublished)
	}
	if patch.IsArchived != nil {
		add("is_archived", *patch.IsArchived)
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, docID)
	query := fmt.Sprintf("UPDATE documents SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	result, err := r.DB.Exec(query, args...)
	if err != nil {
		logger.Sugar.Errorf("Failed to update document %s: %v", docID, err)
		return fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Delete removes the record permanently.
func (r *DocumentRepository) Delete(docID string) error {
	result, err := r.DB.Exec(`DELETE FROM documents WHERE id = $1`, docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete document %s: %v", docID, err)
		return fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// List returns the owner's non-archived documents of the given kind, newest
// first. A nil parentID matches top-level documents.
func (r *DocumentRepository) List(ownerID string, kind model.Kind, parentID *string) ([]model.Document, error) {
	var rows *sql.Rows
	var err error
	if parentID == nil {
		rows, err = r.DB.Query(`SELECT `+docColumns+` FROM documents
			WHERE owner_id = $1 AND kind = $2 AND is_archived = FALSE AND parent_id IS NULL
			ORDER BY created_at DESC`, ownerID, string(kind))
	} else {
		rows, err = r.DB.Query(`SELECT `+docColumns+` FROM documents
			WHERE owner_id = $1 AND kind = $2 AND is_archived = FALSE AND parent_id = $3
			ORDER BY created_at DESC`, ownerID, string(kind), *parentID)
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to list documents for user %s: %v", ownerID, err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	return collectDocuments(rows)
}

// ListShared returns the active shared containers the user is a member of,
// newest first.
func (r *DocumentRepository) ListShared(userID string) ([]model.Document, error) {
	rows, err := r.DB.Query(`SELECT `+docColumns+` FROM documents
		WHERE kind = $1 AND is_shared = TRUE AND is_archived = FALSE AND $2 = ANY(shared_with)
		ORDER BY created_at DESC`, string(model.KindContainer), userID)
	if err != nil {
		logger.Sugar.Errorf("Failed to list shared hubs for user %s: %v", userID, err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	return collectDocuments(rows)
}

// ListArchived returns the owner's trash, most recently touched first.
func (r *DocumentRepository) ListArchived(ownerID string) ([]model.Document, error) {
	rows, err := r.DB.Query(`SELECT `+docColumns+` FROM documents
		WHERE owner_id = $1 AND is_archived = TRUE
		ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to list archived documents for user %s: %v", ownerID, err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	return collectDocuments(rows)
}

// ListChildren returns the non-archived children of parentID, newest first.
// A nil ownerID returns children authored by any member; otherwise the
// result is restricted to that owner's children.
func (r *DocumentRepository) ListChildren(parentID string, ownerID *string) ([]model.Document, error) {
	var rows *sql.Rows
	var err error
	if ownerID == nil {
		rows, err = r.DB.Query(`SELECT `+docColumns+` FROM documents
			WHERE parent_id = $1 AND is_archived = FALSE
			ORDER BY created_at DESC`, parentID)
	} else {
		rows, err = r.DB.Query(`SELECT `+docColumns+` FROM documents
			WHERE parent_id = $1 AND is_archived = FALSE AND owner_id = $2
			ORDER BY created_at DESC`, parentID, *ownerID)
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to list children of %s: %v", parentID, err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	return collectDocuments(rows)
}

// CountActiveChildren counts non-archived children regardless of author.
func (r *DocumentRepository) CountActiveChildren(parentID string) (int, error) {
	var n int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM documents WHERE parent_id = $1 AND is_archived = FALSE`, parentID).Scan(&n)
	if err != nil {
		logger.Sugar.Errorf("Failed to count children of %s: %v", parentID, err)
		return 0, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	return n, nil
}

// FindByShareCode resolves an active shared container by its code.
func (r *DocumentRepository) FindByShareCode(code string) (*model.Document, error) {
	row := r.DB.QueryRow(`SELECT `+docColumns+` FROM documents
		WHERE share_code = $1 AND kind = $2 AND is_shared = TRUE AND is_archived = FALSE`,
		code, string(model.KindContainer))
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to look up share code: %v", err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	return doc, nil
}

// SetShareCode installs a fresh code and membership set, marking the
// document shared.
func (r *DocumentRepository) SetShareCode(docID, code string, sharedWith []string) error {
	_, err := r.DB.Exec(`UPDATE documents SET share_code = $1, is_shared = TRUE, shared_with = $2, updated_at = NOW() WHERE id = $3`,
		code, pq.Array(sharedWith), docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to set share code for doc %s: %v", docID, err)
		return fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	return nil
}

// SetSharedWith replaces the membership set.
func (r *DocumentRepository) SetSharedWith(docID string, sharedWith []string) error {
	_, err := r.DB.Exec(`UPDATE documents SET shared_with = $1, updated_at = NOW() WHERE id = $2`,
		pq.Array(sharedWith), docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to update members for doc %s: %v", docID, err)
		return fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var doc model.Document
	var parentID, icon, coverImage, shareCode sql.NullString
	var sharedWith pq.StringArray
	var kind string

	err := row.Scan(&doc.ID, &doc.Title, &doc.OwnerID, &parentID, &kind, &doc.IsSubject,
		&doc.IsArchived, &icon, &coverImage, &doc.Content, &doc.IsPublished,
		&doc.CreatedAt, &doc.UpdatedAt, &shareCode, &sharedWith, &doc.IsShared)
	if err != nil {
		return nil, err
	}

	doc.Kind = model.Kind(kind)
	doc.ParentID = nullString(parentID)
	doc.Icon = nullString(icon)
	doc.CoverImage = nullString(coverImage)
	doc.ShareCode = nullString(shareCode)
	doc.SharedWith = []string(sharedWith)
	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]model.Document, error) {
	defer rows.Close()
	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			logger.Sugar.Errorf("Failed to scan document row: %v", err)
			return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	return docs, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// nullable maps an empty string to SQL NULL so a patch can clear icon and
// cover image columns.
func nullable(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
