// Package share implements the study-hub join protocol: short human-typed
// codes granting membership of a container.
package share

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"studyhub/internal/access"
	"studyhub/internal/document/model"
	"studyhub/pkg/apperr"
	"studyhub/pkg/logger"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6

	// ~31 bits of entropy is not collision-proof, so a fresh code is checked
	// against active ones and redrawn a few times before giving up.
	maxCodeAttempts = 5
)

// Store is the slice of the repository the share service needs.
type Store interface {
	Get(docID string) (*model.Document, error)
	FindByShareCode(code string) (*model.Document, error)
	SetShareCode(docID, code string, sharedWith []string) error
	SetSharedWith(docID string, sharedWith []string) error
}

type Service struct {
	Repo  Store
	Authz *access.Authorizer
}

func NewService(repo Store, authz *access.Authorizer) *Service {
	return &Service{Repo: repo, Authz: authz}
}

// GenerateCode issues a fresh share code for a container the caller owns.
// Any previous code becomes invalid immediately and membership resets to the
// owner alone: regenerating is a revoke-and-reissue.
func (s *Service) GenerateCode(userID, docID string) (string, error) {
	if userID == "" {
		return "", apperr.ErrUnauthenticated
	}
	doc, err := s.Repo.Get(docID)
	if err != nil {
		return "", err
	}
	if doc.Kind != model.KindContainer || !s.Authz.CanShare(userID, doc) {
		return "", apperr.ErrPermissionDenied
	}

	code, err := s.freshCode(docID)
	if err != nil {
		return "", err
	}

	if err := s.Repo.SetShareCode(docID, code, []string{doc.OwnerID}); err != nil {
		return "", err
	}
	logger.Sugar.Infof("Issued share code for hub %s", docID)
	return code, nil
}

// Join adds the caller to the hub identified by the code. Codes are
// case-insensitive on entry. A repeated join is an error, not a no-op.
func (s *Service) Join(userID, code string) (string, error) {
	if userID == "" {
		return "", apperr.ErrUnauthenticated
	}
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return "", apperr.ErrInvalidCode
	}

	doc, err := s.Repo.FindByShareCode(normalized)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", apperr.ErrInvalidCode
	}
	if err != nil {
		return "", err
	}

	if doc.IsMember(userID) {
		return "", apperr.ErrAlreadyMember
	}

	if err := s.Repo.SetSharedWith(doc.ID, append(doc.SharedWith, userID)); err != nil {
		return "", err
	}
	logger.Sugar.Infof("User %s joined hub %s", userID, doc.ID)
	return doc.ID, nil
}

// freshCode draws codes until one is unused among active hubs. A code held
// by docID itself counts as free: the document is about to replace it.
func (s *Service) freshCode(docID string) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		holder, err := s.Repo.FindByShareCode(code)
		if errors.Is(err, apperr.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
		if holder.ID == docID {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: could not find a free share code", apperr.ErrStoreUnavailable)
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate share code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
