package share

import (
	"os"
	"regexp"
	"testing"

	"studyhub/internal/access"
	"studyhub/internal/document/model"
	"studyhub/pkg/apperr"
	"studyhub/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fakeStore struct {
	docs map[string]*model.Document

	codeSets   []string // docIDs passed to SetShareCode, in order
	lastCode   string
	membership map[string][]string
}

func newFakeStore(docs ...*model.Document) *fakeStore {
	s := &fakeStore{docs: map[string]*model.Document{}, membership: map[string][]string{}}
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return s
}

func (s *fakeStore) Get(docID string) (*model.Document, error) {
	doc, ok := s.docs[docID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (s *fakeStore) FindByShareCode(code string) (*model.Document, error) {
	for _, d := range s.docs {
		if d.ShareCode != nil && *d.ShareCode == code && d.IsShared && !d.IsArchived && d.Kind == model.KindContainer {
			copied := *d
			return &copied, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *fakeStore) SetShareCode(docID, code string, sharedWith []string) error {
	doc := s.docs[docID]
	doc.ShareCode = &code
	doc.IsShared = true
	doc.SharedWith = append([]string(nil), sharedWith...)
	s.codeSets = append(s.codeSets, docID)
	s.lastCode = code
	return nil
}

func (s *fakeStore) SetSharedWith(docID string, sharedWith []string) error {
	s.docs[docID].SharedWith = append([]string(nil), sharedWith...)
	s.membership[docID] = sharedWith
	return nil
}

func newShareService(t *testing.T, store Store) *Service {
	t.Helper()
	authz, err := access.NewAuthorizer()
	require.NoError(t, err)
	return NewService(store, authz)
}

func hub(id, owner string, members ...string) *model.Document {
	return &model.Document{
		ID: id, OwnerID: owner, Kind: model.KindContainer, IsSubject: true,
		IsShared: len(members) > 0, SharedWith: append([]string{owner}, members...),
	}
}

func TestGenerateCodeFormat(t *testing.T) {
	store := newFakeStore(hub("hub-1", "alice"))
	svc := newShareService(t, store)

	code, err := svc.GenerateCode("alice", "hub-1")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), code)
}

func TestGenerateCodeIsOwnerOnly(t *testing.T) {
	store := newFakeStore(hub("hub-1", "alice", "bob"))
	svc := newShareService(t, store)

	_, err := svc.GenerateCode("bob", "hub-1")
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)
}

func TestGenerateCodeRejectsPrivateDocuments(t *testing.T) {
	store := newFakeStore(&model.Document{ID: "note-1", OwnerID: "alice", Kind: model.KindPrivate})
	svc := newShareService(t, store)

	_, err := svc.GenerateCode("alice", "note-1")
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)
}

func TestRegenerateRevokesAndReissues(t *testing.T) {
	h := hub("hub-1", "alice", "bob")
	store := newFakeStore(h)
	svc := newShareService(t, store)

	code, err := svc.GenerateCode("alice", "hub-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"alice"}, h.SharedWith, "regenerating resets membership to the owner")
	assert.True(t, h.IsShared)
	require.NotNil(t, h.ShareCode)
	assert.Equal(t, code, *h.ShareCode)
}

// collidingStore reports the first N drawn codes as already taken by a
// foreign hub.
type collidingStore struct {
	*fakeStore
	collisions int
	lookups    int
}

func (s *collidingStore) FindByShareCode(code string) (*model.Document, error) {
	s.lookups++
	if s.lookups <= s.collisions {
		taken := *hub("hub-other", "carol")
		taken.ShareCode = &code
		taken.IsShared = true
		return &taken, nil
	}
	return s.fakeStore.FindByShareCode(code)
}

func TestGenerateRetriesOnActiveCodeCollision(t *testing.T) {
	store := &collidingStore{fakeStore: newFakeStore(hub("hub-1", "alice")), collisions: 2}
	svc := newShareService(t, store)

	code, err := svc.GenerateCode("alice", "hub-1")
	require.NoError(t, err)
	assert.NotEmpty(t, code)
	assert.Equal(t, 3, store.lookups, "two collisions force two redraws")
}

func TestGenerateGivesUpAfterExhaustingAttempts(t *testing.T) {
	store := &collidingStore{fakeStore: newFakeStore(hub("hub-1", "alice")), collisions: maxCodeAttempts}
	svc := newShareService(t, store)

	_, err := svc.GenerateCode("alice", "hub-1")
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	assert.Empty(t, store.codeSets)
}

func TestJoinRoundTrip(t *testing.T) {
	h := hub("hub-1", "alice")
	store := newFakeStore(h)
	svc := newShareService(t, store)

	code, err := svc.GenerateCode("alice", "hub-1")
	require.NoError(t, err)

	docID, err := svc.Join("bob", code)
	require.NoError(t, err)
	assert.Equal(t, "hub-1", docID)
	assert.Equal(t, []string{"alice", "bob"}, h.SharedWith)

	_, err = svc.Join("bob", code)
	assert.ErrorIs(t, err, apperr.ErrAlreadyMember, "a repeated join is an error, not a no-op")
}

func TestJoinNormalizesCase(t *testing.T) {
	h := hub("hub-1", "alice")
	code := "K7QX2M"
	h.ShareCode = &code
	h.IsShared = true
	store := newFakeStore(h)
	svc := newShareService(t, store)

	docID, err := svc.Join("bob", "  k7qx2m ")
	require.NoError(t, err)
	assert.Equal(t, "hub-1", docID)
}

func TestJoinUnknownCode(t *testing.T) {
	svc := newShareService(t, newFakeStore())

	_, err := svc.Join("bob", "ZZZZZZ")
	assert.ErrorIs(t, err, apperr.ErrInvalidCode)

	_, err = svc.Join("bob", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidCode)
}

func TestJoinRequiresIdentity(t *testing.T) {
	svc := newShareService(t, newFakeStore())
	_, err := svc.Join("", "K7QX2M")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}
