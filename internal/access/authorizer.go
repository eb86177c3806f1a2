// Package access decides what a caller may see and do. Point decisions
// (view/update/delete/share/contribute) are evaluated against an embedded
// Cedar policy set; set-level visibility (owned plus shared listings) is a
// pure merge over already-filtered query results.
package access

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"studyhub/internal/document/model"

	"github.com/cedar-policy/cedar-go"
)

//go:embed policies/policy.cedar
var policyContent string

// Action names understood by the policy set.
const (
	ActionView       = "view"
	ActionUpdate     = "update"
	ActionDelete     = "delete"
	ActionShare      = "share"
	ActionContribute = "contribute"
)

type Authorizer struct {
	policySet *cedar.PolicySet
}

func NewAuthorizer() (*Authorizer, error) {
	policySet, err := cedar.NewPolicySetFromBytes("policy.cedar", []byte(policyContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse policies: %w", err)
	}
	return &Authorizer{policySet: policySet}, nil
}

// Can evaluates a single (user, action, document) request.
func (a *Authorizer) Can(userID, action string, doc *model.Document) bool {
	if userID == "" || doc == nil {
		return false
	}

	principal := cedar.NewEntityUID(cedar.EntityType("StudyHub::User"), cedar.String(userID))
	actionUID := cedar.NewEntityUID(cedar.EntityType("StudyHub::Action"), cedar.String(action))
	resource := cedar.NewEntityUID(cedar.EntityType("StudyHub::Document"), cedar.String(doc.ID))

	entities, err := buildEntities(userID, doc)
	if err != nil {
		return false
	}

	req := cedar.Request{
		Principal: principal,
		Action:    actionUID,
		Resource:  resource,
		Context:   cedar.NewRecord(cedar.RecordMap{}),
	}

	decision, _ := a.policySet.IsAuthorized(entities, req)
	return decision == cedar.Allow
}

// CanView reports whether the user may read the document.
func (a *Authorizer) CanView(userID string, doc *model.Document) bool {
	return a.Can(userID, ActionView, doc)
}

// CanEdit reports whether the user may mutate the document's fields.
func (a *Authorizer) CanEdit(userID string, doc *model.Document) bool {
	return a.Can(userID, ActionUpdate, doc)
}

// CanDelete reports whether the user may permanently delete the document.
func (a *Authorizer) CanDelete(userID string, doc *model.Document) bool {
	return a.Can(userID, ActionDelete, doc)
}

// CanShare reports whether the user may generate a share code.
func (a *Authorizer) CanShare(userID string, doc *model.Document) bool {
	return a.Can(userID, ActionShare, doc)
}

// CanContribute reports whether the user may create children under the
// document.
func (a *Authorizer) CanContribute(userID string, doc *model.Document) bool {
	return a.Can(userID, ActionContribute, doc)
}

// buildEntities marshals the principal and resource into a Cedar entity map.
// Membership is expressed as a set of user entity references so the policy
// can test sharedWith.contains(principal).
func buildEntities(userID string, doc *model.Document) (cedar.EntityMap, error) {
	userRef := func(id string) map[string]interface{} {
		return map[string]interface{}{
			"__entity": map[string]string{"type": "StudyHub::User", "id": id},
		}
	}

	sharedWith := make([]interface{}, 0, len(doc.SharedWith))
	for _, id := range doc.SharedWith {
		sharedWith = append(sharedWith, userRef(id))
	}

	entitiesJSON := []map[string]interface{}{
		{
			"uid":     map[string]string{"type": "StudyHub::User", "id": userID},
			"attrs":   map[string]interface{}{},
			"parents": []interface{}{},
		},
		{
			"uid": map[string]string{"type": "StudyHub::Document", "id": doc.ID},
			"attrs": map[string]interface{}{
				"owner":      userRef(doc.OwnerID),
				"kind":       string(doc.Kind),
				"isShared":   doc.IsShared,
				"sharedWith": sharedWith,
			},
			"parents": []interface{}{},
		},
	}

	raw, err := json.Marshal(entitiesJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entities: %w", err)
	}

	var entities cedar.EntityMap
	if err := json.Unmarshal(raw, &entities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entities: %w", err)
	}
	return entities, nil
}
