// Package apperr defines the error taxonomy shared by the repository,
// services and HTTP handlers. Handlers map these sentinels to status codes;
// everything else wraps them with %w so errors.Is keeps working.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthenticated means no caller identity was supplied.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotFound means the id has no record, or the caller cannot see it.
	ErrNotFound = errors.New("document not found")
	// ErrPermissionDenied means a non-owner attempted an owner-only operation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidCode means a join was attempted with an unknown or inactive code.
	ErrInvalidCode = errors.New("invalid share code")
	// ErrAlreadyMember means the caller already belongs to the shared hub.
	ErrAlreadyMember = errors.New("already a member")
	// ErrHasChildren blocks permanent deletion while live children exist.
	ErrHasChildren = errors.New("document still has active children")
	// ErrInvalidParent means the requested parent cannot hold children.
	ErrInvalidParent = errors.New("parent cannot hold children")
	// ErrStoreUnavailable wraps transport or backing-store failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)

var sentinels = []error{
	ErrUnauthenticated, ErrNotFound, ErrPermissionDenied, ErrInvalidCode,
	ErrAlreadyMember, ErrHasChildren, ErrInvalidParent, ErrStoreUnavailable,
}

// Message returns the notice shown to clients for err. Wrapped detail (driver
// errors, ids) belongs in logs and never reaches a response body.
func Message(err error) string {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal error"
}

// HTTPStatus returns the status code for an error from this taxonomy.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidCode):
		return http.StatusNotFound
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrAlreadyMember), errors.Is(err, ErrHasChildren):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidParent):
		return http.StatusBadRequest
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
