package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapsWrappedSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{ErrUnauthenticated, http.StatusUnauthorized},
		{ErrNotFound, http.StatusNotFound},
		{ErrInvalidCode, http.StatusNotFound},
		{ErrPermissionDenied, http.StatusForbidden},
		{ErrAlreadyMember, http.StatusConflict},
		{ErrHasChildren, http.StatusConflict},
		{ErrInvalidParent, http.StatusBadRequest},
		{ErrStoreUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, HTTPStatus(tc.err))
		assert.Equal(t, tc.status, HTTPStatus(fmt.Errorf("%w: wrapped", tc.err)))
	}
}

func TestMessageHidesWrappedDetail(t *testing.T) {
	err := fmt.Errorf("%w: %v", ErrStoreUnavailable,
		errors.New(`pq: password authentication failed for user "studyhub"`))

	assert.Equal(t, "store unavailable", Message(err))
	assert.NotContains(t, Message(err), "pq:")
	assert.Equal(t, "internal error", Message(errors.New("boom")))
}
