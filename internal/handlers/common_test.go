package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/challengehub/challengehub/internal/services"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrUserNotFound, http.StatusNotFound},
		{services.ErrVideoNotFound, http.StatusNotFound},
		{services.ErrCommentNotFound, http.StatusNotFound},
		{services.ErrParentNotFound, http.StatusNotFound},
		{services.ErrUsernameTaken, http.StatusBadRequest},
		{services.ErrSelfFollow, http.StatusBadRequest},
		{services.ErrNotVideoFile, http.StatusBadRequest},
		{services.ErrVideoTooLong, http.StatusBadRequest},
		{services.ErrUnknownBadge, http.StatusBadRequest},
		{services.ErrDuplicateSubmission, http.StatusConflict},
		{services.ErrBadgeOwned, http.StatusConflict},
		{services.ErrInsufficientPoints, http.StatusPaymentRequired},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrPermissionDenied, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}

	// Wrapped sentinels still map.
	wrapped := fmt.Errorf("context: %w", services.ErrVideoNotFound)
	assert.Equal(t, http.StatusNotFound, statusFor(wrapped))
}
