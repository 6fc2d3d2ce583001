package handlers

import (
	"errors"
	"net/http"

	"github.com/challengehub/challengehub/internal/services"
)

// statusFor maps service failures onto HTTP statuses. Validation failures
// carry no partial state and are client errors; everything unrecognized is
// a server error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrVideoNotFound),
		errors.Is(err, services.ErrCommentNotFound),
		errors.Is(err, services.ErrParentNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrSelfFollow),
		errors.Is(err, services.ErrNotVideoFile),
		errors.Is(err, services.ErrFileTooLarge),
		errors.Is(err, services.ErrVideoTooLong),
		errors.Is(err, services.ErrEmptyComment),
		errors.Is(err, services.ErrParentMismatch),
		errors.Is(err, services.ErrReplyDepth),
		errors.Is(err, services.ErrUnknownBadge):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrDuplicateSubmission),
		errors.Is(err, services.ErrBadgeOwned):
		return http.StatusConflict
	case errors.Is(err, services.ErrInsufficientPoints):
		return http.StatusPaymentRequired
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrPermissionDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
