package services

import "errors"

// Validation failures are detected before any write and surfaced directly;
// no partial state change accompanies them.
var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrUserNotFound    = errors.New("user not found")
	ErrVideoNotFound   = errors.New("video not found")
	ErrCommentNotFound = errors.New("comment not found")

	ErrSelfFollow       = errors.New("cannot follow yourself")
	ErrPermissionDenied = errors.New("permission denied")

	ErrNotVideoFile        = errors.New("only video files allowed")
	ErrFileTooLarge        = errors.New("file exceeds size limit")
	ErrVideoTooLong        = errors.New("video exceeds duration limit")
	ErrDuplicateSubmission = errors.New("already submitted a video for this challenge")

	ErrEmptyComment   = errors.New("comment text is empty")
	ErrParentNotFound = errors.New("parent comment not found")
	ErrParentMismatch = errors.New("parent comment does not belong to this video")
	ErrReplyDepth     = errors.New("replies cannot be replied to")

	ErrUnknownBadge       = errors.New("unknown badge")
	ErrBadgeOwned         = errors.New("badge already owned")
	ErrInsufficientPoints = errors.New("not enough points")
)
