package statsservice

import "errors"

var (
	// ErrInvalidGroup is returned when an operation is called without a group id.
	ErrInvalidGroup = errors.New("group id is required")

	// ErrResultNotFound is returned when a result id is not in the result log.
	ErrResultNotFound = errors.New("result not found")

	// ErrPlayerNotFound is returned when a player is not part of the group.
	ErrPlayerNotFound = errors.New("player not found in group")

	// ErrGroupMismatch is returned when a result or its session belongs to another group.
	ErrGroupMismatch = errors.New("result belongs to a different group")

	// ErrSessionNotFound is returned when a result names an unknown session.
	ErrSessionNotFound = errors.New("session not found")
)
