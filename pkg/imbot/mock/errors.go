package mock

import "errors"

// Sentinel errors for mock actions.
var (
	// ErrMessageCancelled indicates a GroupMessagePreSendEvent listener cancelled the send.
	ErrMessageCancelled = errors.New("message sending cancelled")

	// ErrForeignContact indicates a contact of another bot was passed to an action.
	ErrForeignContact = errors.New("contact belongs to another bot")

	// ErrInvalidCacheSize indicates a profile service with a non-positive capacity.
	ErrInvalidCacheSize = errors.New("profile cache size must be positive")

	// ErrPermissionDenied indicates the bot's group role is too low for an action.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnsupportedRecall indicates a message kind that has no recall event.
	ErrUnsupportedRecall = errors.New("message kind cannot be recalled")

	// ErrInvalidNudgeTarget indicates a contact that cannot take part in a nudge.
	ErrInvalidNudgeTarget = errors.New("contact cannot be nudged")
)
