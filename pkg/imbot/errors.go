package imbot

import (
	"errors"
	"fmt"
)

// Sentinel errors for bot lifecycle.
var (
	// ErrBotClosed indicates an operation on a bot after Close.
	ErrBotClosed = errors.New("bot is closed")

	// ErrNilBot indicates a contact or event was created without a bot.
	ErrNilBot = errors.New("bot cannot be nil")
)

// Sentinel errors for contact lookups.
var (
	// ErrContactNotFound indicates an *OrFail lookup found nothing.
	ErrContactNotFound = errors.New("contact not found")

	// ErrMemberExists indicates a member was added twice to the same group.
	ErrMemberExists = errors.New("member already exists")
)

// ContactKind names the list a contact lookup searched.
type ContactKind string

// Contact kinds.
const (
	KindFriend   ContactKind = "friend"
	KindGroup    ContactKind = "group"
	KindStranger ContactKind = "stranger"
	KindMember   ContactKind = "member"
)

// ContactError wraps a failed contact lookup with the bot and contact identity.
type ContactError struct {
	BotID int64       // Bot the lookup ran on
	Kind  ContactKind // Contact list searched
	ID    int64       // Requested contact ID
	Err   error       // Underlying error
}

// Error implements error interface.
func (e *ContactError) Error() string {
	return fmt.Sprintf("bot %d: %s %d: %v", e.BotID, e.Kind, e.ID, e.Err)
}

// Unwrap returns the underlying error.
func (e *ContactError) Unwrap() error {
	return e.Err
}

func notFound(botID int64, kind ContactKind, id int64) error {
	return &ContactError{BotID: botID, Kind: kind, ID: id, Err: ErrContactNotFound}
}
