// Package msgdb stores metadata of the messages a mock bot sends and receives,
// so that message sources can be resolved and recalled later.
package msgdb

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

// Database stores message metadata keyed by a 64-bit message ID.
// Implementations must be safe for concurrent use.
type Database interface {
	// NewMessageInfo allocates a new message ID and stores its metadata.
	NewMessageInfo(ctx context.Context, sender, subject int64, kind Kind) (MessageInfo, error)

	// Query returns the metadata of a message.
	// Returns ErrNotFound if the message doesn't exist.
	Query(ctx context.Context, id int64) (MessageInfo, error)

	// Remove deletes a message. Returns nil if it doesn't exist.
	Remove(ctx context.Context, id int64) error

	// Close releases any resources. Closing twice is safe.
	Close() error
}

// Kind is the conversation type a message was sent in.
type Kind int

const (
	KindFriend Kind = iota
	KindGroup
	KindTemp
	KindStranger
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindFriend:
		return "friend"
	case KindGroup:
		return "group"
	case KindTemp:
		return "temp"
	case KindStranger:
		return "stranger"
	default:
		return "unknown"
	}
}

// MessageInfo is the stored metadata of one message.
type MessageInfo struct {
	ID      int64
	Sender  int64
	Subject int64 // Friend, group or stranger the message belongs to
	Kind    Kind
	Time    time.Time
}

// IDs returns the high half of the message ID.
func (m MessageInfo) IDs() int32 { return int32(m.ID >> 32) }

// InternalID returns the low half of the message ID.
func (m MessageInfo) InternalID() int32 { return int32(m.ID) }

// ComposeID joins the two halves of a message ID. Both halves are taken as unsigned.
func ComposeID(ids, internalID int32) int64 {
	return int64(uint64(uint32(ids))<<32 | uint64(uint32(internalID)))
}

// Sentinel errors for database operations.
var (
	// ErrNotFound indicates a message doesn't exist.
	ErrNotFound = errors.New("message not found")

	// ErrClosed indicates the database has been closed.
	ErrClosed = errors.New("message database closed")

	// ErrUnknownDriver indicates Open was given a driver it doesn't know.
	ErrUnknownDriver = errors.New("unknown message database driver")
)

// Open creates a database by driver name: "memory" or "sqlite".
// path is ignored by the memory driver.
func Open(driver, path string) (Database, error) {
	switch driver {
	case "", "memory":
		return NewMemoryDatabase(), nil
	case "sqlite":
		return NewSQLiteDatabase(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// idSource hands out message IDs: a sequence number in the high half and a
// random internal ID in the low half.
type idSource struct {
	seq atomic.Int32
}

func newIDSource() *idSource {
	s := &idSource{}
	s.seq.Store(rand.Int32N(1 << 16))
	return s
}

func (s *idSource) next() int64 {
	return ComposeID(s.seq.Add(1), rand.Int32())
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
