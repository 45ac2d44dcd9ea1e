package msgdb

import (
	"context"
	"sync"
)

// MemoryDatabase keeps message metadata in memory.
// Data is lost when the process exits.
type MemoryDatabase struct {
	ids *idSource

	mu     sync.RWMutex
	data   map[int64]MessageInfo
	closed bool
}

// NewMemoryDatabase creates an empty in-memory database.
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		ids:  newIDSource(),
		data: make(map[int64]MessageInfo),
	}
}

// NewMessageInfo implements Database.
func (m *MemoryDatabase) NewMessageInfo(_ context.Context, sender, subject int64, kind Kind) (MessageInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return MessageInfo{}, ErrClosed
	}

	info := MessageInfo{Sender: sender, Subject: subject, Kind: kind, Time: now()}
	for {
		info.ID = m.ids.next()
		if _, taken := m.data[info.ID]; !taken {
			break
		}
	}
	m.data[info.ID] = info
	return info, nil
}

// Query implements Database.
func (m *MemoryDatabase) Query(_ context.Context, id int64) (MessageInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return MessageInfo{}, ErrClosed
	}

	info, ok := m.data[id]
	if !ok {
		return MessageInfo{}, ErrNotFound
	}
	return info, nil
}

// Remove implements Database.
func (m *MemoryDatabase) Remove(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	delete(m.data, id)
	return nil
}

// Len returns the number of stored messages.
func (m *MemoryDatabase) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Close implements Database.
func (m *MemoryDatabase) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

var _ Database = (*MemoryDatabase)(nil)
