package session

import (
	"context"
	"encoding/json"
	"sync"
)

// Persisted slot names. Fixed, unversioned: the stored shapes are never
// migrated.
const (
	TokenKey    = "projectflow_token"
	SnapshotKey = "projectflow_user"
)

// TokenStore is a named slot holding at most one opaque credential. No
// validation, no expiry inspection; presence or absence is all callers
// get.
type TokenStore interface {
	GetToken(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// SnapshotStore persists the last-known User for optimistic restoration
// on the next start. The snapshot is never authoritative.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context) (*User, error)
	SetSnapshot(ctx context.Context, user *User) error
	ClearSnapshot(ctx context.Context) error
}

// Store combines both slots. LocalStore and MemoryStore implement it.
type Store interface {
	TokenStore
	SnapshotStore
}

// MemoryStore is a process-local Store. It backs tests and serves as the
// default when no durable store is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: map[string]string{}}
}

func (s *MemoryStore) get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.slots[key]
	return v, ok
}

func (s *MemoryStore) set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = value
}

func (s *MemoryStore) clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, key)
}

// GetToken returns the stored credential, or empty when absent.
func (s *MemoryStore) GetToken(_ context.Context) (string, error) {
	v, _ := s.get(TokenKey)
	return v, nil
}

// SetToken stores the credential. An empty token clears the slot.
func (s *MemoryStore) SetToken(_ context.Context, token string) error {
	if token == "" {
		s.clear(TokenKey)
		return nil
	}
	s.set(TokenKey, token)
	return nil
}

// ClearToken removes the credential slot.
func (s *MemoryStore) ClearToken(_ context.Context) error {
	s.clear(TokenKey)
	return nil
}

// GetSnapshot returns the cached User, or nil when absent or unreadable.
func (s *MemoryStore) GetSnapshot(_ context.Context) (*User, error) {
	raw, ok := s.get(SnapshotKey)
	if !ok || raw == "" {
		return nil, nil
	}
	return decodeSnapshot(raw)
}

// SetSnapshot stores the User. A nil user clears the slot.
func (s *MemoryStore) SetSnapshot(_ context.Context, user *User) error {
	if user == nil {
		s.clear(SnapshotKey)
		return nil
	}
	raw, err := encodeSnapshot(user)
	if err != nil {
		return err
	}
	s.set(SnapshotKey, raw)
	return nil
}

// ClearSnapshot removes the cached User slot.
func (s *MemoryStore) ClearSnapshot(_ context.Context) error {
	s.clear(SnapshotKey)
	return nil
}

func encodeSnapshot(user *User) (string, error) {
	raw, err := json.Marshal(user)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeSnapshot(raw string) (*User, error) {
	user := &User{}
	if err := json.Unmarshal([]byte(raw), user); err != nil {
		// A corrupt snapshot behaves like an absent one; the next
		// authoritative re-validation rewrites it.
		return nil, nil
	}
	return user, nil
}
