package otp

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("otp entry not found")

// Entry is the per-email OTP record. The code itself is never stored, only its bcrypt hash.
type Entry struct {
	CodeHash      string    `json:"code_hash,omitempty"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	CooldownUntil time.Time `json:"cooldown_until"`
	Attempts      int       `json:"attempts"`
	Verified      bool      `json:"verified"`
	VerifiedAt    time.Time `json:"verified_at,omitzero"`
	ResetDeadline time.Time `json:"reset_deadline,omitzero"`
}

// Deadline is the latest moment at which the entry still matters.
func (e *Entry) Deadline() time.Time {
	deadline := e.ExpiresAt
	if e.CooldownUntil.After(deadline) {
		deadline = e.CooldownUntil
	}
	if e.Verified && e.ResetDeadline.After(deadline) {
		deadline = e.ResetDeadline
	}
	return deadline
}

func (e *Entry) Stale(now time.Time) bool {
	return !now.Before(e.Deadline())
}

// Mutation tells a Store what to do with a key once an UpdateFunc returns.
type Mutation int

const (
	Keep Mutation = iota
	Replace
	Remove
)

// UpdateFunc receives the current entry (nil when absent). The mutation is applied even when err is non-nil.
type UpdateFunc func(current *Entry) (next *Entry, m Mutation, err error)

type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Delete(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *MemoryStore) Update(_ context.Context, key string, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *Entry
	if e, ok := s.entries[key]; ok {
		current = &e
	}

	next, m, err := fn(current)
	switch m {
	case Replace:
		if next != nil {
			s.entries[key] = *next
		}
	case Remove:
		delete(s.entries, key)
	}
	return err
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if e.Stale(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
