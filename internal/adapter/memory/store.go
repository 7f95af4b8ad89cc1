package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hafbjorn109/wiperino/internal/domain"
	"github.com/jonboulle/clockwork"
)

type entry struct {
	value     string
	list      []string
	isList    bool
	expiresAt time.Time
}

// Store is an in-memory domain.EphemeralStore. Expiry is evaluated lazily
// against the injected clock on every access.
type Store struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	entries map[string]*entry
}

func NewStore(clock clockwork.Clock) *Store {
	return &Store{
		clock:   clock,
		entries: make(map[string]*entry),
	}
}

// live returns the entry for key, dropping it first if it has expired.
// Caller must hold s.mu.
func (s *Store) live(key string) (*entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !s.clock.Now().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil, false
	}
	return e, true
}

func (s *Store) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.clock.Now().Add(ttl)
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok || e.isList {
		return "", domain.ErrKeyNotFound
	}
	return e.value, nil
}

func (s *Store) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &entry{value: value, expiresAt: s.expiry(ttl)}
	return nil
}

func (s *Store) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live(key); ok {
		return false, nil
	}
	s.entries[key] = &entry{value: value, expiresAt: s.expiry(ttl)}
	return true, nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}

func (s *Store) ListAppend(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok || !e.isList {
		e = &entry{isList: true}
		s.entries[key] = e
	}
	e.list = append(e.list, value)
	e.expiresAt = s.expiry(ttl)
	return nil
}

func (s *Store) ListRemove(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok || !e.isList {
		return nil
	}
	e.list = slices.DeleteFunc(e.list, func(v string) bool { return v == value })
	if len(e.list) == 0 {
		delete(s.entries, key)
	}
	return nil
}

func (s *Store) ListRange(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok || !e.isList {
		return []string{}, nil
	}
	return slices.Clone(e.list), nil
}
