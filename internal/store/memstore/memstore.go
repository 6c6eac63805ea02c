// Package memstore is an in-process store.Store for local development and
// tests. It honours TTLs lazily: expired keys are dropped when touched.
package memstore

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwise1/skipvote_bot/internal/store"
)

var errWrongType = errors.New("memstore: operation against a key holding the wrong kind of value")

type entry struct {
	value   []byte
	set     map[string]struct{}
	expires time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

type Store struct {
	mu   sync.Mutex
	data map[string]*entry
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock lets tests move time forward to exercise expiry.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		data: make(map[string]*entry),
		now:  now,
	}
}

// lookup returns the live entry for key; callers must hold mu.
func (s *Store) lookup(key string) *entry {
	e, ok := s.data[key]
	if !ok {
		return nil
	}
	if e.expired(s.now()) {
		delete(s.data, key)
		return nil
	}
	return e
}

func (s *Store) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		return nil, store.ErrNotFound
	}
	if e.set != nil {
		return nil, errWrongType
	}
	return bytes.Clone(e.value), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = &entry{value: bytes.Clone(value), expires: s.deadline(ttl)}
	return nil
}

func (s *Store) CompareAndSwap(_ context.Context, key string, prev, next []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil || e.set != nil || !bytes.Equal(e.value, prev) {
		return false, nil
	}
	s.data[key] = &entry{value: bytes.Clone(next), expires: s.deadline(ttl)}
	return true, nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.lookup(key); e != nil {
		e.expires = s.deadline(ttl)
	}
	return nil
}

func (s *Store) AddMember(_ context.Context, key, member string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		e = &entry{set: make(map[string]struct{})}
		s.data[key] = e
	}
	if e.set == nil {
		return errWrongType
	}
	e.set[member] = struct{}{}
	e.expires = s.deadline(ttl)
	return nil
}

func (s *Store) RemoveMember(_ context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		return nil
	}
	if e.set == nil {
		return errWrongType
	}
	delete(e.set, member)
	// an empty set does not exist, same as in redis
	if len(e.set) == 0 {
		delete(s.data, key)
	}
	return nil
}

func (s *Store) Cardinality(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		return 0, nil
	}
	if e.set == nil {
		return 0, errWrongType
	}
	return int64(len(e.set)), nil
}

func (s *Store) Members(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		return nil, nil
	}
	if e.set == nil {
		return nil, errWrongType
	}
	members := make([]string, 0, len(e.set))
	for m := range e.set {
		members = append(members, m)
	}
	sort.Strings(members)
	return members, nil
}

func (s *Store) ScanPrefix(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for k := range s.data {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if s.lookup(k) == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
