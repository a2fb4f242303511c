// Package local is the in-process status store used when no Redis address
// is configured.
package local

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds Store settings.
type Config struct {
	// GCInterval is how often expired keys are swept.
	GCInterval time.Duration
}

type value struct {
	data     string
	expireAt time.Time
}

func (v value) expired(now time.Time) bool {
	return !v.expireAt.IsZero() && now.After(v.expireAt)
}

// Store keeps strings, hashes and capped lists in memory.
type Store struct {
	mu     sync.RWMutex
	kv     map[string]value
	hashes map[string]map[string]string
	lists  map[string][]string
	stop   chan struct{}
	once   sync.Once
}

// NewStore creates a Store and starts its expiry sweeper.
func NewStore(cfg Config) *Store {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	s := &Store{
		kv:     make(map[string]value),
		hashes: make(map[string]map[string]string),
		lists:  make(map[string][]string),
		stop:   make(chan struct{}),
	}
	go s.sweep(interval)
	return s
}

// Close stops the sweeper.
func (s *Store) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *Store) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			s.mu.Lock()
			for k, v := range s.kv {
				if v.expired(now) {
					delete(s.kv, k)
				}
			}
			s.mu.Unlock()
		case <-s.stop:
			return
		}
	}
}

func (s *Store) Set(_ context.Context, key, val string, ttl time.Duration) error {
	v := value{data: val}
	if ttl > 0 {
		v.expireAt = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.kv[key] = v
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	v, ok := s.kv[key]
	s.mu.RUnlock()
	if !ok || v.expired(time.Now()) {
		return "", ErrNotFound
	}
	return v.data, nil
}

// Del removes keys of any kind.
func (s *Store) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.kv, k)
		delete(s.hashes, k)
		delete(s.lists, k)
	}
	return nil
}

func (s *Store) HSet(_ context.Context, key, field, val string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string)
		s.hashes[key] = h
	}
	h[field] = val
	return nil
}

// HGet returns one field of a hash, or ErrNotFound.
func (s *Store) HGet(_ context.Context, key, field string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.hashes[key][field]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// HGetAll returns a copy of the hash; a missing key yields an empty map.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.hashes[key]))
	for f, v := range s.hashes[key] {
		out[f] = v
	}
	return out, nil
}

func (s *Store) HDel(_ context.Context, key string, fields ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.hashes[key]
	for _, f := range fields {
		delete(h, f)
	}
	if len(h) == 0 {
		delete(s.hashes, key)
	}
	return nil
}

// LPush prepends values one by one, so the last value ends up first.
func (s *Store) LPush(_ context.Context, key string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[key]
	head := make([]string, 0, len(values)+len(l))
	for i := len(values) - 1; i >= 0; i-- {
		head = append(head, values[i])
	}
	s.lists[key] = append(head, l...)
	return nil
}

// LRange follows Redis index rules: negative indexes count from the tail.
func (s *Store) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l := s.lists[key]
	lo, hi, ok := bounds(int64(len(l)), start, stop)
	if !ok {
		return []string{}, nil
	}
	out := make([]string, hi-lo+1)
	copy(out, l[lo:hi+1])
	return out, nil
}

func (s *Store) LTrim(_ context.Context, key string, start, stop int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[key]
	lo, hi, ok := bounds(int64(len(l)), start, stop)
	if !ok {
		delete(s.lists, key)
		return nil
	}
	s.lists[key] = append([]string(nil), l[lo:hi+1]...)
	return nil
}

func bounds(n, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	start = max(start, 0)
	stop = min(stop, n-1)
	return start, stop, start <= stop && n > 0
}
