// Package store provides the versioned concurrent map both registries are
// built on.
//
// Records are immutable snapshots held by pointer. A writer reads the current
// snapshot, builds a modified copy and commits it with CompareAndReplace,
// which succeeds only if the stored pointer is still the one that was read.
// No lock is ever held across two keys.
package store

import (
	"errors"
	"sync"

	"github.com/dmitrijs2005/turing/internal/common"
)

// Option configures a Store.
type Option func(*options)

type options struct {
	onConflict func()
}

// WithConflictHook registers fn to be called each time a commit loses a race.
func WithConflictHook(fn func()) Option {
	return func(o *options) { o.onConflict = fn }
}

// Store is a concurrent associative store of snapshot pointers.
// The zero value is not usable; call New.
type Store[K comparable, V any] struct {
	m    sync.Map // K -> *V
	opts options
}

// New creates an empty Store.
func New[K comparable, V any](opts ...Option) *Store[K, V] {
	s := &Store[K, V]{}
	for _, o := range opts {
		o(&s.opts)
	}
	return s
}

// Get returns the current snapshot for key.
func (s *Store[K, V]) Get(key K) (*V, bool) {
	v, ok := s.m.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*V), true
}

// InsertIfAbsent stores value under key unless the key is already present.
// It reports whether the value was stored.
func (s *Store[K, V]) InsertIfAbsent(key K, value *V) bool {
	_, loaded := s.m.LoadOrStore(key, value)
	return !loaded
}

// CompareAndReplace atomically replaces the snapshot stored under key with
// next, provided the stored snapshot is still prev (pointer identity).
// It returns false without mutating anything otherwise, including when the
// key is absent.
func (s *Store[K, V]) CompareAndReplace(key K, prev, next *V) bool {
	if prev == nil {
		return false
	}
	if s.m.CompareAndSwap(key, prev, next) {
		return true
	}
	if s.opts.onConflict != nil {
		s.opts.onConflict()
	}
	return false
}

// Delete removes key unconditionally.
func (s *Store[K, V]) Delete(key K) {
	s.m.Delete(key)
}

// Range calls fn for each key and its current snapshot until fn returns false.
func (s *Store[K, V]) Range(fn func(key K, value *V) bool) {
	s.m.Range(func(k, v any) bool {
		return fn(k.(K), v.(*V))
	})
}

// Update performs one read-derive-commit cycle. derive receives the current
// snapshot, which it must not modify, and returns the replacement.
// A lost race yields common.ErrConflict; a missing key yields
// common.ErrorNotFound; errors returned by derive are passed through and
// nothing is committed.
func (s *Store[K, V]) Update(key K, derive func(cur *V) (*V, error)) (*V, error) {
	cur, ok := s.Get(key)
	if !ok {
		return nil, common.ErrorNotFound
	}
	next, err := derive(cur)
	if err != nil {
		return nil, err
	}
	if !s.CompareAndReplace(key, cur, next) {
		return nil, common.ErrConflict
	}
	return next, nil
}

// UpdateRetry repeats Update until it does not lose a race.
//
// There is no attempt limit: every lost race means another writer committed,
// so progress is made system-wide, but a single caller can in principle be
// starved under pathological contention.
func (s *Store[K, V]) UpdateRetry(key K, derive func(cur *V) (*V, error)) (*V, error) {
	for {
		next, err := s.Update(key, derive)
		if errors.Is(err, common.ErrConflict) {
			continue
		}
		return next, err
	}
}
