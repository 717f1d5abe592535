// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package memory provides an in-process storage engine, for ephemeral
// simulator state and for tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
	"go.uber.org/atomic"

	"github.com/tochemey/edgesim/clock"
	"github.com/tochemey/edgesim/errors"
	"github.com/tochemey/edgesim/internal/pointer"
	"github.com/tochemey/edgesim/storage"
)

// shardCount is a power of two so the shard pick is a mask over the key hash.
const shardCount = 16

// record is immutable once stored. Put swaps the pointer held by the shard,
// it never mutates a record in place, so readers may touch a record after
// releasing the shard lock.
type record struct {
	value      []byte
	expiration *time.Time
	metadata   map[string]string
}

func newRecord(value *storage.StoredValue) *record {
	rec := &record{
		value:    bytes.Clone(value.Value),
		metadata: maps.Clone(value.Metadata),
	}
	if value.Expiration != nil {
		rec.expiration = pointer.To(*value.Expiration)
	}
	return rec
}

func (r *record) expired(now time.Time) bool {
	return r.expiration != nil && !r.expiration.After(now)
}

func (r *record) storedValue() *storage.StoredValue {
	value := &storage.StoredValue{
		Value:    bytes.Clone(r.value),
		Metadata: maps.Clone(r.metadata),
	}
	if r.expiration != nil {
		value.Expiration = pointer.To(*r.expiration)
	}
	return value
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*record
}

// evict removes the key when it still holds an expired record.
func (sh *shard) evict(key string, now time.Time) {
	sh.mu.Lock()
	if rec, ok := sh.entries[key]; ok && rec.expired(now) {
		delete(sh.entries, key)
	}
	sh.mu.Unlock()
}

// Store is an in-memory storage engine. Keys are spread over a fixed set of
// RWMutex-guarded shards picked by xxh3 hash, so concurrent actors touching
// different keys rarely contend. Expired entries are evicted lazily when a
// read touches them.
type Store struct {
	shards [shardCount]*shard
	clock  clock.Clock
	closed *atomic.Bool
}

// enforce compilation error
var _ storage.Storage = (*Store)(nil)

// NewStore creates an in-memory storage engine.
func NewStore(opts ...Option) *Store {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	store := &Store{
		clock:  cfg.clock,
		closed: atomic.NewBool(false),
	}
	for i := range store.shards {
		store.shards[i] = &shard{entries: make(map[string]*record)}
	}
	return store
}

// Has reports whether a live value exists for the given key.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	if err := s.ensureOpen(); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	now := s.clock.Now()
	sh := s.shardFor(key)
	sh.mu.RLock()
	rec, ok := sh.entries[key]
	sh.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if rec.expired(now) {
		sh.evict(key, now)
		return false, nil
	}
	return true, nil
}

// Get returns a copy of the value held against the given key.
func (s *Store) Get(ctx context.Context, key string) (*storage.StoredValue, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	sh := s.shardFor(key)
	sh.mu.RLock()
	rec, ok := sh.entries[key]
	sh.mu.RUnlock()

	if !ok {
		return nil, errors.ErrKeyNotFound
	}
	if rec.expired(now) {
		sh.evict(key, now)
		return nil, errors.ErrKeyNotFound
	}
	return rec.storedValue(), nil
}

// Put stores a copy of the given value against the key.
func (s *Store) Put(ctx context.Context, key string, value *storage.StoredValue) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if value == nil {
		return fmt.Errorf("memory: nil stored value for key=(%s)", key)
	}

	rec := newRecord(value)
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.entries[key] = rec
	sh.mu.Unlock()
	return nil
}

// Delete removes the value held against the key and reports whether a live
// value existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if err := s.ensureOpen(); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	now := s.clock.Now()
	sh := s.shardFor(key)
	sh.mu.Lock()
	rec, ok := sh.entries[key]
	if ok {
		delete(sh.entries, key)
	}
	sh.mu.Unlock()
	return ok && !rec.expired(now), nil
}

// List returns the live keys matching the given options, in lexicographic
// order. Expired entries are skipped but left for reads to evict.
func (s *Store) List(ctx context.Context, opts storage.ListOptions) (*storage.ListResult, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	keys := make([]string, 0)
	for _, sh := range s.shards {
		sh.mu.RLock()
		for key, rec := range sh.entries {
			if rec.expired(now) || !opts.Match(key) {
				continue
			}
			keys = append(keys, key)
		}
		sh.mu.RUnlock()
	}

	sort.Strings(keys)
	if opts.Limit > 0 && len(keys) > opts.Limit {
		keys = keys[:opts.Limit]
	}
	return &storage.ListResult{Keys: keys}, nil
}

// Len returns the number of entries currently held, expired ones included.
func (s *Store) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.entries)
		sh.mu.RUnlock()
	}
	return total
}

// Close drops every entry. Close is idempotent.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.entries = make(map[string]*record)
		sh.mu.Unlock()
	}
	return nil
}

func (s *Store) shardFor(key string) *shard {
	return s.shards[xxh3.HashString(key)&(shardCount-1)]
}

func (s *Store) ensureOpen() error {
	if s.closed.Load() {
		return errors.ErrStorageClosed
	}
	return nil
}
