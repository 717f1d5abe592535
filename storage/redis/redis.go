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

// Package redis provides a storage engine backed by a Redis server, for
// sharing simulator state across processes. Each key maps to a Redis hash
// holding the value, its metadata and its expiration instant; expiration is
// enforced server-side through PEXPIREAT.
package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/fxamacker/cbor/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/atomic"

	"github.com/tochemey/edgesim/errors"
	"github.com/tochemey/edgesim/internal/pointer"
	"github.com/tochemey/edgesim/storage"
)

const (
	valueField     = "value"
	metadataField  = "metadata"
	expiresAtField = "expires_at"

	scanCount = int64(100)

	retryInitialDelay = 100 * time.Millisecond
	retryMaxDelay     = time.Second
)

// Store is a storage engine persisting records in a Redis server. The store
// owns the given client and closes it when the store is closed.
type Store struct {
	client     goredis.UniversalClient
	namespace  string
	maxRetries int
	closed     *atomic.Bool
}

// enforce compilation error
var _ storage.Storage = (*Store)(nil)

// NewStore creates a Redis storage engine on top of the given client. Keys
// are namespaced so multiple stores can share one server.
func NewStore(client goredis.UniversalClient, opts ...Option) *Store {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Store{
		client:     client,
		namespace:  cfg.namespace,
		maxRetries: cfg.maxRetries,
		closed:     atomic.NewBool(false),
	}
}

// Ping verifies connectivity to the server, retrying transient failures with
// exponential backoff.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}

	retrier := retry.NewRetrier(s.maxRetries, retryInitialDelay, retryMaxDelay)
	return retrier.RunContext(ctx, func(ctx context.Context) error {
		return s.client.Ping(ctx).Err()
	})
}

// Has reports whether a live value exists for the given key.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	if err := s.ensureOpen(); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	count, err := s.client.Exists(ctx, s.name(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: checking key=(%s): %w", key, err)
	}
	return count > 0, nil
}

// Get returns the value held against the given key.
func (s *Store) Get(ctx context.Context, key string) (*storage.StoredValue, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fields, err := s.client.HGetAll(ctx, s.name(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: fetching key=(%s): %w", key, err)
	}
	// HGETALL returns an empty map both for missing and for expired keys
	if len(fields) == 0 {
		return nil, errors.ErrKeyNotFound
	}

	value := &storage.StoredValue{Value: []byte(fields[valueField])}
	if raw, ok := fields[metadataField]; ok {
		metadata := make(map[string]string)
		if err := cbor.Unmarshal([]byte(raw), &metadata); err != nil {
			return nil, fmt.Errorf("redis: decoding metadata for key=(%s): %w", key, err)
		}
		value.Metadata = metadata
	}
	if raw, ok := fields[expiresAtField]; ok {
		millis, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("redis: decoding expiration for key=(%s): %w", key, err)
		}
		value.Expiration = pointer.To(time.UnixMilli(millis))
	}
	return value, nil
}

// Put stores the given value against the key. The previous hash and its TTL
// are dropped in the same transaction so stale fields never leak through.
func (s *Store) Put(ctx context.Context, key string, value *storage.StoredValue) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if value == nil {
		return fmt.Errorf("redis: nil stored value for key=(%s)", key)
	}

	fields := map[string]any{valueField: value.Value}
	if len(value.Metadata) > 0 {
		raw, err := cbor.Marshal(value.Metadata)
		if err != nil {
			return fmt.Errorf("redis: encoding metadata for key=(%s): %w", key, err)
		}
		fields[metadataField] = raw
	}
	if value.Expiration != nil {
		fields[expiresAtField] = strconv.FormatInt(value.Expiration.UnixMilli(), 10)
	}

	name := s.name(key)
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, name)
		pipe.HSet(ctx, name, fields)
		if value.Expiration != nil {
			pipe.PExpireAt(ctx, name, *value.Expiration)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: storing key=(%s): %w", key, err)
	}
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

	count, err := s.client.Del(ctx, s.name(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: deleting key=(%s): %w", key, err)
	}
	return count > 0, nil
}

// List returns the live keys matching the given options, in lexicographic
// order. The whole namespace is scanned, so List is the expensive operation
// of this engine.
func (s *Store) List(ctx context.Context, opts storage.ListOptions) (*storage.ListResult, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := s.name("")
	keys := make([]string, 0)
	iter := s.client.Scan(ctx, 0, prefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		key := strings.TrimPrefix(iter.Val(), prefix)
		if !opts.Match(key) {
			continue
		}
		keys = append(keys, key)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis: scanning keys: %w", err)
	}

	sort.Strings(keys)
	if opts.Limit > 0 && len(keys) > opts.Limit {
		keys = keys[:opts.Limit]
	}
	return &storage.ListResult{Keys: keys}, nil
}

// Close closes the underlying client. Close is idempotent.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.client.Close()
}

func (s *Store) name(key string) string {
	return s.namespace + ":" + key
}

func (s *Store) ensureOpen() error {
	if s.closed.Load() {
		return errors.ErrStorageClosed
	}
	return nil
}
