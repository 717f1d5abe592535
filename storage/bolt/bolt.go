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

// Package bolt provides a durable storage engine backed by a single BoltDB
// file. Records are CBOR-encoded into one bucket and can optionally be
// compressed with a codec from internal/compression.
package bolt

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	bbolt "go.etcd.io/bbolt"
	"go.uber.org/atomic"

	"github.com/tochemey/edgesim/clock"
	"github.com/tochemey/edgesim/errors"
	"github.com/tochemey/edgesim/internal/compression"
	"github.com/tochemey/edgesim/internal/pointer"
	"github.com/tochemey/edgesim/storage"
)

const (
	fileMode   os.FileMode = 0o600
	bucketName             = "stored_values"
)

var (
	openTimeout        = 5 * time.Second
	defaultBoltOptions = &bbolt.Options{Timeout: openTimeout, NoGrowSync: true}
)

// record is the on-disk shape of a stored value. Expiration travels as unix
// milliseconds, zero meaning no expiration. Encoding names the compression
// codec the value was written with, empty meaning uncompressed.
type record struct {
	Value     []byte            `cbor:"value"`
	ExpiresAt int64             `cbor:"expires_at,omitempty"`
	Metadata  map[string]string `cbor:"metadata,omitempty"`
	Encoding  string            `cbor:"encoding,omitempty"`
}

func (r *record) expired(now time.Time) bool {
	return r.ExpiresAt > 0 && !time.UnixMilli(r.ExpiresAt).After(now)
}

// Store is a storage engine persisting records in a single BoltDB bucket.
//
// bbolt provides single-writer/multi-reader semantics, so the engine only
// guards its close state. Expired records are evicted lazily when a read
// touches them; Sweep removes them in bulk.
type Store struct {
	db     *bbolt.DB
	bucket []byte
	clock  clock.Clock
	codec  compression.Codec
	closed *atomic.Bool
}

// enforce compilation error
var _ storage.Storage = (*Store)(nil)

// NewStore opens (or creates) the BoltDB file at the given path. The database
// is opened with a short timeout to avoid blocking on locked files.
func NewStore(path string, opts ...Option) (*Store, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	optionsCopy := *defaultBoltOptions
	db, err := bbolt.Open(path, fileMode, &optionsCopy)
	if err != nil {
		return nil, fmt.Errorf("bolt: opening database: %w", err)
	}

	bucket := []byte(bucketName)
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(bucket)
		return e
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt: initializing bucket: %w", err)
	}

	return &Store{
		db:     db,
		bucket: bucket,
		clock:  cfg.clock,
		codec:  cfg.codec,
		closed: atomic.NewBool(false),
	}, nil
}

// Has reports whether a live value exists for the given key.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	if err := s.ensureOpen(); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	rec, err := s.load(key)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	if now := s.clock.Now(); rec.expired(now) {
		s.evict(key, now)
		return false, nil
	}
	return true, nil
}

// Get returns the value held against the given key.
func (s *Store) Get(ctx context.Context, key string) (*storage.StoredValue, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := s.load(key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.ErrKeyNotFound
	}
	if now := s.clock.Now(); rec.expired(now) {
		s.evict(key, now)
		return nil, errors.ErrKeyNotFound
	}
	return s.storedValue(rec)
}

// Put stores the given value against the key, compressing it when a codec is
// configured.
func (s *Store) Put(ctx context.Context, key string, value *storage.StoredValue) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if value == nil {
		return fmt.Errorf("bolt: nil stored value for key=(%s)", key)
	}

	rec := &record{Metadata: value.Metadata}
	if s.codec != nil {
		compressed, err := s.codec.Compress(value.Value)
		if err != nil {
			return fmt.Errorf("bolt: compressing record for key=(%s): %w", key, err)
		}
		rec.Value = compressed
		rec.Encoding = s.codec.Name()
	} else {
		rec.Value = value.Value
	}
	if value.Expiration != nil {
		rec.ExpiresAt = value.Expiration.UnixMilli()
	}

	raw, err := cbor.Marshal(rec)
	if err != nil {
		return fmt.Errorf("bolt: encoding record for key=(%s): %w", key, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fmt.Errorf("bolt: bucket %q missing", s.bucket)
		}
		return bucket.Put([]byte(key), raw)
	})
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
	existed := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fmt.Errorf("bolt: bucket %q missing", s.bucket)
		}
		keyBytes := []byte(key)
		raw := bucket.Get(keyBytes)
		if raw == nil {
			return nil
		}
		rec := new(record)
		if err := cbor.Unmarshal(raw, rec); err != nil {
			return fmt.Errorf("bolt: decoding record for key=(%s): %w", key, err)
		}
		existed = !rec.expired(now)
		return bucket.Delete(keyBytes)
	})
	return existed, err
}

// List returns the live keys matching the given options, in lexicographic
// order. Expired records are skipped but left for reads or Sweep to evict.
func (s *Store) List(ctx context.Context, opts storage.ListOptions) (*storage.ListResult, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	keys := make([]string, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fmt.Errorf("bolt: bucket %q missing", s.bucket)
		}

		cursor := bucket.Cursor()
		seek := opts.Start
		if opts.Prefix > seek {
			seek = opts.Prefix
		}

		var k, v []byte
		if seek != "" {
			k, v = cursor.Seek([]byte(seek))
		} else {
			k, v = cursor.First()
		}

		for ; k != nil; k, v = cursor.Next() {
			key := string(k)
			// keys are sorted, so the first key past the prefix or the end
			// bound closes the scan
			if opts.Prefix != "" && !strings.HasPrefix(key, opts.Prefix) {
				break
			}
			if opts.End != "" && key >= opts.End {
				break
			}
			rec := new(record)
			if err := cbor.Unmarshal(v, rec); err != nil {
				return fmt.Errorf("bolt: decoding record for key=(%s): %w", key, err)
			}
			if rec.expired(now) {
				continue
			}
			keys = append(keys, key)
			if opts.Limit > 0 && len(keys) == opts.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &storage.ListResult{Keys: keys}, nil
}

// Sweep removes every expired record and returns how many were deleted.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	if err := s.ensureOpen(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := s.clock.Now()
	swept := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fmt.Errorf("bolt: bucket %q missing", s.bucket)
		}
		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			rec := new(record)
			if err := cbor.Unmarshal(v, rec); err != nil {
				return fmt.Errorf("bolt: decoding record for key=(%s): %w", string(k), err)
			}
			if !rec.expired(now) {
				continue
			}
			if err := cursor.Delete(); err != nil {
				return err
			}
			swept++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return swept, nil
}

// Close releases the underlying BoltDB handle. Close is idempotent.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// load fetches and decodes the record held against the key, nil when absent.
func (s *Store) load(key string) (*record, error) {
	var rec *record
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fmt.Errorf("bolt: bucket %q missing", s.bucket)
		}
		raw := bucket.Get([]byte(key))
		if raw == nil {
			return nil
		}
		decoded := new(record)
		if err := cbor.Unmarshal(raw, decoded); err != nil {
			return fmt.Errorf("bolt: decoding record for key=(%s): %w", key, err)
		}
		rec = decoded
		return nil
	})
	return rec, err
}

// evict removes the key when it still holds an expired record. A concurrent
// Put wins over the eviction.
func (s *Store) evict(key string, now time.Time) {
	_ = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return nil
		}
		keyBytes := []byte(key)
		raw := bucket.Get(keyBytes)
		if raw == nil {
			return nil
		}
		rec := new(record)
		if err := cbor.Unmarshal(raw, rec); err != nil || !rec.expired(now) {
			return nil
		}
		return bucket.Delete(keyBytes)
	})
}

// storedValue converts an on-disk record back into a stored value,
// decompressing it when it was written through a codec.
func (s *Store) storedValue(rec *record) (*storage.StoredValue, error) {
	data := rec.Value
	if rec.Encoding != "" {
		if s.codec == nil || s.codec.Name() != rec.Encoding {
			return nil, fmt.Errorf("bolt: record compressed with codec=(%s) which is not configured", rec.Encoding)
		}
		decompressed, err := s.codec.Decompress(data)
		if err != nil {
			return nil, fmt.Errorf("bolt: decompressing record: %w", err)
		}
		data = decompressed
	}

	value := &storage.StoredValue{
		Value:    data,
		Metadata: rec.Metadata,
	}
	if rec.ExpiresAt > 0 {
		value.Expiration = pointer.To(time.UnixMilli(rec.ExpiresAt))
	}
	return value, nil
}

func (s *Store) ensureOpen() error {
	if s.closed.Load() {
		return errors.ErrStorageClosed
	}
	return nil
}
