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

// Package storage defines the key-value persistence seam the simulation core
// consumes. Values carry optional expiration and free-form string metadata.
//
// The interface is backend-agnostic. The engines shipped with this module are:
//
//   - storage/memory for ephemeral state and tests
//   - storage/bolt for durable single-file persistence
//   - storage/redis for shared state across simulator processes
//
// Implementations must be safe for concurrent use.
package storage

import (
	"context"
	"strings"
	"time"
)

// StoredValue is a value held against a key, together with its optional
// expiration instant and metadata.
type StoredValue struct {
	// Value is the raw payload.
	Value []byte
	// Expiration is the instant the value stops existing. Nil means the value
	// never expires.
	Expiration *time.Time
	// Metadata carries arbitrary string pairs alongside the value.
	Metadata map[string]string
}

// Expired reports whether the value's expiration instant has been reached at
// the given time. A value with no expiration never expires.
func (v *StoredValue) Expired(now time.Time) bool {
	return v != nil && v.Expiration != nil && !v.Expiration.After(now)
}

// ListOptions narrows a List call. The zero value lists every key.
type ListOptions struct {
	// Prefix keeps only keys starting with the given string.
	Prefix string
	// Start is the inclusive lower bound of the listed key range.
	Start string
	// End is the exclusive upper bound of the listed key range.
	End string
	// Limit caps the number of returned keys. Zero means no cap.
	Limit int
}

// Match reports whether the given key falls inside the prefix and range
// bounds. The limit is not considered.
func (o ListOptions) Match(key string) bool {
	if o.Prefix != "" && !strings.HasPrefix(key, o.Prefix) {
		return false
	}
	if o.Start != "" && key < o.Start {
		return false
	}
	if o.End != "" && key >= o.End {
		return false
	}
	return true
}

// ListResult holds the keys matched by a List call, in lexicographic order.
type ListResult struct {
	Keys []string
}

// Storage is the persistence contract of the simulation core. Keys whose
// expiration instant has been reached behave as absent on every operation.
type Storage interface {
	// Has reports whether a live value exists for the given key.
	Has(ctx context.Context, key string) (bool, error)
	// Get returns the value held against the given key. It returns
	// errors.ErrKeyNotFound when the key is absent or expired.
	Get(ctx context.Context, key string) (*StoredValue, error)
	// Put stores the given value against the key, replacing any previous
	// value. Implementations keep their own copy, so the caller may reuse the
	// value afterwards.
	Put(ctx context.Context, key string, value *StoredValue) error
	// Delete removes the value held against the key and reports whether a
	// live value existed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns the live keys matching the given options, in lexicographic
	// order.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)
	// Close releases the engine's resources. Operations after Close return
	// errors.ErrStorageClosed.
	Close() error
}
