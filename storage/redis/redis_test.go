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

package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/edgesim/errors"
	"github.com/tochemey/edgesim/storage"
)

// testStore builds a store against the server at REDIS_ADDR under a unique
// namespace, skipping the test when no server is available.
func testStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR is not set")
	}

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	store := NewStore(client, WithNamespace(fmt.Sprintf("edgesim-test-%s", uuid.NewString())))
	t.Cleanup(func() {
		ctx := context.Background()
		if result, err := store.List(ctx, storage.ListOptions{}); err == nil {
			for _, key := range result.Keys {
				_, _ = store.Delete(ctx, key)
			}
		}
		_ = store.Close()
	})
	return store
}

func TestStore(t *testing.T) {
	t.Run("With ping", func(t *testing.T) {
		store := testStore(t)
		require.NoError(t, store.Ping(context.Background()))
	})

	t.Run("With round trip", func(t *testing.T) {
		ctx := context.Background()
		store := testStore(t)

		err := store.Put(ctx, "users/jane", &storage.StoredValue{
			Value:    []byte("jane"),
			Metadata: map[string]string{"kind": "profile"},
		})
		require.NoError(t, err)

		exists, err := store.Has(ctx, "users/jane")
		require.NoError(t, err)
		assert.True(t, exists)

		value, err := store.Get(ctx, "users/jane")
		require.NoError(t, err)
		assert.Equal(t, []byte("jane"), value.Value)
		assert.Equal(t, map[string]string{"kind": "profile"}, value.Metadata)
		assert.Nil(t, value.Expiration)

		existed, err := store.Delete(ctx, "users/jane")
		require.NoError(t, err)
		assert.True(t, existed)

		_, err = store.Get(ctx, "users/jane")
		require.ErrorIs(t, err, errors.ErrKeyNotFound)

		existed, err = store.Delete(ctx, "users/jane")
		require.NoError(t, err)
		assert.False(t, existed)
	})

	t.Run("With expiration", func(t *testing.T) {
		ctx := context.Background()
		store := testStore(t)

		expiration := time.Now().Add(150 * time.Millisecond)
		err := store.Put(ctx, "session", &storage.StoredValue{Value: []byte("token"), Expiration: &expiration})
		require.NoError(t, err)

		value, err := store.Get(ctx, "session")
		require.NoError(t, err)
		require.NotNil(t, value.Expiration)
		assert.Equal(t, expiration.UnixMilli(), value.Expiration.UnixMilli())

		time.Sleep(300 * time.Millisecond)

		exists, err := store.Has(ctx, "session")
		require.NoError(t, err)
		assert.False(t, exists)
		_, err = store.Get(ctx, "session")
		require.ErrorIs(t, err, errors.ErrKeyNotFound)
	})

	t.Run("With replaced expiration", func(t *testing.T) {
		ctx := context.Background()
		store := testStore(t)

		expiration := time.Now().Add(150 * time.Millisecond)
		require.NoError(t, store.Put(ctx, "session", &storage.StoredValue{Value: []byte("short"), Expiration: &expiration}))
		// overwriting without an expiration clears the pending TTL
		require.NoError(t, store.Put(ctx, "session", &storage.StoredValue{Value: []byte("forever")}))

		time.Sleep(300 * time.Millisecond)

		value, err := store.Get(ctx, "session")
		require.NoError(t, err)
		assert.Equal(t, []byte("forever"), value.Value)
		assert.Nil(t, value.Expiration)
	})

	t.Run("With list", func(t *testing.T) {
		ctx := context.Background()
		store := testStore(t)

		for _, key := range []string{"section2/a", "section1/b", "other", "section1/a"} {
			require.NoError(t, store.Put(ctx, key, &storage.StoredValue{Value: []byte(key)}))
		}

		result, err := store.List(ctx, storage.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"other", "section1/a", "section1/b", "section2/a"}, result.Keys)

		result, err = store.List(ctx, storage.ListOptions{Prefix: "section1/"})
		require.NoError(t, err)
		assert.Equal(t, []string{"section1/a", "section1/b"}, result.Keys)

		result, err = store.List(ctx, storage.ListOptions{Start: "section1/b", End: "section2/b"})
		require.NoError(t, err)
		assert.Equal(t, []string{"section1/b", "section2/a"}, result.Keys)

		result, err = store.List(ctx, storage.ListOptions{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"other", "section1/a"}, result.Keys)

		// stores with different namespaces do not see each other's keys
		other := testStore(t)
		result, err = other.List(ctx, storage.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, result.Keys)
	})

	t.Run("With closed store", func(t *testing.T) {
		ctx := context.Background()
		store := testStore(t)
		require.NoError(t, store.Close())

		_, err := store.Get(ctx, "doc")
		require.ErrorIs(t, err, errors.ErrStorageClosed)
		err = store.Put(ctx, "doc", &storage.StoredValue{Value: []byte("v")})
		require.ErrorIs(t, err, errors.ErrStorageClosed)
		err = store.Ping(ctx)
		require.ErrorIs(t, err, errors.ErrStorageClosed)

		// Close is idempotent
		require.NoError(t, store.Close())
	})
}
