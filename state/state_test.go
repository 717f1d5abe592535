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

package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/edgesim/errors"
	"github.com/tochemey/edgesim/internal/pause"
	"github.com/tochemey/edgesim/storage"
	"github.com/tochemey/edgesim/storage/memory"
)

// blockingStore holds the first Put until released, so tests can observe the
// gates while a write is in flight.
type blockingStore struct {
	storage.Storage
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) Put(ctx context.Context, key string, value *storage.StoredValue) error {
	close(b.entered)
	<-b.release
	return b.Storage.Put(ctx, key, value)
}

// failingStore rejects every write.
type failingStore struct {
	storage.Storage
}

func (f *failingStore) Put(context.Context, string, *storage.StoredValue) error {
	return assert.AnError
}

func TestState(t *testing.T) {
	t.Run("With round trip", func(t *testing.T) {
		ctx := context.Background()
		st := New("actor-1", memory.NewStore())
		assert.Equal(t, "actor-1", st.ID())

		require.NoError(t, st.Put(ctx, "doc", &storage.StoredValue{Value: []byte("v1")}))

		exists, err := st.Has(ctx, "doc")
		require.NoError(t, err)
		assert.True(t, exists)

		value, err := st.Get(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), value.Value)

		result, err := st.List(ctx, storage.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"doc"}, result.Keys)

		existed, err := st.Delete(ctx, "doc")
		require.NoError(t, err)
		assert.True(t, existed)

		_, err = st.Get(ctx, "doc")
		require.ErrorIs(t, err, errors.ErrKeyNotFound)

		// both gates are open once the dust settles
		assert.True(t, st.InputGate().Opened())
		assert.True(t, st.OutputGate().Opened())
	})

	t.Run("With serialized turns", func(t *testing.T) {
		st := New("actor-1", memory.NewStore())

		active := 0
		maxSeen := 0
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = st.RunWith(func() error {
					active++
					if active > maxSeen {
						maxSeen = active
					}
					pause.For(time.Millisecond)
					active--
					return nil
				})
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, maxSeen)
	})

	t.Run("With reads held back while concurrency is blocked", func(t *testing.T) {
		ctx := context.Background()
		st := New("actor-1", memory.NewStore())

		entered := make(chan struct{})
		release := make(chan struct{})
		blocked := make(chan struct{})
		go func() {
			_ = st.BlockConcurrencyWhile(func() error {
				close(entered)
				<-release
				return nil
			})
		}()
		<-entered

		go func() {
			_, _ = st.Get(ctx, "doc")
			close(blocked)
		}()

		pause.For(100 * time.Millisecond)
		select {
		case <-blocked:
			require.Fail(t, "read went through a closed input gate")
		default:
		}

		close(release)
		select {
		case <-blocked:
		case <-time.After(time.Second):
			require.Fail(t, "read never resumed after the input gate reopened")
		}
	})

	t.Run("With writes holding the output gate", func(t *testing.T) {
		ctx := context.Background()
		engine := memory.NewStore()
		blocking := &blockingStore{
			Storage: engine,
			entered: make(chan struct{}),
			release: make(chan struct{}),
		}
		st := New("actor-1", blocking)

		putDone := make(chan error, 1)
		go func() {
			putDone <- st.Put(ctx, "doc", &storage.StoredValue{Value: []byte("v1")})
		}()
		<-blocking.entered

		observed := make(chan struct{})
		go func() {
			st.WaitForOutput()
			close(observed)
		}()

		pause.For(100 * time.Millisecond)
		select {
		case <-observed:
			require.Fail(t, "output gate opened before the write landed")
		default:
		}
		assert.False(t, st.OutputGate().Opened())

		close(blocking.release)
		require.NoError(t, <-putDone)
		select {
		case <-observed:
		case <-time.After(time.Second):
			require.Fail(t, "output gate never reopened")
		}

		// the write reached the engine
		value, err := engine.Get(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), value.Value)
	})

	t.Run("With failing writes reopening the gates", func(t *testing.T) {
		ctx := context.Background()
		st := New("actor-1", &failingStore{Storage: memory.NewStore()})

		err := st.Put(ctx, "doc", &storage.StoredValue{Value: []byte("v1")})
		require.ErrorIs(t, err, assert.AnError)

		assert.True(t, st.InputGate().Opened())
		assert.True(t, st.OutputGate().Opened())

		// the state keeps taking turns after a failed write
		_, err = st.Get(ctx, "doc")
		require.ErrorIs(t, err, errors.ErrKeyNotFound)
	})
}
