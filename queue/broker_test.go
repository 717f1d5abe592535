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

package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/tochemey/edgesim/errors"
	"github.com/tochemey/edgesim/log"
)

func noopDispatcher(context.Context, *MessageBatch) error {
	return nil
}

func TestQueueBroker(t *testing.T) {
	t.Run("With queue identity", func(t *testing.T) {
		broker := NewQueueBroker(WithLogger(log.DiscardLogger))
		first := broker.GetOrCreateQueue("orders")
		second := broker.GetOrCreateQueue("orders")
		require.Same(t, first, second)

		// a send through one handle is visible through the other
		require.NoError(t, first.Send(context.Background(), "m1"))
		assert.Equal(t, 1, second.Buffered())

		assert.ElementsMatch(t, []string{"orders"}, broker.Queues())
		_, ok := broker.Queue("billing")
		assert.False(t, ok)
	})
	t.Run("With broker identity", func(t *testing.T) {
		first := NewQueueBroker(WithLogger(log.DiscardLogger))
		second := NewQueueBroker(WithLogger(log.DiscardLogger))
		require.NotEmpty(t, first.ID())
		require.NotEmpty(t, second.ID())
		assert.NotEqual(t, first.ID(), second.ID())
	})
}

func TestSetConsumer(t *testing.T) {
	t.Run("With a single consumer per queue", func(t *testing.T) {
		ctx := context.Background()
		broker := NewQueueBroker(WithLogger(log.DiscardLogger))

		batches := make(chan *MessageBatch, 4)
		original := NewConsumer(func(_ context.Context, batch *MessageBatch) error {
			batches <- batch
			return nil
		}, WithMaxBatchSize(1), WithMaxWait(50*time.Millisecond))
		require.NoError(t, broker.SetConsumer("orders", original))

		err := broker.SetConsumer("orders", NewConsumer(noopDispatcher))
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrConsumerAlreadySet)
		assert.ErrorContains(t, err, "ERR_CONSUMER_ALREADY_SET")

		// the failed registration leaves the original consumer in place
		q := broker.GetOrCreateQueue("orders")
		require.NoError(t, q.Send(ctx, "still-mine"))
		select {
		case batch := <-batches:
			assert.Equal(t, []any{"still-mine"}, bodies(batch))
		case <-time.After(time.Second):
			t.Fatal("original consumer stopped receiving flushes")
		}
	})
	t.Run("With a missing dispatcher", func(t *testing.T) {
		broker := NewQueueBroker(WithLogger(log.DiscardLogger))

		err := broker.SetConsumer("orders", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrMissingDispatcher)

		err = broker.SetConsumer("orders", NewConsumer(nil))
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrMissingDispatcher)
	})
	t.Run("With an invalid configuration", func(t *testing.T) {
		broker := NewQueueBroker(WithLogger(log.DiscardLogger))

		err := broker.SetConsumer("orders", NewConsumer(noopDispatcher, WithMaxBatchSize(0)))
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrInvalidConsumer)

		err = broker.SetConsumer("orders", NewConsumer(noopDispatcher, WithMaxRetries(-1)))
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrInvalidConsumer)
	})
	t.Run("With a self dead letter route", func(t *testing.T) {
		broker := NewQueueBroker(WithLogger(log.DiscardLogger))

		err := broker.SetConsumer("orders", NewConsumer(noopDispatcher, WithDeadLetterQueue("orders")))
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrDeadLetterCycle)
	})
	t.Run("With a dead letter cycle across queues", func(t *testing.T) {
		broker := NewQueueBroker(WithLogger(log.DiscardLogger))

		require.NoError(t, broker.SetConsumer("orders", NewConsumer(noopDispatcher, WithDeadLetterQueue("failed"))))
		require.NoError(t, broker.SetConsumer("failed", NewConsumer(noopDispatcher, WithDeadLetterQueue("graveyard"))))

		err := broker.SetConsumer("graveyard", NewConsumer(noopDispatcher, WithDeadLetterQueue("orders")))
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrDeadLetterCycle)

		// a route ending in an unconsumed queue is fine
		require.NoError(t, broker.SetConsumer("audit", NewConsumer(noopDispatcher, WithDeadLetterQueue("graveyard"))))
	})
}

func TestDrain(t *testing.T) {
	t.Run("With pending delayed flushes upgraded", func(t *testing.T) {
		ctx := context.Background()
		broker := NewQueueBroker(WithLogger(log.DiscardLogger))

		dispatches := atomic.NewInt64(0)
		consumer := NewConsumer(func(context.Context, *MessageBatch) error {
			dispatches.Inc()
			return nil
		}, WithMaxBatchSize(10), WithMaxWait(10*time.Second))
		require.NoError(t, broker.SetConsumer("orders", consumer))

		q := broker.GetOrCreateQueue("orders")
		require.NoError(t, q.Send(ctx, "m1"))
		require.NoError(t, q.Send(ctx, "m2"))

		started := time.Now()
		require.NoError(t, broker.Drain(ctx))
		// drain must not sit out the ten second maxWait
		assert.Less(t, time.Since(started), 2*time.Second)
		assert.EqualValues(t, 1, dispatches.Load())
		assert.Zero(t, q.Buffered())
	})
	t.Run("With cancellation", func(t *testing.T) {
		broker := NewQueueBroker(WithLogger(log.DiscardLogger))

		release := make(chan struct{})
		consumer := NewConsumer(func(context.Context, *MessageBatch) error {
			<-release
			return nil
		}, WithMaxBatchSize(1), WithMaxWait(50*time.Millisecond))
		require.NoError(t, broker.SetConsumer("orders", consumer))

		q := broker.GetOrCreateQueue("orders")
		require.NoError(t, q.Send(context.Background(), "m1"))

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		err := broker.Drain(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		// let the in-flight dispatch settle
		close(release)
		require.NoError(t, broker.Drain(context.Background()))
	})
	t.Run("With dead letter queues created mid drain", func(t *testing.T) {
		ctx := context.Background()
		broker := NewQueueBroker(WithLogger(log.DiscardLogger))

		poison := NewConsumer(func(_ context.Context, batch *MessageBatch) error {
			batch.RetryAll()
			return nil
		}, WithMaxBatchSize(1), WithMaxWait(10*time.Second), WithMaxRetries(0), WithDeadLetterQueue("dlq"))
		require.NoError(t, broker.SetConsumer("orders", poison))

		deadLettered := atomic.NewInt64(0)
		collector := NewConsumer(func(_ context.Context, batch *MessageBatch) error {
			deadLettered.Add(int64(batch.Len()))
			return nil
		}, WithMaxBatchSize(1), WithMaxWait(10*time.Second))
		require.NoError(t, broker.SetConsumer("dlq", collector))

		q := broker.GetOrCreateQueue("orders")
		require.NoError(t, q.Send(ctx, "m1"))

		require.NoError(t, broker.Drain(ctx))
		assert.EqualValues(t, 1, deadLettered.Load())
		dlq, ok := broker.Queue("dlq")
		require.True(t, ok)
		assert.Zero(t, dlq.Buffered())
	})
}
