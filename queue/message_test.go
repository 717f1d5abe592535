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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/edgesim/errors"
)

func TestMessage(t *testing.T) {
	t.Run("With identity", func(t *testing.T) {
		now := time.Now()
		message, err := newMessage("orders", 1, now, "hello")
		require.NoError(t, err)
		assert.Equal(t, "orders-1", message.ID())
		assert.True(t, message.Timestamp().Equal(now))
		assert.Equal(t, "hello", message.Body())
		assert.Zero(t, message.FailedAttempts())
	})
	t.Run("With body isolation", func(t *testing.T) {
		body := map[string]any{"status": "created", "count": uint64(2)}
		message, err := newMessage("orders", 1, time.Now(), body)
		require.NoError(t, err)

		// mutating the producer's value must not reach the queued copy
		body["status"] = "cancelled"
		delete(body, "count")

		delivered, ok := message.Body().(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "created", delivered["status"])
		assert.Equal(t, uint64(2), delivered["count"])
	})
	t.Run("With a body that cannot cross the boundary", func(t *testing.T) {
		message, err := newMessage("orders", 1, time.Now(), make(chan int))
		require.Error(t, err)
		require.Nil(t, message)
		assert.ErrorIs(t, err, errors.ErrInvalidMessage)
	})
	t.Run("With retry bookkeeping", func(t *testing.T) {
		message, err := newMessage("orders", 7, time.Now(), "hello")
		require.NoError(t, err)

		require.False(t, message.takePendingRetry())
		message.Retry()
		require.True(t, message.takePendingRetry())
		// the mark is consumed, not latched
		require.False(t, message.takePendingRetry())

		require.EqualValues(t, 1, message.markFailed())
		require.EqualValues(t, 2, message.markFailed())
		assert.Equal(t, 2, message.FailedAttempts())
	})
}

func TestMessageBatch(t *testing.T) {
	first, err := newMessage("orders", 1, time.Now(), "a")
	require.NoError(t, err)
	second, err := newMessage("orders", 2, time.Now(), "b")
	require.NoError(t, err)

	batch := &MessageBatch{queueName: "orders", messages: []*Message{first, second}}
	assert.Equal(t, "orders", batch.QueueName())
	assert.Equal(t, 2, batch.Len())

	batch.RetryAll()
	for _, message := range batch.Messages() {
		assert.True(t, message.takePendingRetry())
	}
}
