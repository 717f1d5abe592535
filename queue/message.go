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
	"fmt"
	"time"

	"go.uber.org/atomic"

	"github.com/tochemey/edgesim/errors"
	"github.com/tochemey/edgesim/internal/clone"
)

// Message is one queued payload. The body is deep-cloned when the message is
// created, so mutating the value passed to Send after the fact never reaches
// the consumer: producer and consumer live on opposite sides of an isolation
// boundary even though both run in this process.
type Message struct {
	id        string
	timestamp time.Time
	body      any

	pendingRetry   *atomic.Bool
	failedAttempts *atomic.Int64
}

func newMessage(queueName string, sequence int64, timestamp time.Time, body any) (*Message, error) {
	cloned, err := clone.Body(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err)
	}
	return &Message{
		id:             fmt.Sprintf("%s-%d", queueName, sequence),
		timestamp:      timestamp,
		body:           cloned,
		pendingRetry:   atomic.NewBool(false),
		failedAttempts: atomic.NewInt64(0),
	}, nil
}

// ID returns the message identifier, unique within its queue.
func (m *Message) ID() string {
	return m.id
}

// Timestamp returns the time the message was accepted by the queue.
func (m *Message) Timestamp() time.Time {
	return m.timestamp
}

// Body returns the message payload.
func (m *Message) Body() any {
	return m.body
}

// FailedAttempts returns how many deliveries of this message have failed.
func (m *Message) FailedAttempts() int {
	return int(m.failedAttempts.Load())
}

// Retry marks the message for redelivery. Calling it from a dispatcher keeps
// the message alive past the current flush; on a message that was delivered
// without complaint it has no effect once the flush has settled.
func (m *Message) Retry() {
	m.pendingRetry.Store(true)
}

// takePendingRetry reports and clears the retry mark in one step. The flush
// bookkeeping uses it so a mark can never be consumed twice.
func (m *Message) takePendingRetry() bool {
	return m.pendingRetry.Swap(false)
}

// markFailed records one more failed delivery and returns the new count.
func (m *Message) markFailed() int64 {
	return m.failedAttempts.Inc()
}
