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
	"time"

	"github.com/tochemey/edgesim/internal/validation"
)

const (
	// DefaultMaxBatchSize is the batch size that triggers an immediate flush
	// when no explicit size is configured.
	DefaultMaxBatchSize = 5
	// DefaultMaxWait is how long a partial batch waits for more messages before
	// flushing anyway.
	DefaultMaxWait = time.Second
	// DefaultMaxRetries is the number of redeliveries a message gets after its
	// first failed attempt.
	DefaultMaxRetries = 2
)

// Dispatcher hands one batch to consumer code and reports how it went. A
// non-nil error redelivers the whole batch, exactly as if RetryAll had been
// called on it.
type Dispatcher func(ctx context.Context, batch *MessageBatch) error

// Consumer describes the single consumer of a queue: the dispatcher to invoke
// and the batching and retry policy to apply.
type Consumer struct {
	dispatcher      Dispatcher
	maxBatchSize    int
	maxWait         time.Duration
	maxRetries      int
	deadLetterQueue string
}

// enforce compilation error
var _ validation.Validator = (*Consumer)(nil)

// NewConsumer creates a Consumer around the given dispatcher with the default
// batching and retry policy.
func NewConsumer(dispatcher Dispatcher, opts ...ConsumerOption) *Consumer {
	consumer := &Consumer{
		dispatcher:   dispatcher,
		maxBatchSize: DefaultMaxBatchSize,
		maxWait:      DefaultMaxWait,
		maxRetries:   DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(consumer)
	}
	return consumer
}

// Validate checks the consumer configuration.
func (c *Consumer) Validate() error {
	return validation.New(validation.AllErrors()).
		AddAssertion(c.dispatcher != nil, "dispatcher is required").
		AddAssertion(c.maxBatchSize > 0, "maxBatchSize must be positive").
		AddAssertion(c.maxWait > 0, "maxWait must be positive").
		AddAssertion(c.maxRetries >= 0, "maxRetries must not be negative").
		Validate()
}

// MaxBatchSize returns the batch size that triggers an immediate flush.
func (c *Consumer) MaxBatchSize() int {
	return c.maxBatchSize
}

// MaxWait returns how long a partial batch may wait before it is flushed.
func (c *Consumer) MaxWait() time.Duration {
	return c.maxWait
}

// MaxRetries returns how many redeliveries a message gets after its first
// failed attempt.
func (c *Consumer) MaxRetries() int {
	return c.maxRetries
}

// DeadLetterQueue returns the name of the queue that collects messages whose
// retries are exhausted, empty when such messages are dropped instead.
func (c *Consumer) DeadLetterQueue() string {
	return c.deadLetterQueue
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithMaxBatchSize sets how many buffered messages trigger an immediate flush.
func WithMaxBatchSize(size int) ConsumerOption {
	return func(c *Consumer) {
		c.maxBatchSize = size
	}
}

// WithMaxWait sets how long a partial batch waits for more messages before it
// is flushed anyway.
func WithMaxWait(wait time.Duration) ConsumerOption {
	return func(c *Consumer) {
		c.maxWait = wait
	}
}

// WithMaxRetries sets how many redeliveries a message gets after its first
// failed attempt before it is dead-lettered or dropped.
func WithMaxRetries(retries int) ConsumerOption {
	return func(c *Consumer) {
		c.maxRetries = retries
	}
}

// WithDeadLetterQueue routes messages whose retries are exhausted to the named
// queue instead of dropping them. The queue is created on first use.
func WithDeadLetterQueue(name string) ConsumerOption {
	return func(c *Consumer) {
		c.deadLetterQueue = name
	}
}
