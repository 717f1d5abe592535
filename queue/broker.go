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
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/sync/errgroup"

	"github.com/tochemey/edgesim/clock"
	"github.com/tochemey/edgesim/errors"
	"github.com/tochemey/edgesim/log"
	"github.com/tochemey/edgesim/telemetry"
)

// QueueBroker is the registry of named queues. Producer bindings and consumer
// registrations name queues independently and in either order; the broker is
// what makes both sides land on the same Queue instance.
type QueueBroker struct {
	id      string
	logger  log.Logger
	clock   clock.Clock
	metrics *telemetry.QueueMetrics

	mu     sync.RWMutex
	queues map[string]*Queue

	// serializes consumer registrations so dead letter routes cannot race
	// into a cycle
	registerMu sync.Mutex
}

// NewQueueBroker creates an empty broker.
func NewQueueBroker(opts ...Option) *QueueBroker {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	metrics, err := telemetry.NewQueueMetrics(cfg.telemetry.Meter)
	if err != nil {
		otel.Handle(err)
		metrics, _ = telemetry.NewQueueMetrics(noop.NewMeterProvider().Meter("edgesim"))
	}

	return &QueueBroker{
		id:      uuid.NewString(),
		logger:  cfg.logger,
		clock:   cfg.clock,
		metrics: metrics,
		queues:  make(map[string]*Queue),
	}
}

// ID returns the broker instance identifier.
func (b *QueueBroker) ID() string {
	return b.id
}

// GetOrCreateQueue returns the queue registered under name, creating it on
// first reference. Every call with the same name returns the same instance.
func (b *QueueBroker) GetOrCreateQueue(name string) *Queue {
	b.mu.RLock()
	q, ok := b.queues[name]
	b.mu.RUnlock()
	if ok {
		return q
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if q, ok := b.queues[name]; ok {
		return q
	}
	q = newQueue(name, b)
	b.queues[name] = q
	b.logger.Infof("broker=(%s) created queue=(%s)", b.id, name)
	return q
}

// Queue returns the queue registered under name without creating it.
func (b *QueueBroker) Queue(name string) (*Queue, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.queues[name]
	return q, ok
}

// Queues returns the names of every registered queue.
func (b *QueueBroker) Queues() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.queues))
	for name := range b.queues {
		names = append(names, name)
	}
	return names
}

// SetConsumer attaches a consumer to the named queue, creating the queue when
// it does not exist yet. A queue accepts a single consumer for its lifetime;
// registering a second one fails with ERR_CONSUMER_ALREADY_SET and leaves the
// first untouched. Messages buffered before registration are scheduled for
// delivery right away.
func (b *QueueBroker) SetConsumer(queueName string, consumer *Consumer) error {
	if consumer == nil || consumer.dispatcher == nil {
		return errors.ErrMissingDispatcher
	}
	if err := consumer.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidConsumer, err)
	}

	b.registerMu.Lock()
	defer b.registerMu.Unlock()

	if err := b.checkDeadLetterCycle(queueName, consumer); err != nil {
		return err
	}

	q := b.GetOrCreateQueue(queueName)
	if err := q.setConsumer(consumer); err != nil {
		return err
	}
	b.logger.Infof("broker=(%s) attached a consumer to queue=(%s)", b.id, queueName)
	return nil
}

// checkDeadLetterCycle walks the dead letter route the new consumer would
// introduce and rejects it when it loops back on itself. Callers hold
// registerMu, so no other registration can complete a cycle concurrently.
func (b *QueueBroker) checkDeadLetterCycle(queueName string, consumer *Consumer) error {
	if consumer.deadLetterQueue == "" {
		return nil
	}
	visited := mapset.NewSet(queueName)
	next := consumer.deadLetterQueue
	for next != "" {
		if visited.Contains(next) {
			return fmt.Errorf("%w: queue=(%s) routes back to itself through dead letter queue=(%s)",
				errors.ErrDeadLetterCycle, queueName, consumer.deadLetterQueue)
		}
		visited.Add(next)
		q, ok := b.Queue(next)
		if !ok {
			return nil
		}
		downstream := q.Consumer()
		if downstream == nil {
			return nil
		}
		next = downstream.deadLetterQueue
	}
	return nil
}

// Drain blocks until every queue with a consumer has delivered and settled
// everything it buffered, upgrading pending delayed flushes so the wait does
// not stretch to maxWait. Work that appears while draining, such as dead
// letter queues taking their first message, is drained too: Drain only
// returns once a full pass over the registry finds nothing left to do.
func (b *QueueBroker) Drain(ctx context.Context) error {
	for {
		names := b.Queues()
		eg, egCtx := errgroup.WithContext(ctx)
		for _, name := range names {
			q, _ := b.Queue(name)
			eg.Go(func() error {
				return q.drain(egCtx)
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
		if len(b.Queues()) != len(names) {
			continue
		}
		settled := true
		for _, name := range names {
			q, _ := b.Queue(name)
			if !q.idleNow() {
				settled = false
				break
			}
		}
		if settled {
			return nil
		}
	}
}
