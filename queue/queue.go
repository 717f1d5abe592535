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

// Package queue implements the message queue simulation of the runtime: named
// queues that assemble buffered messages into batches by size or by time,
// deliver them to a single consumer, retry failed deliveries, and route
// exhausted messages to a dead letter queue. A broker resolves producer and
// consumer bindings declared in any order onto the same queue instance.
// Delivery is at-least-once, matching the platform the simulator stands in
// for.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	gods "github.com/Workiva/go-datastructures/queue"

	"github.com/tochemey/edgesim/clock"
	"github.com/tochemey/edgesim/errors"
	"github.com/tochemey/edgesim/internal/syncx"
	"github.com/tochemey/edgesim/log"
	"github.com/tochemey/edgesim/request"
	"github.com/tochemey/edgesim/telemetry"
)

// flushState tracks the delivery stage of a queue's buffered messages.
type flushState int

const (
	// flushNone: nothing buffered or no delivery scheduled.
	flushNone flushState = iota
	// flushDelayed: a partial batch is waiting out maxWait.
	flushDelayed
	// flushImmediate: a full batch, dispatch is imminent.
	flushImmediate
)

func (s flushState) String() string {
	switch s {
	case flushDelayed:
		return "delayed"
	case flushImmediate:
		return "immediate"
	default:
		return "none"
	}
}

// Queue buffers the messages of one named queue and assembles them into
// batches for its consumer: a batch ships as soon as maxBatchSize messages are
// buffered, or maxWait after the first one, whichever comes first. Without a
// consumer attached, messages simply accumulate; there is no backpressure.
//
// Queues are created by a QueueBroker and live for the life of the process.
// All methods are safe for concurrent use.
type Queue struct {
	name   string
	broker *QueueBroker

	logger  log.Logger
	clock   clock.Clock
	metrics *telemetry.QueueMetrics

	mu             sync.Mutex
	messageCounter int64
	buffer         *gods.Queue
	pendingDelays  int
	consumer       *Consumer
	flushState     flushState
	flushEpoch     int64
	flushTimer     *time.Timer
	dispatching    bool
	idle           *syncx.Signal
}

func newQueue(name string, broker *QueueBroker) *Queue {
	return &Queue{
		name:    name,
		broker:  broker,
		logger:  broker.logger,
		clock:   broker.clock,
		metrics: broker.metrics,
		buffer:  gods.New(int64(DefaultMaxBatchSize)),
		idle:    syncx.NewSignal(),
	}
}

// Name returns the queue name.
func (q *Queue) Name() string {
	return q.name
}

// Buffered returns the number of messages waiting in the buffer for delivery.
// Messages still waiting out a send delay are not counted, see Delayed.
func (q *Queue) Buffered() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(q.buffer.Len())
}

// Delayed returns the number of accepted messages still waiting out their send
// delay.
func (q *Queue) Delayed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pendingDelays
}

// HasConsumer reports whether a consumer is attached.
func (q *Queue) HasConsumer() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.consumer != nil
}

// Consumer returns the attached consumer, nil when there is none.
func (q *Queue) Consumer() *Consumer {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.consumer
}

// SendOption configures a single Send call.
type SendOption func(*sendSettings)

type sendSettings struct {
	delay time.Duration
}

// WithDelay holds the message back for the given duration before it becomes
// visible to the consumer. The message still gets its identifier and timestamp
// at acceptance; only its delivery is deferred. A zero or negative delay sends
// immediately.
func WithDelay(delay time.Duration) SendOption {
	return func(s *sendSettings) {
		s.delay = delay
	}
}

// Send accepts one message body. The body is deep-cloned before Send returns,
// so the caller may reuse or mutate it freely afterwards. When ctx carries a
// request.Context, the send is charged as one subrequest.
func (q *Queue) Send(ctx context.Context, body any, opts ...SendOption) error {
	var settings sendSettings
	for _, opt := range opts {
		opt(&settings)
	}
	if err := chargeSubrequest(ctx); err != nil {
		return err
	}

	q.mu.Lock()
	message, err := q.newMessageLocked(body)
	if err != nil {
		q.mu.Unlock()
		return err
	}
	if settings.delay > 0 {
		q.holdBackLocked(message, settings.delay)
	} else {
		_ = q.buffer.Put(message)
		q.ensureFlushScheduledLocked()
	}
	q.mu.Unlock()

	q.metrics.MessagesSent.Add(ctx, 1)
	q.logger.Debugf("queue=(%s) accepted message=(%s)", q.name, message.ID())
	return nil
}

// SendBatch accepts several message bodies at once, preserving their order.
// The batch is all-or-nothing: when any body cannot be cloned, none of them is
// enqueued. When ctx carries a request.Context, the whole call is charged as
// one subrequest.
func (q *Queue) SendBatch(ctx context.Context, bodies ...any) error {
	if len(bodies) == 0 {
		return nil
	}
	if err := chargeSubrequest(ctx); err != nil {
		return err
	}

	q.mu.Lock()
	start := q.messageCounter
	messages := make([]*Message, 0, len(bodies))
	timestamp := q.clock.Now()
	for i, body := range bodies {
		message, err := newMessage(q.name, start+int64(i)+1, timestamp, body)
		if err != nil {
			q.mu.Unlock()
			return err
		}
		messages = append(messages, message)
	}
	q.messageCounter += int64(len(messages))
	for _, message := range messages {
		_ = q.buffer.Put(message)
	}
	q.ensureFlushScheduledLocked()
	q.mu.Unlock()

	q.metrics.MessagesSent.Add(ctx, int64(len(messages)))
	q.logger.Debugf("queue=(%s) accepted a batch of=(%d) messages", q.name, len(messages))
	return nil
}

// BatchItem pairs one message body with its own send settings, for batch sends
// whose messages need individual delays.
type BatchItem struct {
	// Body is the message payload, deep-cloned at acceptance like any send.
	Body any
	// Delay holds the message back before it becomes visible to the consumer.
	// Zero sends it immediately.
	Delay time.Duration
}

// SendBatchItems accepts several messages at once where each item carries its
// own send settings. Identifiers are assigned in item order; delayed items
// keep theirs but deliver once their delay elapses. Like SendBatch the call is
// all-or-nothing and charged as one subrequest.
func (q *Queue) SendBatchItems(ctx context.Context, items []BatchItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := chargeSubrequest(ctx); err != nil {
		return err
	}

	q.mu.Lock()
	start := q.messageCounter
	timestamp := q.clock.Now()
	messages := make([]*Message, 0, len(items))
	for i, item := range items {
		message, err := newMessage(q.name, start+int64(i)+1, timestamp, item.Body)
		if err != nil {
			q.mu.Unlock()
			return err
		}
		messages = append(messages, message)
	}
	q.messageCounter += int64(len(messages))
	for i, message := range messages {
		if delay := items[i].Delay; delay > 0 {
			q.holdBackLocked(message, delay)
			continue
		}
		_ = q.buffer.Put(message)
	}
	q.ensureFlushScheduledLocked()
	q.mu.Unlock()

	q.metrics.MessagesSent.Add(ctx, int64(len(messages)))
	q.logger.Debugf("queue=(%s) accepted a batch of=(%d) messages", q.name, len(messages))
	return nil
}

func (q *Queue) newMessageLocked(body any) (*Message, error) {
	message, err := newMessage(q.name, q.messageCounter+1, q.clock.Now(), body)
	if err != nil {
		return nil, err
	}
	q.messageCounter++
	return message, nil
}

// holdBackLocked keeps a delayed message out of the buffer until its delay
// elapses, then admits it through the regular path. Callers hold q.mu.
func (q *Queue) holdBackLocked(message *Message, delay time.Duration) {
	q.pendingDelays++
	time.AfterFunc(delay, func() {
		q.admitDelayed(message)
	})
	q.logger.Debugf("queue=(%s) holding message=(%s) back for=(%s)", q.name, message.ID(), delay)
}

// admitDelayed moves a held-back message into the buffer once its delay has
// elapsed. Drain is woken so it can upgrade the flush this admission arms
// instead of sitting out maxWait.
func (q *Queue) admitDelayed(message *Message) {
	q.mu.Lock()
	q.pendingDelays--
	_ = q.buffer.Put(message)
	q.ensureFlushScheduledLocked()
	q.logger.Debugf("queue=(%s) delayed message=(%s) is now deliverable", q.name, message.ID())
	q.idle.Broadcast()
	q.mu.Unlock()
}

// setConsumer attaches the queue's single consumer. Messages buffered before
// the consumer arrived are scheduled for delivery right away.
func (q *Queue) setConsumer(consumer *Consumer) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.consumer != nil {
		return fmt.Errorf("%w: queue=(%s)", errors.ErrConsumerAlreadySet, q.name)
	}
	q.consumer = consumer
	q.ensureFlushScheduledLocked()
	return nil
}

// ensureFlushScheduledLocked arms or upgrades the flush timer to match the
// buffer. A full buffer flushes on the next tick; a partial one waits out
// maxWait from its first message; an already-armed immediate flush absorbs
// everything that arrives before it runs. Callers hold q.mu.
func (q *Queue) ensureFlushScheduledLocked() {
	if q.consumer == nil || q.buffer.Len() == 0 {
		return
	}
	full := q.buffer.Len() >= int64(q.consumer.maxBatchSize)
	switch q.flushState {
	case flushNone:
		if full {
			q.scheduleFlushLocked(0, flushImmediate)
		} else {
			q.scheduleFlushLocked(q.consumer.maxWait, flushDelayed)
		}
	case flushDelayed:
		if full {
			q.flushTimer.Stop()
			q.scheduleFlushLocked(0, flushImmediate)
		}
	case flushImmediate:
	}
}

// scheduleFlushLocked arms a flush timer. Even the immediate flush goes
// through the timer with a zero delay rather than running inline: a burst of
// sends inside one turn coalesces into a single batch instead of dispatching
// on the send that filled it. Callers hold q.mu.
func (q *Queue) scheduleFlushLocked(delay time.Duration, state flushState) {
	q.flushState = state
	q.flushEpoch++
	epoch := q.flushEpoch
	q.flushTimer = time.AfterFunc(delay, func() {
		q.flush(epoch)
	})
	q.logger.Debugf("queue=(%s) scheduled a (%s) flush in=(%s)", q.name, state, delay)
}

// flush swaps out the whole buffer as one batch, hands it to the consumer, and
// settles the fate of every message: delivered, re-buffered for another
// attempt, dead-lettered, or dropped. A flush whose schedule was superseded is
// a no-op.
func (q *Queue) flush(epoch int64) {
	q.mu.Lock()
	if epoch != q.flushEpoch {
		q.mu.Unlock()
		return
	}
	consumer := q.consumer
	buffered := q.buffer.Len()
	if consumer == nil || buffered == 0 {
		q.flushState = flushNone
		q.idle.Broadcast()
		q.mu.Unlock()
		return
	}
	items, _ := q.buffer.Get(buffered)
	messages := make([]*Message, 0, len(items))
	for _, item := range items {
		messages = append(messages, item.(*Message))
	}
	q.dispatching = true
	q.mu.Unlock()

	batch := &MessageBatch{queueName: q.name, messages: messages}
	ctx := context.Background()
	started := time.Now()
	if err := consumer.dispatcher(ctx, batch); err != nil {
		q.logger.Errorf("queue=(%s) consumer failed to process a batch of=(%d) messages: %v", q.name, batch.Len(), err)
		batch.RetryAll()
	}
	q.metrics.BatchesDelivered.Add(ctx, 1)
	q.metrics.FlushDurationHistogram.Record(ctx, float64(time.Since(started))/float64(time.Millisecond))

	retries := q.settleBatch(ctx, consumer, messages)

	q.mu.Lock()
	for _, message := range retries {
		_ = q.buffer.Put(message)
	}
	q.flushState = flushNone
	q.ensureFlushScheduledLocked()
	q.dispatching = false
	// every settling wakes drain, which re-checks whether the queue is idle
	q.idle.Broadcast()
	q.mu.Unlock()
}

// settleBatch partitions a dispatched batch: messages without a retry mark are
// done, marked ones either earn another attempt or are routed to the dead
// letter queue (or dropped when none is configured). It returns the messages
// to re-buffer; they land after anything sent while the batch was in flight.
func (q *Queue) settleBatch(ctx context.Context, consumer *Consumer, messages []*Message) []*Message {
	var retries []*Message
	for _, message := range messages {
		if !message.takePendingRetry() {
			continue
		}
		attempts := message.markFailed()
		if attempts < int64(consumer.maxRetries)+1 {
			q.logger.Warnf("queue=(%s) will retry message=(%s) after (%d) failed attempts", q.name, message.ID(), attempts)
			retries = append(retries, message)
			continue
		}
		if consumer.deadLetterQueue != "" {
			q.logger.Warnf("queue=(%s) message=(%s) exhausted its (%d) delivery attempts, moving its body to dead letter queue=(%s)",
				q.name, message.ID(), attempts, consumer.deadLetterQueue)
			deadLetter := q.broker.GetOrCreateQueue(consumer.deadLetterQueue)
			if err := deadLetter.Send(ctx, message.Body()); err != nil {
				q.logger.Errorf("queue=(%s) failed to dead-letter message=(%s): %v", q.name, message.ID(), err)
			}
			q.metrics.MessagesDeadLettered.Add(ctx, 1)
			continue
		}
		q.logger.Warnf("queue=(%s) dropped message=(%s) after (%d) failed attempts", q.name, message.ID(), attempts)
	}
	if len(retries) > 0 {
		q.metrics.MessagesRetried.Add(ctx, int64(len(retries)))
	}
	return retries
}

// drain blocks until the queue has no buffered, held-back, scheduled, or
// in-flight messages. A pending delayed flush is upgraded so drain does not
// sit out maxWait; send delays are a visibility promise and are waited out,
// not shortened. A queue without a consumer is idle by definition: its
// messages wait for a consumer, not for time.
func (q *Queue) drain(ctx context.Context) error {
	for {
		q.mu.Lock()
		if q.consumer == nil ||
			(q.flushState == flushNone && !q.dispatching && q.buffer.Len() == 0 && q.pendingDelays == 0) {
			q.mu.Unlock()
			return nil
		}
		if q.flushState == flushDelayed {
			q.flushTimer.Stop()
			q.scheduleFlushLocked(0, flushImmediate)
		}
		wait := q.idle.Wait()
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// idleNow is a snapshot: the queue has nothing buffered, held back, scheduled,
// or in flight right now. A queue without a consumer counts as idle, its
// messages wait for a consumer, not for time.
func (q *Queue) idleNow() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.consumer == nil ||
		(q.flushState == flushNone && !q.dispatching && q.buffer.Len() == 0 && q.pendingDelays == 0)
}

func chargeSubrequest(ctx context.Context) error {
	rc, ok := request.FromContext(ctx)
	if !ok {
		return nil
	}
	return rc.IncrementSubrequests(1)
}

// flushStateSnapshot is used by in-package tests.
func (q *Queue) flushStateSnapshot() flushState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.flushState
}
