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

package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

const (
	sentCounterName         = "edgesim_queue_messages_sent"
	deliveredCounterName    = "edgesim_queue_batches_delivered"
	retriedCounterName      = "edgesim_queue_messages_retried"
	deadLetterCounterName   = "edgesim_queue_messages_dead_lettered"
	flushDurationMetricName = "edgesim_queue_flush_duration"
)

// QueueMetrics define the type of metrics we are collecting from a queue.
type QueueMetrics struct {
	// captures the number of messages accepted by send and sendBatch
	MessagesSent metric.Int64Counter
	// captures the number of batches handed to the consumer dispatcher
	BatchesDelivered metric.Int64Counter
	// captures the number of messages re-buffered for another attempt
	MessagesRetried metric.Int64Counter
	// captures the number of messages routed to a dead letter queue
	MessagesDeadLettered metric.Int64Counter
	// captures the duration of a flush, dispatch included
	FlushDurationHistogram metric.Float64Histogram
}

// NewQueueMetrics creates an instance of QueueMetrics
func NewQueueMetrics(meter metric.Meter) (*QueueMetrics, error) {
	metrics := new(QueueMetrics)
	var err error

	if metrics.MessagesSent, err = meter.Int64Counter(
		sentCounterName,
		metric.WithDescription("The total number of messages sent to the queue"),
	); err != nil {
		return nil, fmt.Errorf("failed to create sent count instrument: %w", err)
	}

	if metrics.BatchesDelivered, err = meter.Int64Counter(
		deliveredCounterName,
		metric.WithDescription("The total number of batches delivered to the consumer"),
	); err != nil {
		return nil, fmt.Errorf("failed to create delivered count instrument: %w", err)
	}

	if metrics.MessagesRetried, err = meter.Int64Counter(
		retriedCounterName,
		metric.WithDescription("The total number of messages retried after a failed delivery"),
	); err != nil {
		return nil, fmt.Errorf("failed to create retried count instrument: %w", err)
	}

	if metrics.MessagesDeadLettered, err = meter.Int64Counter(
		deadLetterCounterName,
		metric.WithDescription("The total number of messages routed to a dead letter queue"),
	); err != nil {
		return nil, fmt.Errorf("failed to create dead letter count instrument: %w", err)
	}

	if metrics.FlushDurationHistogram, err = meter.Float64Histogram(
		flushDurationMetricName,
		metric.WithDescription("The duration of queue flushes in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create flush duration instrument: %w", err)
	}

	return metrics, nil
}
