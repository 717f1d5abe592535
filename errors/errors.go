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

// Package errors defines the sentinel errors shared by the edgesim packages.
// Call sites wrap them with additional context, so callers are expected to
// test them with the standard library errors.Is.
package errors

import "errors"

var (
	// ErrConsumerAlreadySet is returned when a second consumer is attached to a
	// queue that already has one. The original consumer is left untouched.
	ErrConsumerAlreadySet = errors.New("ERR_CONSUMER_ALREADY_SET: queue already has a consumer")

	// ErrMissingDispatcher is returned when a consumer is registered without a
	// dispatcher callback.
	ErrMissingDispatcher = errors.New("consumer dispatcher is required")

	// ErrInvalidConsumer is returned when a consumer configuration fails validation.
	ErrInvalidConsumer = errors.New("invalid consumer configuration")

	// ErrDeadLetterCycle is returned when a consumer's dead-letter queue points,
	// directly or through a chain of dead-letter edges, back at its own queue.
	ErrDeadLetterCycle = errors.New("dead letter queue cycle detected")

	// ErrInvalidMessage is returned when a message body cannot cross the
	// producer/consumer isolation boundary, e.g. it holds a function or channel.
	ErrInvalidMessage = errors.New("message body is not cloneable")

	// ErrRequestDepthLimit is returned when a request context is constructed past
	// the worker recursion ceiling: a request may only recurse through workers
	// calling other workers 16 times before it is rejected.
	ErrRequestDepthLimit = errors.New("request depth limit exceeded: workers can recurse through other workers at most 16 times")

	// ErrPipelineDepthLimit is returned when a request context is constructed past
	// the service-binding ceiling: a request may only pass through a chain of
	// service bindings 32 times before it is rejected.
	ErrPipelineDepthLimit = errors.New("pipeline depth limit exceeded: a request can pass through service bindings at most 32 times")

	// ErrSubrequestLimit is returned by the subrequest increment that crosses the
	// configured ceiling and by every increment after it: the failure is sticky
	// for the lifetime of the request context.
	ErrSubrequestLimit = errors.New("too many subrequests")

	// ErrKeyNotFound is returned by storage engines when a key is absent or has
	// expired.
	ErrKeyNotFound = errors.New("key not found")

	// ErrStorageClosed is returned by storage engines once Close has been called.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSchedulerNotStarted is returned when jobs are scheduled against a
	// scheduler that has not been started.
	ErrSchedulerNotStarted = errors.New("scheduler has not started")

	// ErrJobNotFound is returned when unscheduling a job the scheduler does not know.
	ErrJobNotFound = errors.New("scheduled job not found")
)
