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

// Package request tracks the resource limits of one logical request as it
// recurses through simulated workers and service bindings: recursion depths
// checked at construction, a sticky subrequest counter, and a frozen time
// snapshot handed to user code in place of the real clock.
//
// The platform propagates this state through continuation-local storage; here
// it travels explicitly, as a value on a context.Context.
package request

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/atomic"

	"github.com/tochemey/edgesim/clock"
	"github.com/tochemey/edgesim/errors"
	"github.com/tochemey/edgesim/internal/validation"
)

const (
	// MaxRequestDepth is the number of times a request can recurse from one
	// worker into another.
	MaxRequestDepth = 16
	// MaxPipelineDepth is the number of service bindings a request can pass
	// through.
	MaxPipelineDepth = 32
	// DefaultSubrequestLimit is the number of subrequests a request can make
	// when no explicit limit is configured.
	DefaultSubrequestLimit = 50
)

// Context carries the limits of one logical request. It is created at request
// entry, travels with the request through every nested call, and is discarded
// when the request settles.
//
// A Context is safe for concurrent use: dispatch may fan out across
// goroutines, and all of them charge subrequests against the same counter.
type Context struct {
	requestDepth    int
	pipelineDepth   int
	subrequestLimit int
	subrequests     *atomic.Int64
	currentTime     *atomic.Time
	clock           clock.Clock
}

// New creates a request Context. The depth ceilings are enforced here, not at
// the first nested call: a request that has already recursed too far must fail
// before any of its work runs.
func New(opts ...Option) (*Context, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	chain := validation.New(validation.FailFast()).
		AddAssertion(cfg.requestDepth >= 1, "request depth must be at least 1").
		AddAssertion(cfg.pipelineDepth >= 1, "pipeline depth must be at least 1").
		AddAssertion(cfg.clock != nil, "clock is required")
	if err := chain.Validate(); err != nil {
		return nil, err
	}

	if cfg.requestDepth > MaxRequestDepth {
		return nil, fmt.Errorf("%w: got depth=(%d)", errors.ErrRequestDepthLimit, cfg.requestDepth)
	}
	if cfg.pipelineDepth > MaxPipelineDepth {
		return nil, fmt.Errorf("%w: got depth=(%d)", errors.ErrPipelineDepthLimit, cfg.pipelineDepth)
	}

	return &Context{
		requestDepth:    cfg.requestDepth,
		pipelineDepth:   cfg.pipelineDepth,
		subrequestLimit: cfg.subrequestLimit,
		subrequests:     atomic.NewInt64(0),
		currentTime:     atomic.NewTime(cfg.clock.Now()),
		clock:           cfg.clock,
	}, nil
}

// RequestDepth returns how many workers this request has recursed through,
// starting at 1 for the entry request.
func (c *Context) RequestDepth() int {
	return c.requestDepth
}

// PipelineDepth returns how many service bindings this request has passed
// through, starting at 1 for the entry request.
func (c *Context) PipelineDepth() int {
	return c.pipelineDepth
}

// Subrequests returns the number of subrequests charged so far.
func (c *Context) Subrequests() int {
	return int(c.subrequests.Load())
}

// SubrequestLimit returns the configured cap, negative when disabled.
func (c *Context) SubrequestLimit() int {
	return c.subrequestLimit
}

// IncrementSubrequests charges n subrequests against the context. Once the
// limit is crossed the failure is sticky: every later call fails too, so a
// request cannot recover past the breach by absorbing one error.
func (c *Context) IncrementSubrequests(n int) error {
	total := c.subrequests.Add(int64(n))
	if c.subrequestLimit >= 0 && total > int64(c.subrequestLimit) {
		return fmt.Errorf("%w: a request can make up to %d subrequests", errors.ErrSubrequestLimit, c.subrequestLimit)
	}
	return nil
}

// CurrentTime returns the frozen time snapshot observed by user code in place
// of the real clock.
func (c *Context) CurrentTime() time.Time {
	return c.currentTime.Load()
}

// AdvanceCurrentTime moves the frozen snapshot forward to the clock's current
// reading and returns it. The host calls this at the points where the platform
// lets simulated time advance, such as after I/O completes.
func (c *Context) AdvanceCurrentTime() time.Time {
	now := c.clock.Now()
	c.currentTime.Store(now)
	return now
}

// ChildForWorker derives the context for a call that recurses into another
// worker: request depth grows by one and the pipeline depth resets, since the
// child enters the target worker's own pipeline. The child gets a fresh
// subrequest counter and time snapshot.
func (c *Context) ChildForWorker() (*Context, error) {
	return New(
		WithRequestDepth(c.requestDepth+1),
		WithPipelineDepth(1),
		WithSubrequestLimit(c.subrequestLimit),
		WithClock(c.clock),
	)
}

// ChildForPipeline derives the context for a call that passes through another
// service binding on the same worker chain: pipeline depth grows by one and
// the request depth is carried as is.
func (c *Context) ChildForPipeline() (*Context, error) {
	return New(
		WithRequestDepth(c.requestDepth),
		WithPipelineDepth(c.pipelineDepth+1),
		WithSubrequestLimit(c.subrequestLimit),
		WithClock(c.clock),
	)
}

type ctxKey struct{}

// Inject returns a copy of ctx carrying the request Context.
func Inject(ctx context.Context, rc *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// FromContext extracts the request Context injected into ctx, if any.
func FromContext(ctx context.Context) (*Context, bool) {
	rc, ok := ctx.Value(ctxKey{}).(*Context)
	return rc, ok
}

// RunWith runs fn with the request Context injected into its context argument.
// This is the explicit stand-in for the platform's ambient context: every
// nested call reached from fn can recover the request Context from the
// context.Context it already carries.
func (c *Context) RunWith(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(Inject(ctx, c))
}
