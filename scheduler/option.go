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

package scheduler

import (
	"time"

	"github.com/tochemey/edgesim/clock"
	"github.com/tochemey/edgesim/log"
	"github.com/tochemey/edgesim/request"
)

// DefaultStopTimeout is how long Stop waits for running firings to finish.
const DefaultStopTimeout = 5 * time.Second

type config struct {
	logger          log.Logger
	clock           clock.Clock
	stopTimeout     time.Duration
	subrequestLimit int
}

func defaultConfig() config {
	return config{
		logger:          log.DefaultLogger,
		clock:           clock.System(),
		stopTimeout:     DefaultStopTimeout,
		subrequestLimit: request.DefaultSubrequestLimit,
	}
}

// Option configures a Scheduler at construction time.
type Option func(*config)

// WithLogger sets the logger used by the scheduler.
func WithLogger(logger log.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithClock sets the clock firings stamp their scheduled time with and freeze
// into their request contexts.
func WithClock(clk clock.Clock) Option {
	return func(cfg *config) {
		cfg.clock = clk
	}
}

// WithStopTimeout sets how long Stop waits for running firings to finish.
func WithStopTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		cfg.stopTimeout = timeout
	}
}

// WithSubrequestLimit sets the subrequest budget each firing's request
// context starts with. A negative limit disables the check.
func WithSubrequestLimit(limit int) Option {
	return func(cfg *config) {
		cfg.subrequestLimit = limit
	}
}
