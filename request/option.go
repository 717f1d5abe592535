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

package request

import "github.com/tochemey/edgesim/clock"

type config struct {
	requestDepth    int
	pipelineDepth   int
	subrequestLimit int
	clock           clock.Clock
}

func defaultConfig() config {
	return config{
		requestDepth:    1,
		pipelineDepth:   1,
		subrequestLimit: DefaultSubrequestLimit,
		clock:           clock.System(),
	}
}

// Option configures a request Context at construction time.
type Option func(*config)

// WithRequestDepth sets the worker-to-worker recursion depth of the request.
// The entry request has depth 1.
func WithRequestDepth(depth int) Option {
	return func(cfg *config) {
		cfg.requestDepth = depth
	}
}

// WithPipelineDepth sets the service-binding pipeline depth of the request.
// The entry request has depth 1.
func WithPipelineDepth(depth int) Option {
	return func(cfg *config) {
		cfg.pipelineDepth = depth
	}
}

// WithSubrequestLimit caps the number of subrequests the context admits. A
// negative limit disables the cap altogether.
func WithSubrequestLimit(limit int) Option {
	return func(cfg *config) {
		cfg.subrequestLimit = limit
	}
}

// WithClock sets the clock backing the context's frozen time snapshot. This is
// mostly useful in tests.
func WithClock(clk clock.Clock) Option {
	return func(cfg *config) {
		cfg.clock = clk
	}
}
