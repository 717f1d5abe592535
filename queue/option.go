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
	"github.com/tochemey/edgesim/clock"
	"github.com/tochemey/edgesim/log"
	"github.com/tochemey/edgesim/telemetry"
)

type config struct {
	logger    log.Logger
	clock     clock.Clock
	telemetry *telemetry.Telemetry
}

func defaultConfig() config {
	return config{
		logger:    log.DefaultLogger,
		clock:     clock.System(),
		telemetry: telemetry.New(),
	}
}

// Option configures a QueueBroker.
type Option func(*config)

// WithLogger sets the logger shared by the broker and its queues.
func WithLogger(logger log.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithClock sets the clock used to timestamp messages. This is mostly useful
// in tests.
func WithClock(clk clock.Clock) Option {
	return func(cfg *config) {
		cfg.clock = clk
	}
}

// WithTelemetry sets the telemetry engine the broker records its queue
// metrics through. Without it the global otel providers are used.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(cfg *config) {
		cfg.telemetry = tel
	}
}
