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

package bolt

import (
	"github.com/tochemey/edgesim/clock"
	"github.com/tochemey/edgesim/internal/compression"
)

type config struct {
	clock clock.Clock
	codec compression.Codec
}

func defaultConfig() config {
	return config{
		clock: clock.System(),
	}
}

// Option configures a Store at construction time.
type Option func(*config)

// WithClock sets the clock expirations are checked against. This is mostly
// useful in tests.
func WithClock(clk clock.Clock) Option {
	return func(cfg *config) {
		cfg.clock = clk
	}
}

// WithCompression sets the codec values are compressed with before hitting
// disk. A store re-opened on an existing file must be given the same codec
// the records were written with.
func WithCompression(codec compression.Codec) Option {
	return func(cfg *config) {
		cfg.codec = codec
	}
}
