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

package gate

import "github.com/tochemey/edgesim/log"

// InputGate serializes the delivery of work to one actor. Events enter through
// RunWith, which admits exactly one turn at a time in FIFO order and only while
// the gate is open. Storage operations that must not interleave with other
// turns run through RunWithClosed, which holds the gate closed for their
// duration even though they may be running on another goroutine.
//
// The net effect is the platform's actor guarantee: code inside a turn never
// observes state mid-mutation by a concurrent turn.
type InputGate struct {
	*gate
	turn   *Mutex
	logger log.Logger
	name   string
}

// NewInputGate creates an InputGate.
func NewInputGate(opts ...Option) *InputGate {
	cfg := defaultConfig("input")
	for _, opt := range opts {
		opt(&cfg)
	}
	return &InputGate{
		gate:   newGate(),
		turn:   NewMutex(),
		logger: cfg.logger,
		name:   cfg.name,
	}
}

// RunWith waits until the gate is open, then runs fn as one serialized turn:
// at most one RunWith closure executes at a time, admitted in arrival order.
// It returns fn's error. There is no timeout on admission.
func (g *InputGate) RunWith(fn func() error) error {
	return g.turn.RunWith(func() error {
		g.WaitForOpen()
		return fn()
	})
}

// RunWithClosed holds the gate closed while fn runs, queueing every RunWith
// caller that arrives meanwhile until the gate reopens. Closed regions from
// concurrent RunWithClosed calls stack; the gate reopens when the last one
// ends. The gate is reopened on every exit path, including a panicking fn.
func (g *InputGate) RunWithClosed(fn func() error) error {
	g.close()
	defer g.open()
	return fn()
}
