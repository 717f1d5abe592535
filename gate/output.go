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

import (
	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/atomic"

	"github.com/tochemey/edgesim/log"
)

// OutputGate delays making a turn's side effects observable until the
// background work the turn scheduled has settled. The turn's closure runs and
// returns its value immediately; consumers of the output call WaitForOpen,
// which blocks until every task registered through WaitUntil has finished.
//
// A failing task does not keep the gate closed — the output still flushes —
// but its error is logged and delivered to whoever holds the task's channel.
type OutputGate struct {
	*gate
	tasks  mapset.Set[uint64]
	nextID *atomic.Uint64
	logger log.Logger
	name   string
}

// NewOutputGate creates an OutputGate.
func NewOutputGate(opts ...Option) *OutputGate {
	cfg := defaultConfig("output")
	for _, opt := range opts {
		opt(&cfg)
	}
	return &OutputGate{
		gate:   newGate(),
		tasks:  mapset.NewSet[uint64](),
		nextID: atomic.NewUint64(0),
		logger: cfg.logger,
		name:   cfg.name,
	}
}

// RunWith runs fn immediately and returns its result without waiting for any
// background work: the deferral applies to observers of the gate, not to the
// closure itself.
func (g *OutputGate) RunWith(fn func() error) error {
	return fn()
}

// WaitUntil registers fn as a background task holding the gate closed until it
// settles. The task runs on its own goroutine; its error — nil on success — is
// delivered exactly once on the returned channel. A task failure is logged and
// does not prevent the gate from reopening.
func (g *OutputGate) WaitUntil(fn func() error) <-chan error {
	id := g.nextID.Inc()
	g.tasks.Add(id)
	g.close()

	settled := make(chan error, 1)
	go func() {
		err := fn()
		if err != nil {
			g.logger.Errorf("output gate=(%s) background task=(%d) failed: %v", g.name, id, err)
		}
		g.tasks.Remove(id)
		g.open()
		settled <- err
	}()
	return settled
}

// InFlight returns the ids of the registered tasks that have not settled yet.
func (g *OutputGate) InFlight() []uint64 {
	return g.tasks.ToSlice()
}
