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

// Package gate implements the consistency primitives of the simulated
// runtime's actor model: a FIFO Mutex, an InputGate that serializes turns of
// actor work and can be held closed across asynchronous storage operations,
// and an OutputGate that delays the visibility of a turn's output until the
// background work the turn scheduled has settled.
//
// The simulated platform runs actors on a single-threaded event loop; on a
// multi-threaded host the same externally-observable ordering is reproduced
// with real locking, which is what this package provides.
package gate

import (
	"sync"

	"github.com/tochemey/edgesim/internal/syncx"
)

// gate is the state shared by InputGate and OutputGate: a pending count and a
// broadcast that fires when the count returns to zero. The gate is closed
// while pending > 0; closed regions stack.
type gate struct {
	mu      sync.Mutex
	pending int
	opened  *syncx.Signal
}

func newGate() *gate {
	return &gate{opened: syncx.NewSignal()}
}

// close adds one pending region to the gate.
func (g *gate) close() {
	g.mu.Lock()
	g.pending++
	g.mu.Unlock()
}

// open removes one pending region; when the last region ends, every waiter is
// released.
func (g *gate) open() {
	g.mu.Lock()
	g.pending--
	if g.pending < 0 {
		g.mu.Unlock()
		panic("gate: open called without a matching close")
	}
	reopened := g.pending == 0
	if reopened {
		g.opened.Broadcast()
	}
	g.mu.Unlock()
}

// WaitForOpen blocks the caller until the gate has no pending regions. It
// returns immediately when the gate is already open.
func (g *gate) WaitForOpen() {
	for {
		g.mu.Lock()
		if g.pending == 0 {
			g.mu.Unlock()
			return
		}
		wait := g.opened.Wait()
		g.mu.Unlock()
		<-wait
	}
}

// Opened reports whether the gate has no pending regions.
func (g *gate) Opened() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending == 0
}

// Pending returns the number of regions currently holding the gate closed.
func (g *gate) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}
