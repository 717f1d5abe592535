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

import "sync"

// Mutex is a mutual-exclusion primitive with strict FIFO fairness: goroutines
// acquire ownership in the exact order they asked for it, and releasing with a
// non-empty waiter queue hands ownership directly to the head waiter, so the
// lock is never observably free while someone is queued.
//
// Mutex is not reentrant: calling RunWith from inside a RunWith closure on the
// same Mutex deadlocks. There is deliberately no timeout or cancellation on
// acquisition; callers must not assume a bounded wait.
type Mutex struct {
	mu      sync.Mutex
	locked  bool
	waiters []chan struct{}
}

// NewMutex creates a Mutex.
func NewMutex() *Mutex {
	return &Mutex{}
}

// RunWith acquires exclusive ownership, runs fn and releases ownership on
// every exit path, including a panicking fn, before returning. It returns
// fn's error.
func (m *Mutex) RunWith(fn func() error) error {
	m.lock()
	defer m.unlock()
	return fn()
}

// Locked reports whether the mutex currently has an owner.
func (m *Mutex) Locked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked
}

// HasWaiting reports whether any goroutine is queued for ownership. Higher
// layers use it to pick eager versus lazy paths.
func (m *Mutex) HasWaiting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters) > 0
}

func (m *Mutex) lock() {
	m.mu.Lock()
	if !m.locked {
		m.locked = true
		m.mu.Unlock()
		return
	}

	turn := make(chan struct{})
	m.waiters = append(m.waiters, turn)
	m.mu.Unlock()

	// ownership is handed over by unlock; locked stays true throughout
	<-turn
}

func (m *Mutex) unlock() {
	m.mu.Lock()
	if len(m.waiters) > 0 {
		head := m.waiters[0]
		m.waiters = m.waiters[1:]
		m.mu.Unlock()
		close(head)
		return
	}
	m.locked = false
	m.mu.Unlock()
}

func (m *Mutex) waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}
