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

// Package state ties the consistency gates to a storage engine, giving each
// simulated stateful actor the platform's single-threaded view of its own
// state.
//
// Reads take an input-gate turn. Writes close the input gate for their whole
// duration and hold the output gate until the engine acknowledges the write,
// so a turn never observes a half-applied write sequence and nothing leaves
// the actor before its writes have landed.
package state

import (
	"context"

	"github.com/tochemey/edgesim/gate"
	"github.com/tochemey/edgesim/log"
	"github.com/tochemey/edgesim/storage"
)

// State is the storage surface of one simulated actor.
type State struct {
	id      string
	storage storage.Storage
	input   *gate.InputGate
	output  *gate.OutputGate
	logger  log.Logger
}

// New wraps the given storage engine in a fresh pair of gates owned by the
// actor identified by id.
func New(id string, store storage.Storage, opts ...Option) *State {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &State{
		id:      id,
		storage: store,
		input:   gate.NewInputGate(gate.WithName(id), gate.WithLogger(cfg.logger)),
		output:  gate.NewOutputGate(gate.WithName(id), gate.WithLogger(cfg.logger)),
		logger:  cfg.logger,
	}
}

// ID returns the identity of the actor owning this state.
func (s *State) ID() string {
	return s.id
}

// InputGate exposes the input gate to the host integration layer.
func (s *State) InputGate() *gate.InputGate {
	return s.input
}

// OutputGate exposes the output gate to the host integration layer.
func (s *State) OutputGate() *gate.OutputGate {
	return s.output
}

// RunWith runs an actor turn: fn has exclusive access to the state and waits
// for any pending writes before it starts.
func (s *State) RunWith(fn func() error) error {
	return s.input.RunWith(fn)
}

// BlockConcurrencyWhile runs fn with the input gate closed, holding back new
// turns until fn returns.
func (s *State) BlockConcurrencyWhile(fn func() error) error {
	return s.input.RunWithClosed(fn)
}

// WaitForOutput blocks until every pending write has landed and the output
// gate is open again.
func (s *State) WaitForOutput() {
	s.output.WaitForOpen()
}

// Has reports whether a live value exists for the given key. The check runs
// in its own turn.
func (s *State) Has(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.input.RunWith(func() error {
		var err error
		exists, err = s.storage.Has(ctx, key)
		return err
	})
	return exists, err
}

// Get returns the value held against the given key. The read runs in its own
// turn, so it never observes a write in progress.
func (s *State) Get(ctx context.Context, key string) (*storage.StoredValue, error) {
	var value *storage.StoredValue
	err := s.input.RunWith(func() error {
		var err error
		value, err = s.storage.Get(ctx, key)
		return err
	})
	return value, err
}

// List returns the live keys matching the given options. The scan runs in
// its own turn.
func (s *State) List(ctx context.Context, opts storage.ListOptions) (*storage.ListResult, error) {
	var result *storage.ListResult
	err := s.input.RunWith(func() error {
		var err error
		result, err = s.storage.List(ctx, opts)
		return err
	})
	return result, err
}

// Put stores the given value against the key. The input gate stays closed
// and the output gate stays held until the engine acknowledges the write.
func (s *State) Put(ctx context.Context, key string, value *storage.StoredValue) error {
	return s.input.RunWithClosed(func() error {
		return <-s.output.WaitUntil(func() error {
			return s.storage.Put(ctx, key, value)
		})
	})
}

// Delete removes the value held against the key and reports whether a live
// value existed. Deletes gate exactly like Put.
func (s *State) Delete(ctx context.Context, key string) (bool, error) {
	var existed bool
	err := s.input.RunWithClosed(func() error {
		return <-s.output.WaitUntil(func() error {
			var err error
			existed, err = s.storage.Delete(ctx, key)
			return err
		})
	})
	return existed, err
}
