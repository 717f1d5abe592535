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

package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingValidator struct {
	err error
}

func (v failingValidator) Validate() error {
	return v.err
}

func TestChainAllErrors(t *testing.T) {
	chain := New().
		AddValidator(failingValidator{err: errors.New("first")}).
		AddAssertion(false, "second").
		AddAssertion(true, "never seen")

	err := chain.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "first")
	assert.ErrorContains(t, err, "second")
}

func TestChainFailFast(t *testing.T) {
	chain := New(FailFast()).
		AddValidator(failingValidator{err: errors.New("first")}).
		AddAssertion(false, "second")

	err := chain.Validate()
	require.Error(t, err)
	assert.EqualError(t, err, "first")
}

func TestChainNoViolation(t *testing.T) {
	chain := New(AllErrors()).
		AddAssertion(true, "ok").
		AddValidator(failingValidator{err: nil})

	require.NoError(t, chain.Validate())
}

func TestBooleanValidator(t *testing.T) {
	require.NoError(t, NewBooleanValidator(true, "unused").Validate())
	assert.EqualError(t, NewBooleanValidator(false, "condition failed").Validate(), "condition failed")
}
