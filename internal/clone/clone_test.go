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

package clone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodyIsolatesMaps(t *testing.T) {
	original := map[string]any{
		"name":  "order-42",
		"count": int64(3),
		"tags":  []any{"a", "b"},
	}

	copied, err := Body(original)
	require.NoError(t, err)

	// mutate the original after the copy was taken
	original["name"] = "mutated"
	original["tags"].([]any)[0] = "z"

	m, ok := copied.(map[string]any)
	require.True(t, ok, "unexpected clone shape %T", copied)
	assert.Equal(t, "order-42", m["name"])
	tags, ok := m["tags"].([]any)
	require.True(t, ok)
	assert.Equal(t, "a", tags[0])
}

func TestBodyScalars(t *testing.T) {
	copied, err := Body("plain string")
	require.NoError(t, err)
	assert.Equal(t, "plain string", copied)

	copied, err = Body(int64(17))
	require.NoError(t, err)
	assert.EqualValues(t, 17, copied)

	copied, err = Body(nil)
	require.NoError(t, err)
	assert.Nil(t, copied)
}

func TestBodyIsolatesByteSlices(t *testing.T) {
	original := []byte{1, 2, 3}
	copied, err := Body(original)
	require.NoError(t, err)

	original[0] = 99

	bs, ok := copied.([]byte)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, bs)
}

func TestBodyRejectsFunctions(t *testing.T) {
	_, err := Body(func() {})
	require.Error(t, err)
}

func TestBodyRejectsChannels(t *testing.T) {
	_, err := Body(make(chan int))
	require.Error(t, err)
}
