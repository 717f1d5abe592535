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

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestNew(t *testing.T) {
	t.Run("With defaults", func(t *testing.T) {
		tel := New()
		require.NotNil(t, tel)
		assert.NotNil(t, tel.Tracer)
		assert.NotNil(t, tel.Meter)
	})
	t.Run("With providers", func(t *testing.T) {
		provider := noop.NewMeterProvider()
		tracerProvider := tracenoop.NewTracerProvider()
		tel := New(WithMeterProvider(provider), WithTracerProvider(tracerProvider))
		require.NotNil(t, tel)
		assert.Equal(t, provider, tel.MeterProvider)
		assert.Equal(t, tracerProvider, tel.TracerProvider)
	})
}

func TestNewQueueMetrics(t *testing.T) {
	metrics, err := NewQueueMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	assert.NotNil(t, metrics)
	assert.NotNil(t, metrics.MessagesSent)
	assert.NotNil(t, metrics.BatchesDelivered)
	assert.NotNil(t, metrics.MessagesRetried)
	assert.NotNil(t, metrics.MessagesDeadLettered)
	assert.NotNil(t, metrics.FlushDurationHistogram)
}
