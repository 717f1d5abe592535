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

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/tochemey/edgesim/clock"
	"github.com/tochemey/edgesim/errors"
	"github.com/tochemey/edgesim/internal/pause"
	"github.com/tochemey/edgesim/log"
	"github.com/tochemey/edgesim/request"
)

// fires every second
const everySecond = "* * * ? * *"

func TestScheduler(t *testing.T) {
	t.Run("With cron firing", func(t *testing.T) {
		ctx := context.Background()
		sched := New(WithLogger(log.DiscardLogger))
		sched.Start(ctx)
		assert.True(t, sched.Started())

		fired := atomic.NewInt64(0)
		id, err := sched.Schedule(ctx, everySecond, func(context.Context, time.Time) error {
			fired.Inc()
			return nil
		})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.Len(t, sched.Jobs(), 1)

		pause.For(2 * time.Second)
		assert.GreaterOrEqual(t, fired.Load(), int64(1))

		sched.Stop(ctx)
		assert.False(t, sched.Started())
	})

	t.Run("With a fresh request context per firing", func(t *testing.T) {
		ctx := context.Background()
		sched := New(WithLogger(log.DiscardLogger))
		sched.Start(ctx)
		defer sched.Stop(ctx)

		contexts := make(chan *request.Context, 2)
		handler := func(ctx context.Context, _ time.Time) error {
			if rc, ok := request.FromContext(ctx); ok {
				contexts <- rc
			}
			return nil
		}

		_, err := sched.ScheduleOnce(ctx, 10*time.Millisecond, handler)
		require.NoError(t, err)
		_, err = sched.ScheduleOnce(ctx, 10*time.Millisecond, handler)
		require.NoError(t, err)

		var first, second *request.Context
		select {
		case first = <-contexts:
		case <-time.After(2 * time.Second):
			require.Fail(t, "first firing never happened")
		}
		select {
		case second = <-contexts:
		case <-time.After(2 * time.Second):
			require.Fail(t, "second firing never happened")
		}

		assert.NotSame(t, first, second)
		assert.Equal(t, 1, first.RequestDepth())
		assert.Equal(t, request.DefaultSubrequestLimit, first.SubrequestLimit())
	})

	t.Run("With handler failures kept non-fatal", func(t *testing.T) {
		ctx := context.Background()
		sched := New(WithLogger(log.DiscardLogger))
		sched.Start(ctx)
		defer sched.Stop(ctx)

		fired := atomic.NewInt64(0)
		_, err := sched.Schedule(ctx, everySecond, func(context.Context, time.Time) error {
			fired.Inc()
			return assert.AnError
		})
		require.NoError(t, err)

		// the job keeps firing after failures
		pause.For(2200 * time.Millisecond)
		assert.GreaterOrEqual(t, fired.Load(), int64(2))
	})

	t.Run("With a stopped scheduler", func(t *testing.T) {
		ctx := context.Background()
		sched := New(WithLogger(log.DiscardLogger))
		assert.False(t, sched.Started())

		_, err := sched.Schedule(ctx, everySecond, func(context.Context, time.Time) error { return nil })
		require.ErrorIs(t, err, errors.ErrSchedulerNotStarted)

		_, err = sched.ScheduleOnce(ctx, time.Second, func(context.Context, time.Time) error { return nil })
		require.ErrorIs(t, err, errors.ErrSchedulerNotStarted)

		err = sched.Unschedule("whatever")
		require.ErrorIs(t, err, errors.ErrSchedulerNotStarted)
	})

	t.Run("With an invalid cron expression", func(t *testing.T) {
		ctx := context.Background()
		sched := New(WithLogger(log.DiscardLogger))
		sched.Start(ctx)
		defer sched.Stop(ctx)

		_, err := sched.Schedule(ctx, "definitely not cron", func(context.Context, time.Time) error { return nil })
		require.Error(t, err)
		assert.ErrorContains(t, err, "invalid cron expression")
		assert.Empty(t, sched.Jobs())
	})

	t.Run("With unschedule", func(t *testing.T) {
		ctx := context.Background()
		sched := New(WithLogger(log.DiscardLogger))
		sched.Start(ctx)
		defer sched.Stop(ctx)

		fired := atomic.NewInt64(0)
		id, err := sched.Schedule(ctx, everySecond, func(context.Context, time.Time) error {
			fired.Inc()
			return nil
		})
		require.NoError(t, err)
		require.Len(t, sched.Jobs(), 1)

		require.NoError(t, sched.Unschedule(id))
		assert.Empty(t, sched.Jobs())

		count := fired.Load()
		pause.For(1500 * time.Millisecond)
		assert.Equal(t, count, fired.Load())

		err = sched.Unschedule(id)
		require.ErrorIs(t, err, errors.ErrJobNotFound)
	})

	t.Run("With one-shot jobs forgotten after firing", func(t *testing.T) {
		ctx := context.Background()
		sched := New(WithLogger(log.DiscardLogger))
		sched.Start(ctx)
		defer sched.Stop(ctx)

		done := make(chan struct{})
		id, err := sched.ScheduleOnce(ctx, 10*time.Millisecond, func(context.Context, time.Time) error {
			close(done)
			return nil
		})
		require.NoError(t, err)

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			require.Fail(t, "one-shot job never fired")
		}
		pause.For(100 * time.Millisecond)

		assert.Empty(t, sched.Jobs())
		err = sched.Unschedule(id)
		require.ErrorIs(t, err, errors.ErrJobNotFound)
	})

	t.Run("With the scheduled time coming from the clock", func(t *testing.T) {
		ctx := context.Background()
		frozen := time.Unix(5000, 0)
		sched := New(WithLogger(log.DiscardLogger), WithClock(clock.NewFake(frozen)))
		sched.Start(ctx)
		defer sched.Stop(ctx)

		type firing struct {
			scheduled time.Time
			snapshot  time.Time
		}
		firings := make(chan firing, 1)
		_, err := sched.ScheduleOnce(ctx, 10*time.Millisecond, func(ctx context.Context, scheduledTime time.Time) error {
			rc, _ := request.FromContext(ctx)
			firings <- firing{scheduled: scheduledTime, snapshot: rc.CurrentTime()}
			return nil
		})
		require.NoError(t, err)

		select {
		case got := <-firings:
			assert.True(t, got.scheduled.Equal(frozen))
			assert.True(t, got.snapshot.Equal(frozen))
		case <-time.After(2 * time.Second):
			require.Fail(t, "job never fired")
		}
	})
}
