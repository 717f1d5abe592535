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

// Package scheduler simulates the platform's scheduled events. Handlers fire
// on cron expressions (or once after a delay), each firing inside a fresh
// request context, the way a real scheduled invocation gets its own request
// budget. Handler failures are logged and reported to the job history, never
// fatal.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reugn/go-quartz/job"
	quartzlogger "github.com/reugn/go-quartz/logger"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/atomic"

	"github.com/tochemey/edgesim/clock"
	"github.com/tochemey/edgesim/errors"
	"github.com/tochemey/edgesim/log"
	"github.com/tochemey/edgesim/request"
)

// Handler is the user code a scheduled event invokes. The context carries a
// fresh request context and scheduledTime is the instant the firing was due.
type Handler func(ctx context.Context, scheduledTime time.Time) error

// JobID identifies a scheduled job.
type JobID string

// Scheduler fires handlers on cron expressions.
type Scheduler struct {
	// helps lock concurrent access
	mu sync.Mutex
	// underlying Scheduler
	quartzScheduler quartz.Scheduler
	// states whether the quartzScheduler has started or not
	started *atomic.Bool
	// define the logger
	logger log.Logger
	// define the shutdown timeout
	stopTimeout time.Duration

	clock           clock.Clock
	subrequestLimit int
	jobs            map[JobID]*quartz.JobKey
}

// New creates a scheduler. It must be started before jobs can be scheduled.
func New(opts ...Option) *Scheduler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	// create an instance of quartz scheduler with its own logger off
	quartzScheduler, _ := quartz.NewStdScheduler(quartz.WithLogger(quartzlogger.NewSimpleLogger(nil, quartzlogger.LevelOff)))

	return &Scheduler{
		quartzScheduler: quartzScheduler,
		started:         atomic.NewBool(false),
		logger:          cfg.logger,
		stopTimeout:     cfg.stopTimeout,
		clock:           cfg.clock,
		subrequestLimit: cfg.subrequestLimit,
		jobs:            make(map[JobID]*quartz.JobKey),
	}
}

// Start starts the scheduler.
func (x *Scheduler) Start(ctx context.Context) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.logger.Info("starting cron scheduler...")
	x.quartzScheduler.Start(ctx)
	x.started.Store(x.quartzScheduler.IsStarted())
	x.logger.Info("cron scheduler started.:)")
}

// Stop clears every job and stops the scheduler, waiting up to the stop
// timeout for running firings to finish.
func (x *Scheduler) Stop(ctx context.Context) {
	if !x.started.Load() {
		return
	}

	x.logger.Info("stopping cron scheduler...")
	x.mu.Lock()
	_ = x.quartzScheduler.Clear()
	x.quartzScheduler.Stop()
	x.started.Store(x.quartzScheduler.IsStarted())
	x.jobs = make(map[JobID]*quartz.JobKey)
	x.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, x.stopTimeout)
	defer cancel()
	x.quartzScheduler.Wait(ctx)
	x.logger.Info("cron scheduler stopped...:)")
}

// Schedule fires the handler on the given cron expression until the job is
// unscheduled or the scheduler stops.
func (x *Scheduler) Schedule(ctx context.Context, cronExpression string, handler Handler) (JobID, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !x.started.Load() {
		return "", errors.ErrSchedulerNotStarted
	}

	trigger, err := quartz.NewCronTriggerWithLoc(cronExpression, time.Now().Location())
	if err != nil {
		return "", fmt.Errorf("scheduler: invalid cron expression=(%s): %w", cronExpression, err)
	}

	id := JobID(uuid.NewString())
	fnJob := job.NewFunctionJob[bool](func(ctx context.Context) (bool, error) {
		return x.fire(ctx, id, handler)
	})

	key := quartz.NewJobKey(string(id))
	if err := x.quartzScheduler.ScheduleJob(quartz.NewJobDetail(fnJob, key), trigger); err != nil {
		return "", fmt.Errorf("scheduler: scheduling job=(%s): %w", id, err)
	}

	x.jobs[id] = key
	x.logger.Infof("scheduled cron job=(%s) expression=(%s)", id, cronExpression)
	return id, nil
}

// ScheduleOnce fires the handler a single time after the given delay.
func (x *Scheduler) ScheduleOnce(ctx context.Context, delay time.Duration, handler Handler) (JobID, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !x.started.Load() {
		return "", errors.ErrSchedulerNotStarted
	}

	id := JobID(uuid.NewString())
	fnJob := job.NewFunctionJob[bool](func(ctx context.Context) (bool, error) {
		defer x.forget(id)
		return x.fire(ctx, id, handler)
	})

	key := quartz.NewJobKey(string(id))
	if err := x.quartzScheduler.ScheduleJob(quartz.NewJobDetail(fnJob, key), quartz.NewRunOnceTrigger(delay)); err != nil {
		return "", fmt.Errorf("scheduler: scheduling job=(%s): %w", id, err)
	}

	x.jobs[id] = key
	x.logger.Infof("scheduled one-shot job=(%s) delay=(%s)", id, delay)
	return id, nil
}

// Unschedule removes the given job. It returns errors.ErrJobNotFound when the
// job does not exist or already ran to completion.
func (x *Scheduler) Unschedule(id JobID) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if !x.started.Load() {
		return errors.ErrSchedulerNotStarted
	}

	key, ok := x.jobs[id]
	if !ok {
		return fmt.Errorf("%w: job=(%s)", errors.ErrJobNotFound, id)
	}
	if err := x.quartzScheduler.DeleteJob(key); err != nil {
		return fmt.Errorf("scheduler: deleting job=(%s): %w", id, err)
	}
	delete(x.jobs, id)
	x.logger.Infof("unscheduled job=(%s)", id)
	return nil
}

// Jobs returns the identifiers of the jobs currently scheduled.
func (x *Scheduler) Jobs() []JobID {
	x.mu.Lock()
	defer x.mu.Unlock()

	ids := make([]JobID, 0, len(x.jobs))
	for id := range x.jobs {
		ids = append(ids, id)
	}
	return ids
}

// Started reports whether the scheduler is running.
func (x *Scheduler) Started() bool {
	return x.started.Load()
}

// fire runs the handler inside a fresh request context, so every firing gets
// its own depth and subrequest budget.
func (x *Scheduler) fire(ctx context.Context, id JobID, handler Handler) (bool, error) {
	scheduledTime := x.clock.Now()
	rc, err := request.New(
		request.WithClock(x.clock),
		request.WithSubrequestLimit(x.subrequestLimit),
	)
	if err != nil {
		x.logger.Errorf("job=(%s) failed to build its request context: %v", id, err)
		return false, err
	}

	err = rc.RunWith(ctx, func(ctx context.Context) error {
		return handler(ctx, scheduledTime)
	})
	if err != nil {
		x.logger.Errorf("job=(%s) failed: %v", id, err)
		return false, err
	}
	return true, nil
}

// forget drops a job from the bookkeeping once it ran to completion.
func (x *Scheduler) forget(id JobID) {
	x.mu.Lock()
	delete(x.jobs, id)
	x.mu.Unlock()
}
