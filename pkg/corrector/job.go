// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package corrector

import (
	"context"
	"sync"
	"sync/atomic"

	"gcode-corrector/pkg/errors"
)

// Job is a run executing on its own goroutine.
type Job struct {
	progress chan int
	done     chan struct{}
	cancel   context.CancelFunc
	percent  atomic.Int32

	once   sync.Once
	result *Result
	err    error
}

// Start runs the correction in the background. Cancel ctx or call
// Job.Cancel to stop it between lines.
func (c *Corrector) Start(ctx context.Context, lines []string) *Job {
	ctx, cancel := context.WithCancel(ctx)
	j := &Job{
		progress: make(chan int, 1),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	go func() {
		defer cancel()
		var (
			res *Result
			err error
		)
		func() {
			defer func() {
				if perr := errors.FromPanic(recover()); perr != nil {
					res, err = nil, perr
				}
			}()
			res, err = c.Run(ctx, lines, j.publish)
		}()
		j.complete(res, err)
	}()
	return j
}

// publish offers pct to the progress channel without blocking. A value
// nobody has read yet is replaced by the newer one.
func (j *Job) publish(pct int) {
	j.percent.Store(int32(pct))
	select {
	case j.progress <- pct:
		return
	default:
	}
	select {
	case <-j.progress:
	default:
	}
	select {
	case j.progress <- pct:
	default:
	}
}

func (j *Job) complete(res *Result, err error) {
	j.once.Do(func() {
		j.result, j.err = res, err
		close(j.progress)
		close(j.done)
	})
}

// Progress delivers percentages as the run advances. Stale values are
// dropped when the reader falls behind. The channel is closed when the
// run ends.
func (j *Job) Progress() <-chan int {
	return j.progress
}

// Percent returns the latest reported percentage.
func (j *Job) Percent() int {
	return int(j.percent.Load())
}

// Done is closed when the run has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Cancel asks the run to stop.
func (j *Job) Cancel() {
	j.cancel()
}

// Wait blocks until the run ends and returns its outcome.
func (j *Job) Wait() (*Result, error) {
	<-j.done
	return j.result, j.err
}

// WaitContext is Wait bounded by ctx.
func (j *Job) WaitContext(ctx context.Context) (*Result, error) {
	select {
	case <-j.done:
		return j.result, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
