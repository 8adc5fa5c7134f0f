package accel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cloudsense/pkg/frame"
	"github.com/robotalks/cloudsense/pkg/hw"
)

// Engine runs inferences on an Accelerator.
type Engine struct {
	Accel Accelerator
	Done  *Completion
	// Timeout bounds the completion wait, 0 waits forever.
	Timeout time.Duration
	// FIFOPoll bounds the wait for a free FIFO slot. The default never
	// yields and never gives up: a stalled accelerator blocks the caller.
	FIFOPoll hw.Poller
	// OnFed is called after the last sample was written and before the
	// completion wait.
	OnFed func()
}

// RunInference feeds buf into a, waits for done and unloads the scores into
// out using default options.
func RunInference(ctx context.Context, a Accelerator, done *Completion, buf *frame.Buffer, out ResultVector) (time.Duration, error) {
	e := &Engine{Accel: a, Done: done}
	return e.Run(ctx, buf, out)
}

// Run performs one inference and returns the accelerator stopwatch reading.
// The accelerator is always stopped before Run returns.
func (e *Engine) Run(ctx context.Context, buf *frame.Buffer, out ResultVector) (elapsed time.Duration, err error) {
	if !buf.Full() {
		return 0, fmt.Errorf("%w: %d of %d samples", ErrIncompleteFrame, buf.Len(), buf.Cap())
	}
	e.Done.Arm()
	if err = e.Accel.Start(); err != nil {
		return 0, fmt.Errorf("start: %w", err)
	}
	defer func() {
		if stopErr := e.Accel.Stop(); stopErr != nil && err == nil {
			err = fmt.Errorf("stop: %w", stopErr)
		}
	}()

	if err = e.feed(buf); err != nil {
		return 0, err
	}
	if fn := e.OnFed; fn != nil {
		fn()
	}

	if err = e.wait(ctx); err != nil {
		return 0, err
	}
	elapsed = e.Accel.Elapsed()
	if err = e.Accel.Unload(out); err != nil {
		return 0, fmt.Errorf("unload: %w", err)
	}
	glog.V(2).Infof("inference done in %v", elapsed)
	return elapsed, nil
}

func (e *Engine) feed(buf *frame.Buffer) error {
	notFull := func() bool { return !e.Accel.FIFOFull() }
	var stalls int
	for i, s := range buf.Samples() {
		spins, err := e.FIFOPoll.Until(notFull)
		stalls += spins
		if err != nil {
			return fmt.Errorf("%w: sample %d", ErrStalled, i)
		}
		e.Accel.WriteFIFO(s)
	}
	glog.V(3).Infof("fed %d samples, %d full polls", buf.Len(), stalls)
	return nil
}

func (e *Engine) wait(ctx context.Context) error {
	parent := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	err := e.Done.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return fmt.Errorf("%w: no completion within %v", ErrHardwareTimeout, e.Timeout)
	}
	return err
}
