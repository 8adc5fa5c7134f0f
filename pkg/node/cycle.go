package node

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/robotalks/cloudsense/pkg/accel"
	"github.com/robotalks/cloudsense/pkg/classify"
	"github.com/robotalks/cloudsense/pkg/frame"
	"github.com/robotalks/cloudsense/pkg/hw"
	"github.com/robotalks/cloudsense/pkg/link"
	"github.com/robotalks/cloudsense/pkg/sensor"
)

// Policy decides when failing cycles escalate to a halt.
type Policy struct {
	// OverflowRetries is the number of consecutive overflowing cycles
	// skipped before halting.
	OverflowRetries int
	// HardwareRetries is the number of consecutive accelerator timeouts or
	// stalls skipped before halting.
	HardwareRetries int
	// TxRetries is the number of extra transmit attempts within a cycle.
	TxRetries int
}

// DefaultPolicy skips up to 3 failures in a row and retries a transmission
// once.
var DefaultPolicy = Policy{
	OverflowRetries: 3,
	HardwareRetries: 3,
	TxRetries:       1,
}

// Cycle owns the frame buffer and the result vector and drives them
// through the pipeline.
type Cycle struct {
	Capturer  *sensor.Capturer
	Engine    *accel.Engine
	Decoder   *classify.Decoder
	Link      link.Link
	Indicator hw.Indicator
	Payload   PayloadMode
	Cooldown  time.Duration
	Policy    Policy
	Observers []Observer
	// Status prints the textual status lines, glog.Info if nil.
	Status func(string)

	buf     *frame.Buffer
	scores  accel.ResultVector
	payload []byte

	state     int32
	seq       uint64
	overflows int
	hwFaults  int
	halt      *HaltError
	wake      chan struct{}
}

// NewCycle creates a cycle for width x height frames. The number of classes
// is taken from the decoder.
func NewCycle(capturer *sensor.Capturer, engine *accel.Engine, decoder *classify.Decoder, l link.Link, width, height int) *Cycle {
	c := &Cycle{
		Capturer:  capturer,
		Engine:    engine,
		Decoder:   decoder,
		Link:      l,
		Indicator: &hw.LogIndicator{},
		Cooldown:  2 * time.Second,
		Policy:    DefaultPolicy,
		buf:       frame.NewBuffer(width, height),
		scores:    make(accel.ResultVector, decoder.Classes()),
		wake:      make(chan struct{}, 1),
	}
	c.payload = make([]byte, 0, c.Payload.Size(width, height))
	engine.OnFed = func() { c.phase(StateWaiting) }
	return c
}

// Name implements framework.Named.
func (c *Cycle) Name() string { return "cycle" }

// State returns the current state.
func (c *Cycle) State() State {
	return State(atomic.LoadInt32(&c.state))
}

// Frame exposes the frame buffer. Its content is only valid between the
// capture and the end of the cycle.
func (c *Cycle) Frame() *frame.Buffer { return c.buf }

// Halted returns the halt error, if any.
func (c *Cycle) Halted() error {
	if c.halt == nil {
		return nil
	}
	return c.halt
}

// Resume clears a halt so cycling can start over.
func (c *Cycle) Resume() {
	c.halt, c.overflows, c.hwFaults = nil, 0, 0
	c.Indicator.Set(hw.ChannelFault, false)
	c.setState(StateIdle)
}

// Wake cuts the current cooldown short.
func (c *Cycle) Wake() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// AddObserver registers observers.
func (c *Cycle) AddObserver(observers ...Observer) *Cycle {
	c.Observers = append(c.Observers, observers...)
	return c
}

// Run runs cycles until ctx is done or the node halts.
func (c *Cycle) Run(ctx context.Context) error {
	for {
		r := c.Step(ctx)
		if r.Halted || c.halt != nil {
			return c.halt
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.cooldown(ctx); err != nil {
			return err
		}
	}
}

func (c *Cycle) cooldown(ctx context.Context) error {
	if err := c.enter(ctx, StateCooldown); err != nil {
		return err
	}
	if c.Cooldown <= 0 {
		return nil
	}
	timer := time.NewTimer(c.Cooldown)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-c.wake:
		glog.V(1).Info("cooldown interrupted")
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Step runs a single cycle from Idle to the end of transmission.
func (c *Cycle) Step(ctx context.Context) *Report {
	c.seq++
	r := &Report{ID: uuid.New(), Seq: c.seq, Started: time.Now()}
	defer c.notify(ctx, r)
	if c.halt != nil {
		r.State, r.Err = StateHalted, c.halt
		return r
	}
	r.Err = c.run(ctx, r)
	r.Duration = time.Since(r.Started)
	c.Indicator.Set(hw.ChannelActive, false)
	switch {
	case r.Err == nil:
		glog.V(1).Infof("cycle %d done in %v", r.Seq, r.Duration)
	case r.Halted:
		glog.Errorf("cycle %d: %v", r.Seq, r.Err)
	case ctx.Err() == nil:
		glog.Warningf("cycle %d skipped in %s: %v", r.Seq, r.State, r.Err)
	}
	return r
}

func (c *Cycle) run(ctx context.Context, r *Report) error {
	c.Indicator.Set(hw.ChannelActive, false)
	c.Indicator.Set(hw.ChannelFault, false)
	if err := c.enter(ctx, StateIdle); err != nil {
		return err
	}

	r.State = StateCapturing
	if err := c.enter(ctx, StateCapturing); err != nil {
		return err
	}
	c.Indicator.Set(hw.ChannelActive, true)
	if err := c.Capturer.Capture(ctx, c.buf); err != nil {
		return c.captureFailed(ctx, r, err)
	}
	c.overflows = 0

	r.State = StateFeeding
	if err := c.enter(ctx, StateFeeding); err != nil {
		return err
	}
	elapsed, err := c.Engine.Run(ctx, c.buf, c.scores)
	if err != nil {
		if c.State() == StateWaiting {
			r.State = StateWaiting
		}
		return c.inferenceFailed(ctx, r, err)
	}
	c.hwFaults = 0
	r.Inference = elapsed
	c.status(fmt.Sprintf("Time for CNN: %d us", elapsed.Microseconds()))

	r.State = StateDecoding
	if err := c.enter(ctx, StateDecoding); err != nil {
		return err
	}
	res, err := c.Decoder.Decode(c.scores)
	if err != nil {
		return c.haltOn(r, err)
	}
	for _, line := range res.Lines(c.Decoder.Labels) {
		c.status(line)
	}
	r.Result = res.Clone()

	r.State = StateTransmitting
	if err := c.enter(ctx, StateTransmitting); err != nil {
		return err
	}
	c.payload = AppendPayload(c.payload[:0], c.Payload, c.buf, res)
	r.PayloadBytes = len(c.payload)
	return c.transmit(ctx, res.Label)
}

func (c *Cycle) transmit(ctx context.Context, caption string) error {
	var err error
	for attempt := 0; attempt <= c.Policy.TxRetries; attempt++ {
		if attempt > 0 {
			glog.Warningf("transmit attempt %d failed: %v", attempt, err)
		}
		if a, ok := c.Link.(link.Announcer); ok {
			if err = a.Announce(ctx, caption); err != nil {
				if ctx.Err() != nil {
					return err
				}
				continue
			}
		}
		if err = c.Link.Transmit(ctx, c.payload); err == nil || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (c *Cycle) captureFailed(ctx context.Context, r *Report, err error) error {
	switch {
	case ctx.Err() != nil:
		return err
	case errors.Is(err, sensor.ErrOverflow):
		c.overflows++
		if c.overflows > c.Policy.OverflowRetries {
			return c.haltOn(r, err)
		}
		return err
	case errors.Is(err, sensor.ErrDimensionMismatch):
		return c.haltOn(r, err)
	}
	return c.hardwareFault(r, err)
}

func (c *Cycle) inferenceFailed(ctx context.Context, r *Report, err error) error {
	if ctx.Err() != nil {
		return err
	}
	if errors.Is(err, accel.ErrIncompleteFrame) {
		return c.haltOn(r, err)
	}
	return c.hardwareFault(r, err)
}

func (c *Cycle) hardwareFault(r *Report, err error) error {
	c.hwFaults++
	if c.hwFaults > c.Policy.HardwareRetries {
		return c.haltOn(r, err)
	}
	return err
}

func (c *Cycle) haltOn(r *Report, err error) error {
	c.halt = &HaltError{State: r.State, Err: err}
	r.Halted = true
	c.Indicator.Set(hw.ChannelFault, true)
	c.phase(StateHalted)
	return c.halt
}

func (c *Cycle) enter(ctx context.Context, s State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.phase(s)
	return nil
}

// phase moves to s and prints it as a status line.
func (c *Cycle) phase(s State) {
	c.setState(s)
	c.status("State: " + s.String())
}

func (c *Cycle) setState(s State) {
	if old := State(atomic.SwapInt32(&c.state, int32(s))); old != s {
		glog.V(2).Infof("state %s -> %s", old, s)
	}
}

func (c *Cycle) status(line string) {
	if fn := c.Status; fn != nil {
		fn(line)
		return
	}
	glog.Info(line)
}

func (c *Cycle) notify(ctx context.Context, r *Report) {
	for _, o := range c.Observers {
		o.Observe(ctx, r)
	}
}
