package accel

import (
	"context"
	"sync"

	"github.com/golang/glog"
)

// Completion is a single-shot event raised by the accelerator interrupt and
// awaited by the pipeline. Each inference arms a new generation: a signal
// raised before Wait is not lost, extra signals within one generation
// collapse into one wake, and signals tagged with an earlier generation are
// dropped.
type Completion struct {
	lock sync.Mutex
	gen  uint64
	ch   chan uint64
}

// NewCompletion creates a Completion.
func NewCompletion() *Completion {
	return &Completion{ch: make(chan uint64, 1)}
}

// Arm starts a new generation and drops any pending signal.
func (c *Completion) Arm() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.gen++
	c.drain()
	return c.gen
}

// Generation returns the armed generation.
func (c *Completion) Generation() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.gen
}

// Signal raises the event for the armed generation. It never blocks and is
// safe to call from the interrupt context.
func (c *Completion) Signal() {
	c.SignalGen(c.Generation())
}

// SignalGen raises the event for generation gen. It is dropped if another
// generation was armed meanwhile.
func (c *Completion) SignalGen(gen uint64) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if gen != c.gen {
		glog.V(2).Infof("stale completion %d dropped, armed %d", gen, c.gen)
		return
	}
	select {
	case c.ch <- gen:
	default:
	}
}

// Reset drops a pending signal.
func (c *Completion) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.drain()
}

func (c *Completion) drain() {
	select {
	case <-c.ch:
	default:
	}
}

// Wait blocks until the event fires for the armed generation or ctx is
// done.
func (c *Completion) Wait(ctx context.Context) error {
	for {
		select {
		case gen := <-c.ch:
			if gen != c.Generation() {
				continue
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
