// Package sim simulates the inference accelerator: a bounded input FIFO,
// an asynchronous compute stage and the completion interrupt.
package sim

import (
	"errors"
	"sync"
	"time"

	"github.com/robotalks/cloudsense/pkg/accel"
	"github.com/robotalks/cloudsense/pkg/frame"
)

// Model computes the raw scores of one inference.
type Model func(input []frame.Sample, out accel.ResultVector)

// Fixed returns a Model producing the same scores for every input.
func Fixed(scores ...int32) Model {
	return func(_ []frame.Sample, out accel.ResultVector) {
		copy(out, scores)
	}
}

// MeanColor is a deterministic stand-in for a trained network. It scores
// each class from the mean signed channel values of the frame: class 0
// favors blue, 1 bright, 2 dark, 3 flat gray. Scores are Q17.14.
func MeanColor(input []frame.Sample, out accel.ResultVector) {
	if len(input) == 0 {
		return
	}
	var sr, sg, sb int64
	for _, s := range input {
		r, g, b := s.Decode()
		sr, sg, sb = sr+int64(r), sg+int64(g), sb+int64(b)
	}
	n := int64(len(input))
	r, g, b := sr/n, sg/n, sb/n
	luma := (299*r + 587*g + 114*b) / 1000
	spread := abs(r-g) + abs(g-b) + abs(b-r)
	scores := []int64{
		luma/2 + (b-r)*2,
		luma,
		-luma,
		64 - spread,
	}
	for i := range out {
		if i < len(scores) {
			out[i] = int32(scores[i] << 8)
		} else {
			out[i] = 0
		}
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// Accelerator implements accel.Accelerator.
type Accelerator struct {
	// FIFODepth is the number of samples the input FIFO holds.
	FIFODepth int
	// DrainPolls is the number of status polls needed to free one slot of a
	// full FIFO.
	DrainPolls int
	// Latency is the compute time after the last sample.
	Latency time.Duration
	// Mute suppresses the completion interrupt.
	Mute bool
	// Model computes the scores, MeanColor by default.
	Model Model

	done    *accel.Completion
	input   []frame.Sample
	classes int

	lock    sync.Mutex
	running bool
	run     uint64
	pending int
	polls   int
	n       int
	scores  accel.ResultVector
	elapsed time.Duration
	starts  int
	stops   int
	writes  int
	full    int
}

// New creates an Accelerator taking inputSize samples per inference and
// producing classes scores. Completion is raised on done.
func New(inputSize, classes int, done *accel.Completion) *Accelerator {
	return &Accelerator{
		FIFODepth:  8,
		DrainPolls: 1,
		Model:      MeanColor,
		done:       done,
		input:      make([]frame.Sample, inputSize),
		classes:    classes,
		scores:     make(accel.ResultVector, classes),
	}
}

// Start implements accel.Accelerator.
func (a *Accelerator) Start() error {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.running {
		return errors.New("accelerator already running")
	}
	a.running = true
	a.run++
	a.n, a.pending, a.polls, a.elapsed = 0, 0, 0, 0
	a.starts++
	return nil
}

// Stop implements accel.Accelerator.
func (a *Accelerator) Stop() error {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.running = false
	a.run++
	a.stops++
	return nil
}

// FIFOFull implements accel.Accelerator.
func (a *Accelerator) FIFOFull() bool {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.pending < a.FIFODepth {
		return false
	}
	a.full++
	if a.polls++; a.polls >= a.DrainPolls {
		a.polls = 0
		a.pending--
	}
	return true
}

// WriteFIFO implements accel.Accelerator.
func (a *Accelerator) WriteFIFO(s frame.Sample) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.writes++
	if !a.running || a.n >= len(a.input) {
		return
	}
	a.input[a.n] = s
	a.n++
	a.pending++
	if a.n == len(a.input) {
		go a.compute(a.run, a.done.Generation())
	}
}

// compute runs the model for run and raises completion tagged with gen.
// It gives up if the accelerator was stopped or restarted meanwhile.
func (a *Accelerator) compute(run, gen uint64) {
	start := time.Now()
	if a.Latency > 0 {
		time.Sleep(a.Latency)
	}
	a.lock.Lock()
	if !a.running || a.run != run {
		a.lock.Unlock()
		return
	}
	a.Model(a.input, a.scores)
	a.elapsed = time.Since(start)
	if a.elapsed <= 0 {
		a.elapsed = time.Microsecond
	}
	mute := a.Mute
	a.lock.Unlock()
	if !mute {
		a.done.SignalGen(gen)
	}
}

// Elapsed implements accel.Accelerator.
func (a *Accelerator) Elapsed() time.Duration {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.elapsed
}

// Unload implements accel.Accelerator.
func (a *Accelerator) Unload(out accel.ResultVector) error {
	a.lock.Lock()
	defer a.lock.Unlock()
	if len(out) != a.classes {
		return errors.New("result vector length mismatch")
	}
	copy(out, a.scores)
	return nil
}

// Stats returns the start/stop counts, FIFO writes and full polls.
func (a *Accelerator) Stats() (starts, stops, writes, fullPolls int) {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.starts, a.stops, a.writes, a.full
}
