// Package accel feeds frames into the neural-inference accelerator and
// synchronizes with its completion interrupt.
package accel

import (
	"time"

	"github.com/robotalks/cloudsense/pkg/frame"
)

// ResultVector holds the raw Q17.14 scores unloaded from the accelerator,
// one per class.
type ResultVector []int32

// Accelerator is the capability set of the inference accelerator core.
// Weights, bias and layer configuration are loaded by the board support code
// before the pipeline starts.
type Accelerator interface {
	// Start arms the accelerator for a new input stream.
	Start() error
	// Stop idles the accelerator so the next feed starts from a clean state.
	Stop() error
	// FIFOFull reads bit 0 of the FIFO status register.
	FIFOFull() bool
	// WriteFIFO writes one sample to the FIFO port.
	WriteFIFO(frame.Sample)
	// Elapsed reads the inference stopwatch.
	Elapsed() time.Duration
	// Unload copies the output registers into out.
	Unload(out ResultVector) error
}
