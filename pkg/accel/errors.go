package accel

import "errors"

var (
	// ErrHardwareTimeout indicates the accelerator never signaled completion.
	ErrHardwareTimeout = errors.New("hardware timeout")
	// ErrStalled indicates the input FIFO stayed full past the poll bound.
	ErrStalled = errors.New("accelerator stalled")
	// ErrIncompleteFrame indicates the frame buffer was not completely written.
	ErrIncompleteFrame = errors.New("incomplete frame")
)
