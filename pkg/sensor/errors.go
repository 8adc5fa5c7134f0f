package sensor

import (
	"errors"
	"fmt"
)

var (
	// ErrOverflow indicates the stream producer outran the consumer and the
	// captured frame is corrupt.
	ErrOverflow = errors.New("stream overflow")
	// ErrDimensionMismatch indicates the sensor announced a frame that does
	// not fit the configured buffer.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrShortFrame indicates the stream ended before the buffer was filled.
	ErrShortFrame = errors.New("short frame")
)

// OverflowError carries the overflow counter of a failed capture.
type OverflowError struct {
	Count uint32
}

// Error implements error.
func (e *OverflowError) Error() string {
	return fmt.Sprintf("stream overflow: %d buffers dropped", e.Count)
}

// Is matches ErrOverflow.
func (e *OverflowError) Is(target error) bool {
	return target == ErrOverflow
}

// DimensionError describes an announced frame inconsistent with the buffer.
type DimensionError struct {
	Expected ImageInfo
	Actual   ImageInfo
}

// Error implements error.
func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension mismatch: sensor %dx%d (%d bytes), buffer %dx%d (%d bytes)",
		e.Actual.Width, e.Actual.Height, e.Actual.Length,
		e.Expected.Width, e.Expected.Height, e.Expected.Length)
}

// Is matches ErrDimensionMismatch.
func (e *DimensionError) Is(target error) bool {
	return target == ErrDimensionMismatch
}
