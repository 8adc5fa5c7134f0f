// Package sensor drives a stream-producing image sensor row by row into a
// frame buffer.
package sensor

// ImageInfo is what the sensor announces after a capture is started.
type ImageInfo struct {
	Width  int
	Height int
	// Length is the total number of bytes the sensor will stream.
	Length int
}

// StreamStats are the sensor stream counters collected during a capture.
type StreamStats struct {
	// OverflowCount is the number of times the producer found no free
	// stream buffer, i.e. data was dropped.
	OverflowCount uint32
}

// Sensor is the capability set of the streaming image sensor.
type Sensor interface {
	// StartCapture requests the next frame.
	StartCapture() error
	// ImageInfo returns the dimensions of the frame being captured.
	ImageInfo() (ImageInfo, error)
	// StreamBuffer polls for a filled row buffer, nil if none is ready yet.
	// The buffer is owned by the sensor and must be released.
	StreamBuffer() []byte
	// ReleaseStreamBuffer returns a buffer obtained from StreamBuffer.
	ReleaseStreamBuffer(buf []byte)
	// ImageReceived indicates the whole frame has been streamed.
	ImageReceived() bool
	// StreamStats returns the counters of the current capture.
	StreamStats() StreamStats
}
