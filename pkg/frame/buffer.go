package frame

import (
	"encoding/binary"
	"io"
)

// SampleBytes is the serialized size of one Sample.
const SampleBytes = 4

// Buffer is a row-major frame of samples. The backing storage is allocated
// once and reused by every capture.
type Buffer struct {
	width   int
	height  int
	samples []Sample
	n       int
}

// NewBuffer allocates a buffer for width x height samples.
func NewBuffer(width, height int) *Buffer {
	if width <= 0 || height <= 0 {
		panic("frame: non-positive dimensions")
	}
	return &Buffer{
		width:   width,
		height:  height,
		samples: make([]Sample, width*height),
	}
}

// Width gets the configured width.
func (b *Buffer) Width() int { return b.width }

// Height gets the configured height.
func (b *Buffer) Height() int { return b.height }

// Cap is the fixed number of samples, width x height.
func (b *Buffer) Cap() int { return len(b.samples) }

// Len is the number of samples written since the last Reset.
func (b *Buffer) Len() int { return b.n }

// Full indicates every slot has been written.
func (b *Buffer) Full() bool { return b.n == len(b.samples) }

// Reset rewinds the write cursor without releasing storage.
func (b *Buffer) Reset() { b.n = 0 }

// Append writes s at the next free slot. It returns false once full.
func (b *Buffer) Append(s Sample) bool {
	if b.n >= len(b.samples) {
		return false
	}
	b.samples[b.n] = s
	b.n++
	return true
}

// Samples returns the written samples. The slice aliases the buffer.
func (b *Buffer) Samples() []Sample {
	return b.samples[:b.n]
}

// Load copies samples into the buffer, replacing its content.
// It is meant for canned frames and returns the number copied.
func (b *Buffer) Load(samples []Sample) int {
	b.n = copy(b.samples, samples)
	return b.n
}

// AppendBytes appends the written samples to dst, 4 bytes each, most
// significant byte first.
func (b *Buffer) AppendBytes(dst []byte) []byte {
	for _, s := range b.Samples() {
		dst = binary.BigEndian.AppendUint32(dst, uint32(s))
	}
	return dst
}

// AppendGray appends one luma byte per written sample to dst.
func (b *Buffer) AppendGray(dst []byte) []byte {
	for _, s := range b.Samples() {
		dst = append(dst, s.Gray())
	}
	return dst
}

// WriteTo implements io.WriterTo using the big-endian sample encoding.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.AppendBytes(make([]byte, 0, b.n*SampleBytes)))
	return int64(n), err
}

// DecodeBytes parses a big-endian sample stream produced by AppendBytes.
// Trailing bytes that do not form a whole sample are ignored.
func DecodeBytes(p []byte) []Sample {
	samples := make([]Sample, len(p)/SampleBytes)
	for i := range samples {
		samples[i] = Sample(binary.BigEndian.Uint32(p[i*SampleBytes:]))
	}
	return samples
}
