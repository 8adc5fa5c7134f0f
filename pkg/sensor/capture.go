package sensor

import (
	"context"
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/cloudsense/pkg/frame"
	"github.com/robotalks/cloudsense/pkg/hw"
)

// RowStride is the number of stream bytes per pixel.
const RowStride = 4

// PixelOrder defines the position of the color channels within a pixel of
// the stream. The fourth byte is always unused.
type PixelOrder int

const (
	// OrderRGBX is a little-endian 0x00bbggrr word: red first.
	OrderRGBX PixelOrder = iota
	// OrderBGRX is a big-endian 0x00bbggrr word: blue first.
	OrderBGRX
)

// ParsePixelOrder parses "rgbx" or "bgrx".
func ParsePixelOrder(s string) (PixelOrder, error) {
	switch s {
	case "rgbx", "RGBX", "":
		return OrderRGBX, nil
	case "bgrx", "BGRX":
		return OrderBGRX, nil
	}
	return OrderRGBX, fmt.Errorf("unknown pixel order %q", s)
}

// Capturer captures frames from a Sensor.
type Capturer struct {
	Sensor Sensor
	Order  PixelOrder
	// Poll bounds the wait for each row buffer. The default never yields
	// and never gives up.
	Poll hw.Poller
}

// CaptureFrame captures one frame from s into out using default options.
func CaptureFrame(ctx context.Context, s Sensor, out *frame.Buffer) error {
	return (&Capturer{Sensor: s}).Capture(ctx, out)
}

// Capture runs the streaming capture protocol. On success out holds exactly
// Width x Height samples. On failure the content of out must not be used.
func (c *Capturer) Capture(ctx context.Context, out *frame.Buffer) error {
	out.Reset()
	if err := c.Sensor.StartCapture(); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	info, err := c.Sensor.ImageInfo()
	if err != nil {
		return fmt.Errorf("image info: %w", err)
	}
	expected := ImageInfo{
		Width:  out.Width(),
		Height: out.Height(),
		Length: out.Cap() * RowStride,
	}
	if info.Width != expected.Width || info.Height != expected.Height ||
		(info.Length != 0 && info.Length != expected.Length) {
		return &DimensionError{Expected: expected, Actual: info}
	}
	glog.V(2).Infof("capture W:%d H:%d L:%d", info.Width, info.Height, info.Length)

	for row := 0; row < info.Height; row++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var data []byte
		var received bool
		_, err := c.Poll.Until(func() bool {
			if data = c.Sensor.StreamBuffer(); data != nil {
				return true
			}
			received = c.Sensor.ImageReceived()
			return received
		})
		if err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
		if data == nil {
			glog.V(2).Infof("image received after %d rows", row)
			break
		}
		c.copyRow(data, info.Width, out)
	}

	if stats := c.Sensor.StreamStats(); stats.OverflowCount > 0 {
		return &OverflowError{Count: stats.OverflowCount}
	}
	if !out.Full() {
		return fmt.Errorf("%w: %d of %d samples", ErrShortFrame, out.Len(), out.Cap())
	}
	return nil
}

func (c *Capturer) copyRow(data []byte, width int, out *frame.Buffer) {
	defer c.Sensor.ReleaseStreamBuffer(data)
	n := width * RowStride
	if n > len(data) {
		n = len(data) - len(data)%RowStride
	}
	for k := 0; k < n; k += RowStride {
		var s frame.Sample
		if c.Order == OrderBGRX {
			s = frame.EncodePixel(data[k+2], data[k+1], data[k])
		} else {
			s = frame.EncodePixel(data[k], data[k+1], data[k+2])
		}
		if !out.Append(s) {
			return
		}
	}
}
