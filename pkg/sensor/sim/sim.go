// Package sim simulates a streaming image sensor from a still image.
package sim

import (
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"
	"sync"

	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	"golang.org/x/image/draw"

	"github.com/robotalks/cloudsense/pkg/sensor"
)

// Sensor streams the configured image one row buffer at a time. Each row is
// 4 bytes per pixel: red, green, blue and an unused byte.
type Sensor struct {
	// RowLatency is the number of empty polls before each row is ready.
	RowLatency int
	// TruncateAfter ends every image after that many rows, 0 disables.
	TruncateAfter int
	// Announce overrides the announced image info when non-nil.
	Announce *sensor.ImageInfo

	width, height int
	rows          [][]byte

	lock        sync.Mutex
	next        int
	wait        int
	outstanding bool
	pending     []uint32
	stats       sensor.StreamStats
	captures    int
	acquired    int
	released    int
}

// New creates a sensor streaming a synthetic gradient.
func New(width, height int) *Sensor {
	s := &Sensor{width: width, height: height}
	s.rows = make([][]byte, height)
	for y := range s.rows {
		s.rows[y] = make([]byte, width*sensor.RowStride)
	}
	s.SetImage(gradient(width, height))
	return s
}

// LoadImage decodes an image file, PNG, JPEG, BMP or TIFF.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// SetImage scales img to the sensor resolution and uses it for all
// following captures.
func (s *Sensor) SetImage(img image.Image) {
	dst := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	s.lock.Lock()
	defer s.lock.Unlock()
	for y, row := range s.rows {
		for x := 0; x < s.width; x++ {
			c := dst.RGBAAt(x, y)
			off := x * sensor.RowStride
			row[off], row[off+1], row[off+2], row[off+3] = c.R, c.G, c.B, 0
		}
	}
}

// InjectOverflow queues overflow counters reported by following captures,
// one value per capture.
func (s *Sensor) InjectOverflow(counts ...uint32) {
	s.lock.Lock()
	s.pending = append(s.pending, counts...)
	s.lock.Unlock()
}

// StartCapture implements sensor.Sensor.
func (s *Sensor) StartCapture() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.captures++
	s.next, s.wait = 0, s.RowLatency
	s.stats = sensor.StreamStats{}
	if len(s.pending) > 0 {
		s.stats.OverflowCount, s.pending = s.pending[0], s.pending[1:]
	}
	return nil
}

// ImageInfo implements sensor.Sensor.
func (s *Sensor) ImageInfo() (sensor.ImageInfo, error) {
	if s.Announce != nil {
		return *s.Announce, nil
	}
	return sensor.ImageInfo{
		Width:  s.width,
		Height: s.height,
		Length: s.width * s.height * sensor.RowStride,
	}, nil
}

func (s *Sensor) lastRow() int {
	if s.TruncateAfter > 0 && s.TruncateAfter < s.height {
		return s.TruncateAfter
	}
	return s.height
}

// StreamBuffer implements sensor.Sensor.
func (s *Sensor) StreamBuffer() []byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.next >= s.lastRow() {
		return nil
	}
	if s.wait > 0 {
		s.wait--
		return nil
	}
	if s.outstanding {
		// the only stream buffer is still borrowed: the row is lost.
		s.stats.OverflowCount++
		s.next++
		return nil
	}
	row := s.rows[s.next]
	s.next++
	s.wait = s.RowLatency
	s.outstanding = true
	s.acquired++
	return row
}

// ReleaseStreamBuffer implements sensor.Sensor.
func (s *Sensor) ReleaseStreamBuffer(buf []byte) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.outstanding {
		s.outstanding = false
		s.released++
	}
}

// ImageReceived implements sensor.Sensor.
func (s *Sensor) ImageReceived() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.next >= s.lastRow() && !s.outstanding
}

// StreamStats implements sensor.Sensor.
func (s *Sensor) StreamStats() sensor.StreamStats {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.stats
}

// Counters returns the number of captures, acquired and released buffers.
func (s *Sensor) Counters() (captures, acquired, released int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.captures, s.acquired, s.released
}

func gradient(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := img.PixOffset(x, y)
			img.Pix[off] = uint8(x * 255 / max(width-1, 1))
			img.Pix[off+1] = uint8(y * 255 / max(height-1, 1))
			img.Pix[off+2] = 0xc0
			img.Pix[off+3] = 0xff
		}
	}
	return img
}

// RowBytes returns a copy of the stream bytes of row y.
func (s *Sensor) RowBytes(y int) []byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]byte(nil), s.rows[y]...)
}
