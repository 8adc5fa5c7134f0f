package sensor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cloudsense/pkg/frame"
	"github.com/robotalks/cloudsense/pkg/hw"
)

type fakeSensor struct {
	info      ImageInfo
	rows      [][]byte
	latency   int
	overflow  uint32
	startErr  error
	next      int
	wait      int
	borrowed  int
	acquired  int
	released  int
	polls     int
	neverDone bool
}

func newFakeSensor(width, height int) *fakeSensor {
	s := &fakeSensor{info: ImageInfo{Width: width, Height: height, Length: width * height * RowStride}}
	for y := 0; y < height; y++ {
		row := make([]byte, width*RowStride)
		for x := 0; x < width; x++ {
			row[x*RowStride] = byte(x)
			row[x*RowStride+1] = byte(y)
			row[x*RowStride+2] = byte(x + y)
			row[x*RowStride+3] = 0xee
		}
		s.rows = append(s.rows, row)
	}
	return s
}

func (s *fakeSensor) StartCapture() error {
	s.next, s.wait = 0, s.latency
	return s.startErr
}

func (s *fakeSensor) ImageInfo() (ImageInfo, error) { return s.info, nil }

func (s *fakeSensor) StreamBuffer() []byte {
	s.polls++
	if s.next >= len(s.rows) {
		return nil
	}
	if s.wait > 0 {
		s.wait--
		return nil
	}
	row := s.rows[s.next]
	s.next++
	s.wait = s.latency
	s.borrowed++
	s.acquired++
	return row
}

func (s *fakeSensor) ReleaseStreamBuffer([]byte) {
	s.borrowed--
	s.released++
}

func (s *fakeSensor) ImageReceived() bool {
	return !s.neverDone && s.next >= len(s.rows)
}

func (s *fakeSensor) StreamStats() StreamStats { return StreamStats{OverflowCount: s.overflow} }

func TestCaptureFrame(t *testing.T) {
	s := newFakeSensor(4, 3)
	s.latency = 5
	buf := frame.NewBuffer(4, 3)
	require.NoError(t, CaptureFrame(context.Background(), s, buf))
	require.True(t, buf.Full())
	require.Equal(t, 3, s.acquired)
	require.Equal(t, 3, s.released)
	require.Zero(t, s.borrowed)
	require.Equal(t, 3+3*5, s.polls)

	samples := buf.Samples()
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			r, g, b := samples[y*4+x].RGB()
			require.Equal(t, []byte{byte(x), byte(y), byte(x + y)}, []byte{r, g, b})
		}
	}
}

func TestCaptureBGRX(t *testing.T) {
	s := newFakeSensor(2, 1)
	buf := frame.NewBuffer(2, 1)
	c := &Capturer{Sensor: s, Order: OrderBGRX}
	require.NoError(t, c.Capture(context.Background(), buf))
	r, g, b := buf.Samples()[1].RGB()
	require.Equal(t, []byte{1, 0, 1}, []byte{r, g, b})
}

func TestCaptureOverflow(t *testing.T) {
	s := newFakeSensor(4, 4)
	s.overflow = 1
	buf := frame.NewBuffer(4, 4)
	err := CaptureFrame(context.Background(), s, buf)
	require.True(t, errors.Is(err, ErrOverflow))
	var oe *OverflowError
	require.True(t, errors.As(err, &oe))
	require.EqualValues(t, 1, oe.Count)
	require.Zero(t, s.borrowed)
}

func TestCaptureDimensionMismatch(t *testing.T) {
	testCases := []struct {
		name string
		info ImageInfo
	}{
		{"width", ImageInfo{Width: 5, Height: 4}},
		{"height", ImageInfo{Width: 4, Height: 2}},
		{"length", ImageInfo{Width: 4, Height: 4, Length: 48}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newFakeSensor(4, 4)
			s.info = tc.info
			err := CaptureFrame(context.Background(), s, frame.NewBuffer(4, 4))
			require.True(t, errors.Is(err, ErrDimensionMismatch))
			require.Zero(t, s.acquired)
		})
	}
}

func TestCaptureEarlyTerminator(t *testing.T) {
	s := newFakeSensor(4, 4)
	s.rows = s.rows[:2]
	buf := frame.NewBuffer(4, 4)
	err := CaptureFrame(context.Background(), s, buf)
	require.True(t, errors.Is(err, ErrShortFrame))
	require.Equal(t, 8, buf.Len())
	require.Equal(t, s.acquired, s.released)
}

func TestCaptureShortRow(t *testing.T) {
	s := newFakeSensor(4, 2)
	s.rows[1] = s.rows[1][:6]
	buf := frame.NewBuffer(4, 2)
	err := CaptureFrame(context.Background(), s, buf)
	require.True(t, errors.Is(err, ErrShortFrame))
	require.Equal(t, 5, buf.Len())
}

func TestCapturePollExhausted(t *testing.T) {
	s := newFakeSensor(2, 2)
	s.rows = nil
	s.neverDone = true
	c := &Capturer{Sensor: s, Poll: hw.Poller{MaxSpins: 10}}
	err := c.Capture(context.Background(), frame.NewBuffer(2, 2))
	require.True(t, errors.Is(err, hw.ErrPollExhausted))
}

func TestCaptureStartError(t *testing.T) {
	s := newFakeSensor(2, 2)
	s.startErr = errors.New("sensor offline")
	err := CaptureFrame(context.Background(), s, frame.NewBuffer(2, 2))
	require.Error(t, err)
	require.Contains(t, err.Error(), "sensor offline")
}

func TestCaptureCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := CaptureFrame(ctx, newFakeSensor(2, 2), frame.NewBuffer(2, 2))
	require.Equal(t, context.Canceled, err)
}

func TestParsePixelOrder(t *testing.T) {
	o, err := ParsePixelOrder("bgrx")
	require.NoError(t, err)
	require.Equal(t, OrderBGRX, o)
	o, err = ParsePixelOrder("")
	require.NoError(t, err)
	require.Equal(t, OrderRGBX, o)
	_, err = ParsePixelOrder("xyz")
	require.Error(t, err)
}
