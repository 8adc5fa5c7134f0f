package sim

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cloudsense/pkg/frame"
	"github.com/robotalks/cloudsense/pkg/sensor"
)

func TestSimCapture(t *testing.T) {
	s := New(8, 6)
	s.RowLatency = 3
	buf := frame.NewBuffer(8, 6)
	require.NoError(t, sensor.CaptureFrame(context.Background(), s, buf))
	captures, acquired, released := s.Counters()
	require.Equal(t, 1, captures)
	require.Equal(t, 6, acquired)
	require.Equal(t, 6, released)

	for y := 0; y < 6; y++ {
		row := s.RowBytes(y)
		for x := 0; x < 8; x++ {
			expect := frame.EncodePixel(row[x*4], row[x*4+1], row[x*4+2])
			require.Equal(t, expect, buf.Samples()[y*8+x])
		}
	}
}

func TestSimInjectOverflow(t *testing.T) {
	s := New(4, 4)
	s.InjectOverflow(1)
	buf := frame.NewBuffer(4, 4)
	err := sensor.CaptureFrame(context.Background(), s, buf)
	require.True(t, errors.Is(err, sensor.ErrOverflow))
	require.NoError(t, sensor.CaptureFrame(context.Background(), s, buf))
}

func TestSimUnreleasedBufferOverflows(t *testing.T) {
	s := New(2, 3)
	require.NoError(t, s.StartCapture())
	require.NotNil(t, s.StreamBuffer())
	require.Nil(t, s.StreamBuffer())
	require.EqualValues(t, 1, s.StreamStats().OverflowCount)
}

func TestSimTruncate(t *testing.T) {
	s := New(4, 4)
	s.TruncateAfter = 2
	err := sensor.CaptureFrame(context.Background(), s, frame.NewBuffer(4, 4))
	require.True(t, errors.Is(err, sensor.ErrShortFrame))
}

func TestLoadImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 10, 200, 30, 255
	}
	path := filepath.Join(t.TempDir(), "sky.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	loaded, err := LoadImage(path)
	require.NoError(t, err)
	s := New(4, 4)
	s.SetImage(loaded)
	row := s.RowBytes(2)
	c := color.RGBA{R: row[4], G: row[5], B: row[6], A: 255}
	require.InDelta(t, 10, int(c.R), 1)
	require.InDelta(t, 200, int(c.G), 1)
	require.InDelta(t, 30, int(c.B), 1)

	_, err = LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
}
