package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodePixelRoundTrip(t *testing.T) {
	seen := make(map[Sample]struct{})
	for r := 0; r < 256; r += 5 {
		for g := 0; g < 256; g += 3 {
			for b := 0; b < 256; b += 7 {
				s := EncodePixel(uint8(r), uint8(g), uint8(b))
				require.Zero(t, s&0xff000000)
				sr, sg, sb := s.Decode()
				require.Equal(t, r-128, int(sr))
				require.Equal(t, g-128, int(sg))
				require.Equal(t, b-128, int(sb))
				ur, ug, ub := s.RGB()
				require.Equal(t, []uint8{uint8(r), uint8(g), uint8(b)}, []uint8{ur, ug, ub})
				_, dup := seen[s]
				require.False(t, dup)
				seen[s] = struct{}{}
			}
		}
	}
}

func TestEncodePixelLayout(t *testing.T) {
	testCases := []struct {
		name    string
		r, g, b uint8
		expect  Sample
	}{
		{"zero", 0, 0, 0, 0x808080},
		{"mid", 128, 128, 128, 0},
		{"full", 255, 255, 255, 0x7f7f7f},
		{"red only", 255, 0, 0, 0x80807f},
		{"blue only", 0, 0, 255, 0x7f8080},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, EncodePixel(tc.r, tc.g, tc.b))
		})
	}
}

func TestGray(t *testing.T) {
	require.Equal(t, uint8(0), EncodePixel(0, 0, 0).Gray())
	require.Equal(t, uint8(255), EncodePixel(255, 255, 255).Gray())
	require.Equal(t, uint8(76), EncodePixel(255, 0, 0).Gray())
}

func TestBuffer(t *testing.T) {
	buf := NewBuffer(2, 2)
	require.Equal(t, 4, buf.Cap())
	for i := 0; i < 4; i++ {
		require.True(t, buf.Append(Sample(i+1)))
	}
	require.True(t, buf.Full())
	require.False(t, buf.Append(5))
	require.Equal(t, []Sample{1, 2, 3, 4}, buf.Samples())

	p := buf.AppendBytes(nil)
	require.Equal(t, []byte{0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0, 4}, p)
	require.Equal(t, buf.Samples(), DecodeBytes(p))

	var out bytes.Buffer
	n, err := buf.WriteTo(&out)
	require.NoError(t, err)
	require.EqualValues(t, 16, n)
	require.Equal(t, p, out.Bytes())

	buf.Reset()
	require.Zero(t, buf.Len())
	require.Empty(t, buf.Samples())
	require.Equal(t, 2, buf.Load([]Sample{9, 8}))
	require.Equal(t, []Sample{9, 8}, buf.Samples())
}
