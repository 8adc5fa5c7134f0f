package link_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cloudsense/pkg/hw"
	"github.com/robotalks/cloudsense/pkg/link"
	"github.com/robotalks/cloudsense/pkg/link/sim"
)

func testPayload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i>>8)
	}
	return b
}

func fastRadio(dev link.RadioDevice) *link.Radio {
	r := link.NewRadio(dev, link.DefaultRadioParams)
	r.SettleDelay, r.TxDelay = 0, 0
	r.BusyPoll = hw.Poller{MaxSpins: 10}
	return r
}

func TestSplit(t *testing.T) {
	for _, size := range []int{0, 1, 255, 256, 257, 512, 1000, 65536, 65537} {
		t.Run(fmt.Sprintf("%d", size), func(t *testing.T) {
			payload := testPayload(size)
			chunks := link.Split(payload, link.DefaultMaxPacket)
			require.Len(t, chunks, (size+255)/256)
			for _, c := range chunks {
				require.NotEmpty(t, c)
				require.LessOrEqual(t, len(c), link.DefaultMaxPacket)
			}
			require.Equal(t, payload, append([]byte{}, bytes.Join(chunks, nil)...))
		})
	}
}

func TestRadioTransmit(t *testing.T) {
	testCases := []struct {
		name    string
		size    int
		packets int
	}{
		{"empty", 0, 0},
		{"single byte", 1, 1},
		{"exact packet", 256, 1},
		{"one over", 257, 2},
		{"full frame", 65536, 256},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dev := sim.New()
			dev.BusyPolls = 2
			payload := testPayload(tc.size)
			require.NoError(t, fastRadio(dev).Transmit(context.Background(), payload))
			require.Len(t, dev.Packets(), tc.packets)
			require.Equal(t, payload, append([]byte{}, dev.Received()...))
			ops := dev.Ops()
			require.Equal(t, []string{"wake", "init"}, ops[:2])
			require.Equal(t, "reset", ops[len(ops)-1])
			require.Len(t, ops, tc.packets+3)
			require.True(t, dev.InReset())
		})
	}
}

func TestRadioIdempotent(t *testing.T) {
	dev := sim.New()
	r := fastRadio(dev)
	payload := testPayload(700)
	for i := 0; i < 2; i++ {
		dev.Clear()
		require.NoError(t, r.Transmit(context.Background(), payload))
		require.Equal(t, []string{"wake", "init", "send", "send", "send", "reset"}, dev.Ops())
		require.Equal(t, payload, dev.Received())
	}
}

func TestRadioSendFailure(t *testing.T) {
	dev := sim.New()
	dev.FailSends(1)
	err := fastRadio(dev).Transmit(context.Background(), testPayload(600))
	require.Error(t, err)
	require.True(t, errors.Is(err, link.ErrLinkFault))
	require.True(t, errors.Is(err, sim.ErrInjectedTx))
	var f *link.Fault
	require.True(t, errors.As(err, &f))
	require.Equal(t, "send 2/3", f.Op)
	require.Len(t, dev.Packets(), 1)
	require.True(t, dev.InReset())
}

func TestRadioStaysBusy(t *testing.T) {
	dev := sim.New()
	dev.BusyPolls = 100
	r := fastRadio(dev)
	r.BusyPoll.MaxSpins = 3
	err := r.Transmit(context.Background(), testPayload(10))
	require.True(t, errors.Is(err, link.ErrLinkFault))
	require.True(t, errors.Is(err, hw.ErrPollExhausted))
	require.True(t, dev.InReset())
}

func TestRadioFixedDelay(t *testing.T) {
	dev := sim.New()
	dev.BusyPolls = 100
	r := fastRadio(dev)
	r.BusyPoll.MaxSpins = 0
	require.NoError(t, r.Transmit(context.Background(), testPayload(300)))
	require.Len(t, dev.Packets(), 2)
}

func TestRadioCancelled(t *testing.T) {
	dev := sim.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := fastRadio(dev).Transmit(ctx, testPayload(300))
	require.True(t, errors.Is(err, context.Canceled))
	require.Empty(t, dev.Packets())
	require.True(t, dev.InReset())
}

func TestRadioNotReady(t *testing.T) {
	r := &link.Radio{}
	require.Equal(t, link.ErrNotReady, r.Transmit(context.Background(), []byte{1}))
}

func TestRadioConfig(t *testing.T) {
	conf := link.NewConfig()
	r, err := conf.NewRadio(sim.New())
	require.NoError(t, err)
	require.Equal(t, link.DefaultMaxPacket, r.MaxPacket)
	require.Equal(t, uint(868000000), r.Params.Frequency)

	conf.MaxPacket = 300
	_, err = conf.NewRadio(sim.New())
	require.True(t, errors.Is(err, link.ErrPayloadTooLarge))

	conf = link.NewConfig()
	conf.Radio.SpreadingFactor = 13
	_, err = conf.NewRadio(sim.New())
	require.Error(t, err)
}

func TestHexDump(t *testing.T) {
	testCases := []struct {
		name    string
		payload []byte
		expect  string
	}{
		{"empty", nil, "\n"},
		{"one", []byte{0xab}, "AB\n"},
		{"two", []byte{0x0f, 0xf0}, "0F, F0\n"},
		{"full line", testPayload(16), "00, 07, 0E, 15, 1C, 23, 2A, 31, 38, 3F, 46, 4D, 54, 5B, 62, 69\n\n"},
		{"wrap", testPayload(17), "00, 07, 0E, 15, 1C, 23, 2A, 31, 38, 3F, 46, 4D, 54, 5B, 62, 69, \n70\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, string(link.AppendHexDump(nil, tc.payload)))
		})
	}
}

func TestSerial(t *testing.T) {
	ctx := context.Background()
	t.Run("raw", func(t *testing.T) {
		var buf bytes.Buffer
		s := link.NewSerial(&buf, link.SerialRaw)
		s.ChunkSize = 3
		require.NoError(t, s.Announce(ctx, "cumulus"))
		require.NoError(t, s.Transmit(ctx, []byte("12345678")))
		require.Equal(t, "12345678", buf.String())
	})
	t.Run("hex", func(t *testing.T) {
		var buf bytes.Buffer
		s := link.NewSerial(&buf, link.SerialHex)
		require.NoError(t, s.Announce(ctx, "cumulus"))
		require.NoError(t, s.Transmit(ctx, []byte{0xab, 0x01}))
		require.Equal(t, "Start \ncumulus \nAB, 01\n\nCreate New File \n", buf.String())
	})
	t.Run("packet", func(t *testing.T) {
		var buf bytes.Buffer
		conf := link.NewConfig()
		conf.SerialMode = "packet"
		conf.MaxPacket = 100
		s, err := conf.NewSerial(&buf)
		require.NoError(t, err)
		payload := testPayload(250)
		require.NoError(t, s.Transmit(ctx, payload))
		require.NoError(t, s.Transmit(ctx, []byte("2")))
		var p link.Parser
		var msgs [][]byte
		for _, b := range buf.Bytes() {
			msg, err := p.Parse(b)
			require.NoError(t, err)
			if msg != nil {
				msgs = append(msgs, msg)
			}
		}
		require.Equal(t, [][]byte{payload, []byte("2")}, msgs)
	})
	t.Run("not ready", func(t *testing.T) {
		s := &link.Serial{}
		require.Equal(t, link.ErrNotReady, s.Transmit(ctx, []byte{1}))
	})
	t.Run("write failure", func(t *testing.T) {
		s := link.NewSerial(failWriter{}, link.SerialRaw)
		err := s.Transmit(ctx, []byte{1})
		require.True(t, errors.Is(err, link.ErrLinkFault))
	})
	t.Run("bad mode", func(t *testing.T) {
		_, err := link.ParseSerialMode("base64")
		require.Error(t, err)
	})
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("unplugged") }
