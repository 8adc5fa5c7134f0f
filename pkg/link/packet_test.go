package link

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPacketSeq(t *testing.T) {
	for s := byte(0xff); s >= byte(0xf0); s-- {
		require.False(t, PacketSeq(s).IsValid())
		require.Equal(t, PacketSeq(1), PacketSeq(s).Next())
	}
	for s := byte(1); s < byte(0xf0); s++ {
		require.True(t, PacketSeq(s).IsValid())
		if s+1 < 0xf0 {
			require.Equal(t, PacketSeq(s+1), PacketSeq(s).Next())
		} else {
			require.Equal(t, PacketSeq(1), PacketSeq(s).Next())
		}
	}
	require.False(t, PacketSeq(0).IsValid())
	require.Equal(t, PacketSeq(1), PacketSeq(0).Next())
}

func TestPacket(t *testing.T) {
	testCases := []struct {
		name   string
		packet Packet
		expect []byte
	}{
		{"no data", Packet{Seq: PacketSeq(1), Code: CodeLast}, []byte{1, 2}},
		{"small data", Packet{Seq: PacketSeq(1), Code: CodeLast, Data: []byte{1}}, []byte{1, 0x12, 1}},
		{"large data", Packet{Seq: PacketSeq(1), Code: CodeMore, Data: []byte{1, 2, 3, 4, 5, 6, 7}}, []byte{1, 0x71, 7, 1, 2, 3, 4, 5, 6, 7}},
		{"max data", Packet{Seq: PacketSeq(9), Code: CodeLast, Data: make([]byte, 255)}, append([]byte{9, 0x72, 255}, make([]byte, 255)...)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, tc.packet.Bytes())
			var buf bytes.Buffer
			n, err := tc.packet.WriteTo(&buf)
			require.NoError(t, err)
			require.Equal(t, tc.expect, buf.Bytes())
			require.Equal(t, int64(len(tc.expect)), n)
		})
	}
}

func TestPacketize(t *testing.T) {
	payload := make([]byte, 600)
	for i := range payload {
		payload[i] = byte(i)
	}
	pkts, next := Packetize(payload, 1000, PacketSeq(0xee))
	require.Len(t, pkts, 3)
	require.Equal(t, PacketSeq(0xee), pkts[0].Seq)
	require.Equal(t, PacketSeq(0xef), pkts[1].Seq)
	require.Equal(t, PacketSeq(1), pkts[2].Seq)
	require.Equal(t, PacketSeq(2), next)
	require.Equal(t, CodeMore, pkts[0].Code)
	require.Equal(t, CodeMore, pkts[1].Code)
	require.Equal(t, CodeLast, pkts[2].Code)
	require.Len(t, pkts[0].Data, MaxPacketData)

	pkts, next = Packetize(nil, 10, PacketSeq(0))
	require.Len(t, pkts, 1)
	require.Equal(t, PacketSeq(1), pkts[0].Seq)
	require.Equal(t, PacketSeq(2), next)
}

func TestParser(t *testing.T) {
	encode := func(pkts ...*Packet) []byte {
		var b []byte
		for _, pkt := range pkts {
			b = pkt.AppendTo(b)
		}
		return b
	}
	parse := func(p *Parser, stream []byte) (msgs [][]byte, errs []error) {
		for _, b := range stream {
			msg, err := p.Parse(b)
			if err != nil {
				errs = append(errs, err)
			}
			if msg != nil {
				msgs = append(msgs, msg)
			}
		}
		return
	}

	t.Run("messages", func(t *testing.T) {
		first, seq := Packetize([]byte("hello world"), 4, PacketSeq(3))
		second, _ := Packetize(nil, 4, seq)
		var p Parser
		msgs, errs := parse(&p, encode(append(first, second...)...))
		require.Empty(t, errs)
		require.Equal(t, [][]byte{[]byte("hello world"), {}}, msgs)
	})
	t.Run("gap", func(t *testing.T) {
		pkts, seq := Packetize([]byte("abcdefgh"), 3, PacketSeq(1))
		next, _ := Packetize([]byte("xyz"), 3, seq)
		var p Parser
		msgs, errs := parse(&p, encode(pkts[0], pkts[2], next[0]))
		require.Equal(t, []error{ErrSequence}, errs)
		require.Equal(t, [][]byte{[]byte("gh"), []byte("xyz")}, msgs)
	})
	t.Run("leading noise", func(t *testing.T) {
		pkts, _ := Packetize([]byte("ok"), 3, PacketSeq(5))
		var p Parser
		msgs, errs := parse(&p, append([]byte{0, 0xff, 0xf0}, encode(pkts...)...))
		require.Empty(t, errs)
		require.Equal(t, [][]byte{[]byte("ok")}, msgs)
	})
}
