package link

import (
	"errors"
	"io"
	"time"
)

// MaxPacketData is the largest data block of a framed packet.
const MaxPacketData = 255

// Packet codes.
const (
	// CodeMore marks a chunk followed by more chunks of the same message.
	CodeMore byte = 0x01
	// CodeLast marks the final chunk of a message.
	CodeLast byte = 0x02
)

// ErrSequence indicates a framed packet arrived out of sequence, a packet of
// the message was lost.
var ErrSequence = errors.New("packet out of sequence")

// PacketSeq is the sequence number of a framed packet.
type PacketSeq byte

// NewPacketSeq creates a random packet sequence number.
func NewPacketSeq() PacketSeq {
	return PacketSeq(byte(time.Now().UnixNano())).Next()
}

// Next calculates the next sequence number.
func (s PacketSeq) Next() PacketSeq {
	n := byte(s) + 1
	if n == 0 || n >= 0xf0 {
		n = 1
	}
	return PacketSeq(n)
}

// IsValid checks if it's a valid sequence number.
func (s PacketSeq) IsValid() bool {
	n := byte(s)
	return n > 0 && n < 0xf0
}

// Packet is one framed chunk of a message.
//
// Encoding: seq, code with the data length in bits 4-6, and when the length
// is 7 or more, an extra length byte before the data.
type Packet struct {
	Seq  PacketSeq
	Code byte
	Data []byte
}

// Bytes returns encoded bytes for sending.
func (p *Packet) Bytes() []byte {
	return p.AppendTo(nil)
}

// AppendTo appends the encoded packet to dst.
func (p *Packet) AppendTo(dst []byte) []byte {
	l := len(p.Data)
	if l > MaxPacketData {
		l = MaxPacketData
	}
	code := p.Code & 0x8f
	if l >= 7 {
		dst = append(dst, byte(p.Seq), code|0x70, byte(l))
	} else {
		dst = append(dst, byte(p.Seq), code|byte(l<<4))
	}
	return append(dst, p.Data[:l]...)
}

// WriteTo writes encoded bytes.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(p.Bytes())
	return int64(n), err
}

// Packetize splits payload into framed packets starting at seq. It returns
// the packets and the sequence number following the last one.
func Packetize(payload []byte, max int, seq PacketSeq) ([]*Packet, PacketSeq) {
	if max > MaxPacketData {
		max = MaxPacketData
	}
	if !seq.IsValid() {
		seq = seq.Next()
	}
	chunks := Split(payload, max)
	if len(chunks) == 0 {
		chunks = [][]byte{nil}
	}
	pkts := make([]*Packet, len(chunks))
	for n, chunk := range chunks {
		code := CodeMore
		if n == len(chunks)-1 {
			code = CodeLast
		}
		pkts[n] = &Packet{Seq: seq, Code: code, Data: chunk}
		seq = seq.Next()
	}
	return pkts, seq
}

type parseState int

const (
	stateSeq  parseState = iota // waiting for packet seq
	stateCode                   // waiting for packet code
	stateLen                    // waiting for extended length
	stateData                   // waiting for packet data
)

// Parser reassembles messages from a framed byte stream.
type Parser struct {
	state   parseState
	synced  bool
	peerSeq PacketSeq
	packet  *Packet
	recvLen int
	message []byte
}

// Parse consumes one byte. It returns a complete message when the last
// packet of it is received. A sequence gap drops the partial message and
// returns ErrSequence; parsing resumes with the out-of-sequence packet.
func (p *Parser) Parse(b byte) (msg []byte, err error) {
	switch p.state {
	case stateSeq:
		seq := PacketSeq(b)
		if !seq.IsValid() {
			return nil, nil
		}
		if p.synced && seq != p.peerSeq {
			err = ErrSequence
			p.message = nil
		}
		p.synced, p.peerSeq = true, seq.Next()
		p.packet = &Packet{Seq: seq}
		p.state = stateCode
	case stateCode:
		p.packet.Code = b & 0x8f
		switch l := int(b>>4) & 7; l {
		case 0:
			return p.packetReady()
		case 7:
			p.state = stateLen
		default:
			p.packet.Data, p.recvLen = make([]byte, l), 0
			p.state = stateData
		}
	case stateLen:
		if b == 0 {
			return p.packetReady()
		}
		p.packet.Data, p.recvLen = make([]byte, b), 0
		p.state = stateData
	case stateData:
		p.packet.Data[p.recvLen] = b
		p.recvLen++
		if p.recvLen >= len(p.packet.Data) {
			return p.packetReady()
		}
	}
	return nil, err
}

// Reset drops any partial packet or message.
func (p *Parser) Reset() {
	*p = Parser{}
}

func (p *Parser) packetReady() (msg []byte, err error) {
	pkt := p.packet
	p.packet, p.state = nil, stateSeq
	p.message = append(p.message, pkt.Data...)
	if pkt.Code&CodeLast != 0 {
		msg, p.message = p.message, nil
		if msg == nil {
			msg = []byte{}
		}
	}
	return msg, nil
}
