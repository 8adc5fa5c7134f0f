package link

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// SerialMode selects how payload bytes appear on the serial line.
type SerialMode int

// Serial modes.
const (
	// SerialRaw writes payload bytes unchanged.
	SerialRaw SerialMode = iota
	// SerialHex writes a framed hex dump readable by a capture script.
	SerialHex
	// SerialPacket writes sequenced packets, see Packet.
	SerialPacket
)

// ParseSerialMode parses "raw", "hex" or "packet".
func ParseSerialMode(s string) (SerialMode, error) {
	switch s {
	case "raw", "":
		return SerialRaw, nil
	case "hex":
		return SerialHex, nil
	case "packet":
		return SerialPacket, nil
	}
	return SerialRaw, fmt.Errorf("unknown serial mode %q", s)
}

const (
	hexPerLine   = 16
	serialStart  = "Start \n"
	serialFinish = "\nCreate New File \n"
)

// Serial transmits payloads over a serial line or any io.Writer.
//
// In hex mode a message is framed as
//
//	Start
//	<caption>
//	XX, XX, ... (16 per line)
//	Create New File
//
// where the first two lines come from Announce.
type Serial struct {
	Mode SerialMode
	// ChunkSize splits raw writes, 0 writes the payload at once.
	ChunkSize int
	// Pause is waited between the sections of a hex message so a slow
	// reader can open its output file.
	Pause time.Duration

	lock sync.Mutex
	w    io.Writer
	seq  PacketSeq
}

// NewSerial creates a Serial link writing to w.
func NewSerial(w io.Writer, mode SerialMode) *Serial {
	return &Serial{w: w, Mode: mode, seq: NewPacketSeq()}
}

// OpenSerial opens the serial device at path for writing.
func OpenSerial(path string, mode SerialMode) (*Serial, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrNotReady, path, err)
	}
	return NewSerial(f, mode), f, nil
}

// Announce implements Announcer. It is a no-op in raw mode.
func (s *Serial) Announce(ctx context.Context, caption string) error {
	if s.Mode != SerialHex {
		return nil
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.w == nil {
		return ErrNotReady
	}
	if _, err := io.WriteString(s.w, serialStart); err != nil {
		return fault("write", err)
	}
	if err := sleep(ctx, s.Pause); err != nil {
		return err
	}
	if _, err := io.WriteString(s.w, caption+" \n"); err != nil {
		return fault("write", err)
	}
	return sleep(ctx, s.Pause)
}

// Transmit implements Link.
func (s *Serial) Transmit(ctx context.Context, payload []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.w == nil {
		return ErrNotReady
	}
	switch s.Mode {
	case SerialHex:
		return s.writeHex(ctx, payload)
	case SerialPacket:
		return s.writePackets(ctx, payload)
	}
	chunk := s.ChunkSize
	if chunk <= 0 {
		chunk = len(payload) + 1
	}
	for _, c := range Split(payload, chunk) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.w.Write(c); err != nil {
			return fault("write", err)
		}
	}
	return nil
}

func (s *Serial) writeHex(ctx context.Context, payload []byte) error {
	bw := bufio.NewWriter(s.w)
	if _, err := bw.Write(AppendHexDump(nil, payload)); err != nil {
		return fault("write", err)
	}
	if err := bw.Flush(); err != nil {
		return fault("write", err)
	}
	if err := sleep(ctx, s.Pause); err != nil {
		return err
	}
	if _, err := io.WriteString(s.w, serialFinish); err != nil {
		return fault("write", err)
	}
	return sleep(ctx, s.Pause)
}

func (s *Serial) writePackets(ctx context.Context, payload []byte) error {
	max := s.ChunkSize
	if max <= 0 {
		max = MaxPacketData
	}
	var pkts []*Packet
	pkts, s.seq = Packetize(payload, max, s.seq)
	var buf []byte
	for _, pkt := range pkts {
		if err := ctx.Err(); err != nil {
			return err
		}
		buf = pkt.AppendTo(buf[:0])
		if _, err := s.w.Write(buf); err != nil {
			return fault("write", err)
		}
	}
	return nil
}

const hexDigits = "0123456789ABCDEF"

// AppendHexDump appends payload as upper-case hex pairs separated by ", ",
// 16 pairs per line, followed by a newline.
func AppendHexDump(dst, payload []byte) []byte {
	for i, b := range payload {
		dst = append(dst, hexDigits[b>>4], hexDigits[b&0xf])
		if i < len(payload)-1 {
			dst = append(dst, ',', ' ')
		}
		if (i+1)%hexPerLine == 0 {
			dst = append(dst, '\n')
		}
	}
	return append(dst, '\n')
}
