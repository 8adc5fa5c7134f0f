package node

import (
	"fmt"

	"github.com/robotalks/cloudsense/pkg/classify"
	"github.com/robotalks/cloudsense/pkg/frame"
)

// PayloadMode selects what a cycle transmits.
type PayloadMode int

// Payload modes.
const (
	// PayloadFrame sends every sample as 4 big-endian bytes.
	PayloadFrame PayloadMode = iota
	// PayloadGray sends one luma byte per pixel.
	PayloadGray
	// PayloadResult sends the top class index in ASCII decimal.
	PayloadResult
)

var payloadNames = [...]string{
	PayloadFrame:  "frame",
	PayloadGray:   "gray",
	PayloadResult: "result",
}

func (m PayloadMode) String() string {
	if m >= 0 && int(m) < len(payloadNames) {
		return payloadNames[m]
	}
	return fmt.Sprintf("payload(%d)", int(m))
}

// ParsePayloadMode parses frame, gray or result.
func ParsePayloadMode(s string) (PayloadMode, error) {
	for m, name := range payloadNames {
		if name == s {
			return PayloadMode(m), nil
		}
	}
	return PayloadFrame, fmt.Errorf("unknown payload %q", s)
}

// Size is the payload size for a w x h frame.
func (m PayloadMode) Size(w, h int) int {
	switch m {
	case PayloadFrame:
		return w * h * frame.SampleBytes
	case PayloadGray:
		return w * h
	}
	return 1
}

// AppendPayload appends the payload of mode built from buf and res to dst.
func AppendPayload(dst []byte, mode PayloadMode, buf *frame.Buffer, res *classify.Result) []byte {
	switch mode {
	case PayloadFrame:
		return buf.AppendBytes(dst)
	case PayloadGray:
		return buf.AppendGray(dst)
	}
	// a single character '0'+class index, 0 without a result.
	top := 0
	if res != nil && res.Top >= 0 {
		top = res.Top
	}
	return append(dst, byte('0'+top))
}
