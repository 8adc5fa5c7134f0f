// Package sim provides a simulated LoRa transceiver.
package sim

import (
	"bytes"
	"errors"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/cloudsense/pkg/link"
)

// Errors reported by the simulated radio.
var (
	ErrInReset     = errors.New("radio in reset")
	ErrNotInit     = errors.New("radio not initialized")
	ErrInjectedTx  = errors.New("injected tx failure")
	ErrPacketLarge = errors.New("packet exceeds radio buffer")
)

// Radio is a simulated transceiver which records every packet it sends.
type Radio struct {
	// BusyPolls is the number of IsBusy calls reporting busy after a send.
	BusyPolls int
	// BufferSize is the transceiver buffer, 256 if 0.
	BufferSize int

	lock     sync.Mutex
	inReset  bool
	params   *link.RadioParams
	busy     int
	packets  [][]byte
	ops      []string
	failSend []int
	sends    int
}

// New creates a simulated radio held in reset.
func New() *Radio {
	return &Radio{inReset: true}
}

// FailSends makes the n-th (0-based, counted over the radio's lifetime)
// Send calls fail.
func (r *Radio) FailSends(n ...int) {
	r.lock.Lock()
	r.failSend = append(r.failSend, n...)
	r.lock.Unlock()
}

// AssertReset implements link.RadioDevice.
func (r *Radio) AssertReset() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.inReset, r.params, r.busy = true, nil, 0
	r.ops = append(r.ops, "reset")
	return nil
}

// ReleaseReset implements link.RadioDevice.
func (r *Radio) ReleaseReset() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.inReset = false
	r.ops = append(r.ops, "wake")
	return nil
}

// Init implements link.RadioDevice.
func (r *Radio) Init(params link.RadioParams) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.inReset {
		return ErrInReset
	}
	if err := params.Validate(); err != nil {
		return err
	}
	r.params = &params
	r.ops = append(r.ops, "init")
	return nil
}

// Send implements link.RadioDevice.
func (r *Radio) Send(payload []byte, header bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	n := r.sends
	r.sends++
	switch {
	case r.inReset:
		return ErrInReset
	case r.params == nil:
		return ErrNotInit
	case len(payload) > r.bufferSize():
		return ErrPacketLarge
	}
	for _, f := range r.failSend {
		if f == n {
			return ErrInjectedTx
		}
	}
	r.packets = append(r.packets, append([]byte(nil), payload...))
	r.ops = append(r.ops, "send")
	r.busy = r.BusyPolls
	glog.V(3).Infof("sim radio: packet %d bytes", len(payload))
	return nil
}

// IsBusy implements link.RadioDevice.
func (r *Radio) IsBusy() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.busy > 0 {
		r.busy--
		return true
	}
	return false
}

func (r *Radio) bufferSize() int {
	if r.BufferSize > 0 {
		return r.BufferSize
	}
	return link.DefaultMaxPacket
}

// InReset reports whether the radio is held in reset.
func (r *Radio) InReset() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.inReset
}

// Packets returns the packets sent so far.
func (r *Radio) Packets() [][]byte {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([][]byte(nil), r.packets...)
}

// Received concatenates all packets sent so far.
func (r *Radio) Received() []byte {
	return bytes.Join(r.Packets(), nil)
}

// Ops returns the sequence of operations: wake, init, send and reset.
func (r *Radio) Ops() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.ops...)
}

// Clear forgets recorded packets and operations.
func (r *Radio) Clear() {
	r.lock.Lock()
	r.packets, r.ops = nil, nil
	r.lock.Unlock()
}
