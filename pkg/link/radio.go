package link

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cloudsense/pkg/hw"
)

// Bandwidth is the LoRa channel bandwidth in kHz.
type Bandwidth int

// CodingRate is the denominator of the 4/x LoRa coding rate.
type CodingRate int

// LengthMode selects explicit (variable) or implicit (fixed) packet length.
type LengthMode int

// Packet length modes.
const (
	LengthVariable LengthMode = iota
	LengthFixed
)

// RadioParams configure the transceiver before each transmission.
type RadioParams struct {
	Frequency       uint
	Bandwidth       Bandwidth
	SpreadingFactor int
	CodingRate      CodingRate
	LengthMode      LengthMode
	SyncWord        uint8
	Power           int
	Ramp            time.Duration
}

// DefaultRadioParams are the parameters of the reference deployment:
// 868 MHz, 500 kHz, SF7, 4/5, variable length, 14 dBm, 200us ramp.
var DefaultRadioParams = RadioParams{
	Frequency:       868000000,
	Bandwidth:       500,
	SpreadingFactor: 7,
	CodingRate:      5,
	LengthMode:      LengthVariable,
	SyncWord:        0x04,
	Power:           14,
	Ramp:            200 * time.Microsecond,
}

// Validate checks the parameters are within the transceiver's range.
func (p RadioParams) Validate() error {
	switch p.Bandwidth {
	case 7, 10, 15, 20, 31, 41, 62, 125, 250, 500:
	default:
		return fmt.Errorf("unsupported bandwidth %d kHz", p.Bandwidth)
	}
	if p.SpreadingFactor < 5 || p.SpreadingFactor > 12 {
		return fmt.Errorf("unsupported spreading factor %d", p.SpreadingFactor)
	}
	if p.CodingRate < 5 || p.CodingRate > 8 {
		return fmt.Errorf("unsupported coding rate 4/%d", p.CodingRate)
	}
	if p.Power < -9 || p.Power > 22 {
		return fmt.Errorf("unsupported output power %d dBm", p.Power)
	}
	return nil
}

// RadioDevice is the capability set of the LoRa transceiver and its reset
// and busy lines.
type RadioDevice interface {
	// AssertReset holds the transceiver in reset, its lowest power state.
	AssertReset() error
	// ReleaseReset brings the transceiver out of reset.
	ReleaseReset() error
	Init(RadioParams) error
	// Send queues one packet for transmission.
	Send(payload []byte, header bool) error
	// IsBusy reads the busy line.
	IsBusy() bool
}

// Radio transmits payloads as a sequence of radio packets, powering the
// transceiver up for the transmission and back down afterwards.
type Radio struct {
	Device RadioDevice
	Params RadioParams
	// MaxPacket is the largest packet payload, DefaultMaxPacket if 0.
	MaxPacket int
	// Header is passed to the device with every packet.
	Header bool
	// SettleDelay is the wait after releasing reset.
	SettleDelay time.Duration
	// TxDelay is the conservative wait for a packet to leave when the busy
	// line is not polled or stays busy.
	TxDelay time.Duration
	// BusyPoll bounds polling the busy line. With MaxSpins 0 the busy line
	// is ignored and TxDelay is always waited.
	BusyPoll hw.Poller
}

// NewRadio creates a Radio with the reference timings.
func NewRadio(dev RadioDevice, params RadioParams) *Radio {
	return &Radio{
		Device:      dev,
		Params:      params,
		MaxPacket:   DefaultMaxPacket,
		SettleDelay: time.Millisecond,
		TxDelay:     10 * time.Millisecond,
		BusyPoll:    hw.Poller{MaxSpins: 100, Interval: 100 * time.Microsecond},
	}
}

func (r *Radio) maxPacket() int {
	if r.MaxPacket > 0 && r.MaxPacket <= DefaultMaxPacket {
		return r.MaxPacket
	}
	return DefaultMaxPacket
}

// Transmit implements Link.
func (r *Radio) Transmit(ctx context.Context, payload []byte) (err error) {
	if r.Device == nil {
		return ErrNotReady
	}
	chunks := Split(payload, r.maxPacket())
	if err = r.Device.ReleaseReset(); err != nil {
		return fault("release reset", err)
	}
	defer func() {
		if resetErr := r.Device.AssertReset(); resetErr != nil && err == nil {
			err = fault("assert reset", resetErr)
		}
	}()
	if err = sleep(ctx, r.SettleDelay); err != nil {
		return err
	}
	if err = r.Device.Init(r.Params); err != nil {
		return fault("init", err)
	}
	for n, chunk := range chunks {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = r.Device.Send(chunk, r.Header); err != nil {
			return fault(fmt.Sprintf("send %d/%d", n+1, len(chunks)), err)
		}
		if err = r.waitSent(ctx); err != nil {
			return err
		}
		glog.V(2).Infof("radio packet %d/%d: %d bytes", n+1, len(chunks), len(chunk))
	}
	return nil
}

func (r *Radio) waitSent(ctx context.Context) error {
	if r.BusyPoll.MaxSpins > 0 {
		if _, err := r.BusyPoll.Until(func() bool { return !r.Device.IsBusy() }); err == nil {
			return nil
		}
	}
	if err := sleep(ctx, r.TxDelay); err != nil {
		return err
	}
	if r.BusyPoll.MaxSpins > 0 && r.Device.IsBusy() {
		return fault("wait tx", hw.ErrPollExhausted)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
