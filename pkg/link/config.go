package link

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Link kinds.
const (
	KindRadio  = "radio"
	KindSerial = "serial"
	KindMQTT   = "mqtt"
)

// Config defines the configurations of the uplink.
type Config struct {
	Kind         string
	SerialDevice string
	SerialMode   string
	SerialPause  time.Duration
	MaxPacket    int
	Radio        RadioParams
	// RadioBusyPoll enables polling the busy line after each packet.
	RadioBusyPoll bool
}

var defaultConfig = Config{
	Kind:          KindRadio,
	SerialDevice:  "/dev/ttyUSB0",
	SerialMode:    "raw",
	MaxPacket:     DefaultMaxPacket,
	Radio:         DefaultRadioParams,
	RadioBusyPoll: true,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Kind, "link", defaultConfig.Kind, "Uplink: radio, serial or mqtt.")
	flag.StringVar(&defaultConfig.SerialDevice, "serial-device", defaultConfig.SerialDevice, "Serial device path.")
	flag.StringVar(&defaultConfig.SerialMode, "serial-mode", defaultConfig.SerialMode, "Serial output: raw, hex or packet.")
	flag.DurationVar(&defaultConfig.SerialPause, "serial-pause", defaultConfig.SerialPause, "Pause between sections of a hex message.")
	flag.IntVar(&defaultConfig.MaxPacket, "max-packet", defaultConfig.MaxPacket, "Maximum bytes per radio packet.")
	flag.UintVar(&defaultConfig.Radio.Frequency, "radio-freq", defaultConfig.Radio.Frequency, "Radio frequency in Hz.")
	flag.IntVar((*int)(&defaultConfig.Radio.Bandwidth), "radio-bw", int(defaultConfig.Radio.Bandwidth), "Radio bandwidth in kHz.")
	flag.IntVar(&defaultConfig.Radio.SpreadingFactor, "radio-sf", defaultConfig.Radio.SpreadingFactor, "Radio spreading factor.")
	flag.IntVar((*int)(&defaultConfig.Radio.CodingRate), "radio-cr", int(defaultConfig.Radio.CodingRate), "Radio coding rate denominator, 5 means 4/5.")
	flag.Func("radio-sync", "Radio sync word (default 0x04).", func(s string) error {
		v, err := strconv.ParseUint(s, 0, 8)
		if err != nil {
			return err
		}
		defaultConfig.Radio.SyncWord = uint8(v)
		return nil
	})
	flag.IntVar(&defaultConfig.Radio.Power, "radio-power", defaultConfig.Radio.Power, "Radio output power in dBm.")
	flag.DurationVar(&defaultConfig.Radio.Ramp, "radio-ramp", defaultConfig.Radio.Ramp, "Radio power ramp time.")
	flag.BoolVar(&defaultConfig.RadioBusyPoll, "radio-busy-poll", defaultConfig.RadioBusyPoll, "Poll the radio busy line instead of a fixed delay.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewRadio creates a radio link over dev using the config.
func (c *Config) NewRadio(dev RadioDevice) (*Radio, error) {
	if err := c.Radio.Validate(); err != nil {
		return nil, err
	}
	if c.MaxPacket <= 0 {
		return nil, fmt.Errorf("invalid max packet size %d", c.MaxPacket)
	}
	if c.MaxPacket > DefaultMaxPacket {
		return nil, fmt.Errorf("%w: max packet %d exceeds %d", ErrPayloadTooLarge, c.MaxPacket, DefaultMaxPacket)
	}
	r := NewRadio(dev, c.Radio)
	r.MaxPacket = c.MaxPacket
	if !c.RadioBusyPoll {
		r.BusyPoll.MaxSpins = 0
	}
	return r, nil
}

// NewSerial creates a serial link over w using the config.
func (c *Config) NewSerial(w io.Writer) (*Serial, error) {
	mode, err := ParseSerialMode(c.SerialMode)
	if err != nil {
		return nil, err
	}
	s := NewSerial(w, mode)
	s.Pause = c.SerialPause
	if mode == SerialPacket {
		s.ChunkSize = c.MaxPacket
	}
	return s, nil
}

// OpenSerial opens the configured serial device.
func (c *Config) OpenSerial() (*Serial, io.Closer, error) {
	mode, err := ParseSerialMode(c.SerialMode)
	if err != nil {
		return nil, nil, err
	}
	s, closer, err := OpenSerial(c.SerialDevice, mode)
	if err != nil {
		return nil, nil, err
	}
	s.Pause = c.SerialPause
	if mode == SerialPacket {
		s.ChunkSize = c.MaxPacket
	}
	return s, closer, nil
}
