package node

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/robotalks/cloudsense/pkg/accel"
	"github.com/robotalks/cloudsense/pkg/classify"
	"github.com/robotalks/cloudsense/pkg/link"
	"github.com/robotalks/cloudsense/pkg/sensor"
)

// Config defines the configurations of the node.
type Config struct {
	Width            int
	Height           int
	Classes          string
	PixelOrder       string
	Cooldown         time.Duration
	Payload          string
	Softmax          string
	InferenceTimeout time.Duration
	Policy           Policy
	MetricsAddr      string
}

var defaultConfig = Config{
	Width:            128,
	Height:           128,
	Classes:          strings.Join(classify.DefaultLabels, ","),
	PixelOrder:       "rgbx",
	Cooldown:         2 * time.Second,
	Payload:          PayloadFrame.String(),
	Softmax:          "precise",
	InferenceTimeout: 2 * time.Second,
	Policy:           DefaultPolicy,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.IntVar(&defaultConfig.Width, "width", defaultConfig.Width, "Frame width.")
	flag.IntVar(&defaultConfig.Height, "height", defaultConfig.Height, "Frame height.")
	flag.StringVar(&defaultConfig.Classes, "classes", defaultConfig.Classes, "Comma separated class labels in accelerator output order.")
	flag.StringVar(&defaultConfig.PixelOrder, "pixel-order", defaultConfig.PixelOrder, "Stream pixel layout: rgbx or bgrx.")
	flag.DurationVar(&defaultConfig.Cooldown, "cooldown", defaultConfig.Cooldown, "Delay between cycles.")
	flag.StringVar(&defaultConfig.Payload, "payload", defaultConfig.Payload, "Transmitted payload: frame, gray or result.")
	flag.StringVar(&defaultConfig.Softmax, "softmax", defaultConfig.Softmax, "Softmax variant: precise or vendor.")
	flag.DurationVar(&defaultConfig.InferenceTimeout, "inference-timeout", defaultConfig.InferenceTimeout, "Accelerator completion timeout, 0 waits forever.")
	flag.IntVar(&defaultConfig.Policy.OverflowRetries, "overflow-retries", defaultConfig.Policy.OverflowRetries, "Consecutive overflowing cycles skipped before halting.")
	flag.IntVar(&defaultConfig.Policy.HardwareRetries, "hw-retries", defaultConfig.Policy.HardwareRetries, "Consecutive accelerator failures skipped before halting.")
	flag.IntVar(&defaultConfig.Policy.TxRetries, "tx-retries", defaultConfig.Policy.TxRetries, "Extra transmit attempts per cycle.")
	flag.StringVar(&defaultConfig.MetricsAddr, "metrics-addr", defaultConfig.MetricsAddr, "Serve Prometheus metrics on this address, empty to disable.")
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

// Labels returns the parsed class labels.
func (c *Config) Labels() []string {
	return classify.ParseLabels(c.Classes)
}

// NewCycle assembles a cycle from the hardware using the config.
func (c *Config) NewCycle(s sensor.Sensor, a accel.Accelerator, done *accel.Completion, l link.Link) (*Cycle, error) {
	if c.Width <= 0 || c.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", c.Width, c.Height)
	}
	labels := c.Labels()
	if len(labels) == 0 {
		return nil, fmt.Errorf("no class labels")
	}
	order, err := sensor.ParsePixelOrder(c.PixelOrder)
	if err != nil {
		return nil, err
	}
	mode, err := ParsePayloadMode(c.Payload)
	if err != nil {
		return nil, err
	}
	softmax, err := classify.SoftmaxByName(c.Softmax)
	if err != nil {
		return nil, err
	}
	capturer := &sensor.Capturer{Sensor: s, Order: order}
	engine := &accel.Engine{Accel: a, Done: done, Timeout: c.InferenceTimeout}
	cycle := NewCycle(capturer, engine, classify.NewDecoder(labels, softmax), l, c.Width, c.Height)
	cycle.Payload = mode
	cycle.Cooldown = c.Cooldown
	cycle.Policy = c.Policy
	return cycle, nil
}
