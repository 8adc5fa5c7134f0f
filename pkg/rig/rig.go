// Package rig assembles simulated node hardware: the streaming sensor, the
// inference accelerator and the radio.
package rig

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cloudsense/pkg/accel"
	accelsim "github.com/robotalks/cloudsense/pkg/accel/sim"
	linksim "github.com/robotalks/cloudsense/pkg/link/sim"
	sensorsim "github.com/robotalks/cloudsense/pkg/sensor/sim"
)

// Config defines the behavior of the simulated hardware.
type Config struct {
	// Image is streamed by the sensor, a gradient if empty.
	Image string
	// Model is meancolor or a comma separated list of fixed scores.
	Model        string
	RowLatency   int
	AccelLatency time.Duration
	FIFODepth    int
	RadioBusy    int
}

var defaultConfig = Config{
	Model:        "meancolor",
	AccelLatency: 2 * time.Millisecond,
	FIFODepth:    8,
	RadioBusy:    4,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Image, "image", defaultConfig.Image, "Image streamed by the simulated sensor (png, jpeg, bmp, tiff).")
	flag.StringVar(&defaultConfig.Model, "model", defaultConfig.Model, "Simulated network: meancolor or fixed scores, e.g. 100,400,50,50.")
	flag.IntVar(&defaultConfig.RowLatency, "row-latency", defaultConfig.RowLatency, "Empty stream polls before each row.")
	flag.DurationVar(&defaultConfig.AccelLatency, "accel-latency", defaultConfig.AccelLatency, "Simulated inference time.")
	flag.IntVar(&defaultConfig.FIFODepth, "fifo-depth", defaultConfig.FIFODepth, "Simulated accelerator FIFO depth.")
	flag.IntVar(&defaultConfig.RadioBusy, "radio-busy", defaultConfig.RadioBusy, "Busy polls after each simulated radio packet.")
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

// Rig is a set of simulated hardware.
type Rig struct {
	Sensor *sensorsim.Sensor
	Accel  *accelsim.Accelerator
	Done   *accel.Completion
	Radio  *linksim.Radio
}

// New creates a rig for width x height frames and the number of classes.
func (c *Config) New(width, height, classes int) (*Rig, error) {
	model, err := ParseModel(c.Model)
	if err != nil {
		return nil, err
	}
	r := &Rig{
		Sensor: sensorsim.New(width, height),
		Done:   accel.NewCompletion(),
		Radio:  linksim.New(),
	}
	if c.Image != "" {
		img, err := sensorsim.LoadImage(c.Image)
		if err != nil {
			return nil, err
		}
		r.Sensor.SetImage(img)
		glog.Infof("streaming %s", c.Image)
	}
	r.Sensor.RowLatency = c.RowLatency
	r.Accel = accelsim.New(width*height, classes, r.Done)
	r.Accel.Model = model
	r.Accel.Latency = c.AccelLatency
	if c.FIFODepth > 0 {
		r.Accel.FIFODepth = c.FIFODepth
	}
	r.Radio.BusyPolls = c.RadioBusy
	return r, nil
}

// ParseModel parses meancolor or a list of fixed Q17.14 scores.
func ParseModel(s string) (accelsim.Model, error) {
	if s == "" || s == "meancolor" {
		return accelsim.MeanColor, nil
	}
	var scores []int32
	for _, item := range strings.Split(s, ",") {
		v, err := strconv.ParseInt(strings.TrimSpace(item), 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid model %q: %v", s, err)
		}
		scores = append(scores, int32(v))
	}
	return accelsim.Fixed(scores...), nil
}
