// Package env provides the identity of the node and its broker settings.
package env

import (
	"flag"
	"os"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	"github.com/robotalks/cloudsense/pkg/comm/mqtt"
)

const appID = "cloudsense"

// Config provides the node identity and the broker URL.
type Config struct {
	NodeID string
	// BrokerURL specifies the MQTT broker, e.g. mqtt://host:port/topic-prefix.
	// Empty disables MQTT.
	BrokerURL string
}

var defaultConfig Config

func init() {
	if val := os.Getenv("CLOUDSENSE_NODE_ID"); val != "" {
		defaultConfig.NodeID = val
	}
	if val := os.Getenv("CLOUDSENSE_MQTT_URL"); val != "" {
		defaultConfig.BrokerURL = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.NodeID, "node-id", defaultConfig.NodeID, "Node ID, derived from the machine ID if empty.")
	flag.StringVar(&defaultConfig.BrokerURL, "mqtt", defaultConfig.BrokerURL, "MQTT broker URL, e.g. mqtt://localhost:1883/cloudsense/.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// ID returns the configured node ID or the machine derived one.
func (c *Config) ID() string {
	if c.NodeID != "" {
		return c.NodeID
	}
	return MachineID()
}

// NewSession creates the MQTT session of the node, nil if no broker is
// configured.
func (c *Config) NewSession(meta mqtt.Meta) (*mqtt.Session, error) {
	if c.BrokerURL == "" {
		return nil, nil
	}
	meta.NodeID = c.ID()
	if meta.Started.IsZero() {
		meta.Started = time.Now()
	}
	return mqtt.NewSession(c.BrokerURL, meta)
}

// MachineID retrieves an ID identifying the machine, scoped to this
// application. It falls back to the host name.
func MachineID() string {
	id, err := machineid.ProtectedID(appID)
	if err == nil {
		return id[:12]
	}
	glog.Warningf("machine id: %v", err)
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return appID
}
