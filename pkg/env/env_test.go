package env

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cloudsense/pkg/comm/mqtt"
)

func TestConfigID(t *testing.T) {
	conf := NewConfig()
	conf.NodeID = "roof-1"
	require.Equal(t, "roof-1", conf.ID())

	conf.NodeID = ""
	require.NotEmpty(t, conf.ID())
	require.Equal(t, MachineID(), conf.ID())
}

func TestNewSession(t *testing.T) {
	conf := NewConfig()
	conf.BrokerURL = ""
	s, err := conf.NewSession(mqtt.Meta{})
	require.NoError(t, err)
	require.Nil(t, s)

	conf.BrokerURL = "mqtt://localhost:1883/sky"
	conf.NodeID = "roof-1"
	s, err = conf.NewSession(mqtt.Meta{Width: 128, Height: 128})
	require.NoError(t, err)
	require.Equal(t, "roof-1", s.Meta.NodeID)
	require.False(t, s.Meta.Started.IsZero())
	require.Equal(t, "sky/", s.Queue.TopicPrefix)
	require.Equal(t, "roof-1/result", s.Topic(mqtt.TopicResult))
}
