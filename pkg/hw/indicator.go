package hw

import (
	"sync"

	"github.com/golang/glog"
)

// Channel identifies one status indicator output.
type Channel int

// Status channels.
const (
	// ChannelActive is lit while a cycle is in progress.
	ChannelActive Channel = 1
	// ChannelFault is lit when the node halted on a hardware fault.
	ChannelFault Channel = 2
)

func (c Channel) String() string {
	switch c {
	case ChannelActive:
		return "active"
	case ChannelFault:
		return "fault"
	}
	return "unknown"
}

// Indicator is a two-state diagnostic output, e.g. an LED.
// Nothing reads it back.
type Indicator interface {
	Set(ch Channel, on bool)
}

// LogIndicator reports indicator changes in the log.
type LogIndicator struct {
	lock  sync.Mutex
	state map[Channel]bool
}

// Set implements Indicator.
func (l *LogIndicator) Set(ch Channel, on bool) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.state == nil {
		l.state = make(map[Channel]bool)
	}
	if l.state[ch] == on {
		return
	}
	l.state[ch] = on
	glog.V(1).Infof("status %s: %v", ch, on)
}

// Get returns the last state set on ch.
func (l *LogIndicator) Get(ch Channel) bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.state[ch]
}
