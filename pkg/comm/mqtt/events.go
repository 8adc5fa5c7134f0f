package mqtt

import (
	"context"
	"strings"

	"github.com/golang/glog"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/robotalks/cloudsense/pkg/node"
)

// Node status values.
const (
	StatusRunning = "running"
	StatusHalted  = "halted"
)

// Publisher publishes cycle reports as JSON encoded protobuf Structs. It
// implements node.Observer.
type Publisher struct {
	Session *Session

	status string
}

// NewPublisher creates a Publisher.
func NewPublisher(s *Session) *Publisher {
	return &Publisher{Session: s}
}

// Observe implements node.Observer.
func (p *Publisher) Observe(ctx context.Context, r *node.Report) {
	st, err := r.Struct()
	if err != nil {
		glog.Errorf("encode report %d: %v", r.Seq, err)
		return
	}
	st.Fields["node"] = structpb.NewStringValue(p.Session.Meta.NodeID)
	data, err := protojson.Marshal(st)
	if err != nil {
		glog.Errorf("encode report %d: %v", r.Seq, err)
		return
	}
	p.Session.Queue.Pub(p.Session.Topic(TopicResult), data)

	status := StatusRunning
	if r.Halted || r.State == node.StateHalted {
		status = StatusHalted
	}
	if status != p.status {
		p.status = status
		p.Session.SetStatus(status)
	}
}

// Waker is woken by the cycle command.
type Waker interface {
	Wake()
}

// Commands supported on <node-id>/cmd/<command>.
const (
	CommandCycle = "cycle"
)

// HandleCommands subscribes to node commands.
func (s *Session) HandleCommands(w Waker) *Subscription {
	prefix := s.Topic(TopicCommand) + "/"
	return s.Queue.Sub(prefix+"+", func(topic string, payload []byte) {
		switch cmd := strings.TrimPrefix(topic, prefix); cmd {
		case CommandCycle:
			glog.Info("cycle requested")
			w.Wake()
		default:
			glog.Warningf("unknown command %q", cmd)
		}
	})
}
