package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"
)

// Topics under <prefix><node-id>/.
const (
	TopicMeta    = "meta"
	TopicStatus  = "status"
	TopicResult  = "result"
	TopicPayload = "payload"
	TopicLabel   = "label"
	TopicCommand = "cmd"
)

// Meta is the retained presence record of a node. It is cleared by the
// broker through the will message when the node disappears.
type Meta struct {
	NodeID  string    `json:"node-id"`
	Labels  []string  `json:"labels,omitempty"`
	Width   int       `json:"width,omitempty"`
	Height  int       `json:"height,omitempty"`
	Link    string    `json:"link,omitempty"`
	Payload string    `json:"payload,omitempty"`
	Started time.Time `json:"started"`
}

// Session is the connection of one node to the broker.
type Session struct {
	Queue *Queue
	Meta  Meta

	metaJSON []byte
}

// NewSession creates a Session from a broker URL.
func NewSession(brokerURL string, meta Meta) (*Session, error) {
	metaJSON, err := json.Marshal(&meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	s := &Session{Meta: meta, metaJSON: metaJSON}
	opts.SetBinaryWill(topicPrefix+s.Topic(TopicMeta), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("cloudsense:" + meta.NodeID)
	}
	s.Queue = NewQueue(opts, topicPrefix)
	s.Queue.OnConnect = func(*Queue) { s.onConnected() }
	return s, nil
}

// NewSessionWith creates a Session over an existing Queue.
func NewSessionWith(q *Queue, meta Meta) *Session {
	metaJSON, _ := json.Marshal(&meta)
	s := &Session{Queue: q, Meta: meta, metaJSON: metaJSON}
	return s
}

// Topic returns the node-scoped topic.
func (s *Session) Topic(name string) string {
	return s.Meta.NodeID + "/" + name
}

// Name implements framework.Named.
func (s *Session) Name() string { return "mqtt" }

// Run implements framework.Runnable.
func (s *Session) Run(ctx context.Context) error {
	s.Queue.Connect()
	<-ctx.Done()
	s.Queue.PubWith(s.Topic(TopicMeta), nil, 1, true).WaitTimeout(time.Second)
	s.Queue.Close()
	return nil
}

// SetStatus publishes the retained node status.
func (s *Session) SetStatus(status string) {
	s.Queue.PubWith(s.Topic(TopicStatus), []byte(status), 1, true)
}

func (s *Session) onConnected() {
	glog.V(1).Infof("publish meta of %s", s.Meta.NodeID)
	s.Queue.PubWith(s.Topic(TopicMeta), s.metaJSON, 1, true)
}
