package mqtt

import (
	"context"
	"errors"

	"github.com/robotalks/cloudsense/pkg/link"
)

// Uplink transmits payloads as MQTT messages. It implements link.Link and
// link.Announcer.
type Uplink struct {
	Session *Session
	// MaxPacket splits payloads into several messages, 0 sends one message.
	MaxPacket int
	QoS       byte
}

// NewUplink creates an Uplink publishing with QoS 1.
func NewUplink(s *Session) *Uplink {
	return &Uplink{Session: s, QoS: 1}
}

// Announce implements link.Announcer.
func (u *Uplink) Announce(ctx context.Context, caption string) error {
	return u.publish(ctx, TopicLabel, []byte(caption))
}

// Transmit implements link.Link.
func (u *Uplink) Transmit(ctx context.Context, payload []byte) error {
	if u.MaxPacket <= 0 {
		return u.publish(ctx, TopicPayload, payload)
	}
	for _, chunk := range link.Split(payload, u.MaxPacket) {
		if err := u.publish(ctx, TopicPayload, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (u *Uplink) publish(ctx context.Context, name string, data []byte) error {
	if u.Session == nil || !u.Session.Queue.Client.IsConnectionOpen() {
		return link.ErrNotReady
	}
	err := Await(ctx, u.Session.Queue.PubWith(u.Session.Topic(name), data, u.QoS, false))
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &link.Fault{Op: "publish " + name, Err: err}
}
