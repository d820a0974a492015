package board

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSMirror republishes grouped snapshots on a subject, for dashboards that
// read the feed with feed.NATSSource.
type NATSMirror struct {
	nc      *nats.Conn
	subject string
}

func NewNATSMirror(url, subject string, opts ...nats.Option) (*NATSMirror, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSMirror{nc: nc, subject: subject}, nil
}

func (n *NATSMirror) Publish(payload []byte) error {
	return n.nc.Publish(n.subject, payload)
}

func (n *NATSMirror) Close() error {
	return n.nc.Drain()
}
