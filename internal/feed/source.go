package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/coder/websocket"
	"github.com/nats-io/nats.go"
)

// Source opens a stream of raw feed frames.
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is one open connection. Close releases exactly this connection.
type Stream interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

type WebSocketSource struct {
	URL       string
	Header    http.Header
	ReadLimit int64
}

func (s WebSocketSource) Open(ctx context.Context) (Stream, error) {
	conn, _, err := websocket.Dial(ctx, s.URL, &websocket.DialOptions{HTTPHeader: s.Header})
	if err != nil {
		return nil, fmt.Errorf("dial feed %s: %w", s.URL, err)
	}
	if s.ReadLimit > 0 {
		conn.SetReadLimit(s.ReadLimit)
	}
	return &wsStream{conn: conn}, nil
}

type wsStream struct {
	conn *websocket.Conn
}

func (w *wsStream) Next(ctx context.Context) ([]byte, error) {
	for {
		typ, data, err := w.conn.Read(ctx)
		if err != nil {
			return nil, err
		}
		if typ != websocket.MessageText {
			continue // feed frames are text only
		}
		return data, nil
	}
}

func (w *wsStream) Close() error {
	err := w.conn.Close(websocket.StatusNormalClosure, "bye")
	// A cancelled Read has already closed the connection.
	if errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// NATSSource reads frames published on a subject instead of a socket.
type NATSSource struct {
	URL     string
	Subject string
	Options []nats.Option
}

func (s NATSSource) Open(ctx context.Context) (Stream, error) {
	nc, err := nats.Connect(s.URL, s.Options...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	sub, err := nc.SubscribeSync(s.Subject)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.Subject, err)
	}
	// The subscription is live on the server once Open returns.
	if err := nc.FlushWithContext(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.Subject, err)
	}
	return &natsStream{nc: nc, sub: sub}, nil
}

type natsStream struct {
	nc  *nats.Conn
	sub *nats.Subscription
}

func (n *natsStream) Next(ctx context.Context) ([]byte, error) {
	msg, err := n.sub.NextMsgWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return msg.Data, nil
}

func (n *natsStream) Close() error {
	err := n.sub.Unsubscribe()
	n.nc.Close()
	if errors.Is(err, nats.ErrConnectionClosed) {
		return nil
	}
	return err
}
