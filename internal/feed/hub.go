package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"github.com/DoyleJ11/score-dashboard/internal/metrics"
)

var ErrHubClosed = errors.New("feed hub closed")

type HubMsg interface{ isHubMsg() }

type Subscribe struct {
	Reply chan Subscription
}

type Unsubscribe struct {
	ID string
}

type GetStatus struct {
	Reply chan Status
}

type ShutdownHub struct{}

type frameIn struct{ data []byte }

type linkChanged struct {
	up  bool
	err error
}

func (Subscribe) isHubMsg()   {}
func (Unsubscribe) isHubMsg() {}
func (GetStatus) isHubMsg()   {}
func (ShutdownHub) isHubMsg() {}
func (frameIn) isHubMsg()     {}
func (linkChanged) isHubMsg() {}

// Subscription holds at most one pending frame; a newer frame replaces an
// unread one. C is closed on Unsubscribe or hub shutdown.
type Subscription struct {
	ID string
	C  <-chan []byte
}

type Status struct {
	Connected   bool
	Subscribers int
	Frames      int
	Reconnects  int
	LastError   error
}

// Hub owns the single feed connection and fans frames out to subscribers.
type Hub struct {
	inbox  chan HubMsg
	subs   map[string]chan []byte
	latest []byte // last frame seen, replayed to new subscribers
	status Status
	src    Source
	bo     *backoff.Backoff
	log    *zap.Logger
	m      *metrics.Metrics
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}

	closeErr error // set by pump before wg.Done
}

type HubOption func(*Hub)

func WithLogger(log *zap.Logger) HubOption {
	return func(h *Hub) { h.log = log }
}

func WithMetrics(m *metrics.Metrics) HubOption {
	return func(h *Hub) { h.m = m }
}

func WithBackoff(min, max time.Duration) HubOption {
	return func(h *Hub) {
		h.bo = &backoff.Backoff{Min: min, Max: max, Factor: 2, Jitter: true}
	}
}

func NewHub(parent context.Context, src Source, opts ...HubOption) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		subs:   make(map[string]chan []byte),
		src:    src,
		bo:     &backoff.Backoff{Min: 250 * time.Millisecond, Max: 10 * time.Second, Factor: 2, Jitter: true},
		log:    zap.NewNop(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With(zap.String("component", "feed"))

	h.wg.Add(1)
	go h.pump()
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) send(m HubMsg) bool {
	select {
	case h.inbox <- m:
		return true
	case <-h.done:
		return false
	}
}

// Subscribe registers a new subscriber. Its outbox starts with the latest
// frame when the hub has seen one.
func (h *Hub) Subscribe(ctx context.Context) (Subscription, error) {
	reply := make(chan Subscription, 1)
	if !h.send(Subscribe{Reply: reply}) {
		return Subscription{}, ErrHubClosed
	}
	select {
	case s := <-reply:
		return s, nil
	case <-h.done:
		return Subscription{}, ErrHubClosed
	case <-ctx.Done():
		return Subscription{}, ctx.Err()
	}
}

func (h *Hub) Unsubscribe(id string) {
	h.send(Unsubscribe{ID: id})
}

func (h *Hub) Status() Status {
	reply := make(chan Status, 1)
	if !h.send(GetStatus{Reply: reply}) {
		return Status{}
	}
	select {
	case s := <-reply:
		return s
	case <-h.done:
		return Status{}
	}
}

// Close stops the hub, closes every subscription and the open stream, and
// returns the error from closing that stream.
func (h *Hub) Close() error {
	h.send(ShutdownHub{})
	<-h.done
	h.wg.Wait()
	return h.closeErr
}

func (h *Hub) loop() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Subscribe:
				id := uuid.NewString()
				ch := make(chan []byte, 1)
				if h.latest != nil {
					ch <- h.latest
				}
				h.subs[id] = ch
				msg.Reply <- Subscription{ID: id, C: ch}

			case Unsubscribe:
				if ch, ok := h.subs[msg.ID]; ok {
					close(ch)
					delete(h.subs, msg.ID)
				}

			case frameIn:
				h.status.Frames++
				h.m.FrameReceived()
				h.latest = msg.data
				h.broadcast(msg.data)

			case linkChanged:
				h.status.Connected = msg.up
				if msg.err != nil {
					h.status.LastError = msg.err
				}
				if !msg.up {
					h.status.Reconnects++
				}

			case GetStatus:
				st := h.status
				st.Subscribers = len(h.subs)
				msg.Reply <- st

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) broadcast(data []byte) {
	for _, ch := range h.subs {
		select {
		case ch <- data:
			continue
		default:
		}
		// Outbox full: the unread frame is stale, replace it.
		select {
		case <-ch:
			h.m.FrameSuperseded()
		default:
		}
		select {
		case ch <- data:
		default:
		}
	}
}

func (h *Hub) shutdown() {
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
	h.cancel()
}

// pump keeps one stream open at a time and reconnects with backoff.
func (h *Hub) pump() {
	defer h.wg.Done()

	for {
		stream, err := h.src.Open(h.ctx)
		if err != nil {
			if h.ctx.Err() != nil {
				return
			}
			h.notify(linkChanged{up: false, err: err})
			if !h.wait() {
				return
			}
			continue
		}

		h.log.Info("feed connected")
		h.notify(linkChanged{up: true})
		err = h.read(stream)

		closeErr := stream.Close()
		if h.ctx.Err() != nil {
			h.closeErr = closeErr
			return
		}
		if closeErr != nil {
			h.log.Debug("closing dropped stream", zap.Error(closeErr))
		}

		h.log.Warn("feed disconnected", zap.Error(err))
		h.notify(linkChanged{up: false, err: err})
		if !h.wait() {
			return
		}
	}
}

func (h *Hub) read(stream Stream) error {
	for {
		data, err := stream.Next(h.ctx)
		if err != nil {
			return err
		}
		h.bo.Reset()
		if !h.notify(frameIn{data: data}) {
			return h.ctx.Err()
		}
	}
}

func (h *Hub) notify(m HubMsg) bool {
	select {
	case h.inbox <- m:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) wait() bool {
	d := h.bo.Duration()
	h.m.Reconnected()
	h.log.Info("reconnecting to feed", zap.Duration("in", d), zap.Float64("attempt", h.bo.Attempt()))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-h.ctx.Done():
		return false
	}
}
