package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDropped = errors.New("connection dropped")

type fakeStream struct {
	frames chan []byte

	mu     sync.Mutex
	closes int
}

func newFakeStream() *fakeStream { return &fakeStream{frames: make(chan []byte, 8)} }

func (s *fakeStream) Next(ctx context.Context) ([]byte, error) {
	select {
	case f, ok := <-s.frames:
		if !ok {
			return nil, errDropped
		}
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	return nil
}

func (s *fakeStream) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

type fakeSource struct {
	streams chan *fakeStream

	mu     sync.Mutex
	opened []*fakeStream
}

func newFakeSource(streams ...*fakeStream) *fakeSource {
	src := &fakeSource{streams: make(chan *fakeStream, len(streams)+1)}
	for _, s := range streams {
		src.streams <- s
	}
	return src
}

func (f *fakeSource) Open(ctx context.Context) (Stream, error) {
	select {
	case s := <-f.streams:
		f.mu.Lock()
		f.opened = append(f.opened, s)
		f.mu.Unlock()
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeSource) Opened() []*fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeStream(nil), f.opened...)
}

// helper: receive one frame with a timeout so tests never hang
func recvFrame(t *testing.T, sub Subscription, within time.Duration) string {
	t.Helper()
	select {
	case f, ok := <-sub.C:
		if !ok {
			t.Fatalf("subscription closed unexpectedly")
		}
		return string(f)
	case <-time.After(within):
		t.Fatalf("timed out waiting for frame")
		return "" // unreachable
	}
}

func waitStatus(t *testing.T, h *Hub, cond func(Status) bool) Status {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if st := h.Status(); cond(st) {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("status condition not met: %+v", h.Status())
	return Status{}
}

func TestHub_FansOutToEverySubscriber(t *testing.T) {
	stream := newFakeStream()
	h := NewHub(context.Background(), newFakeSource(stream))
	defer h.Close()

	a, err := h.Subscribe(context.Background())
	require.NoError(t, err)
	b, err := h.Subscribe(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	stream.frames <- []byte(`[{"name":"VIC","score":1}]`)

	assert.Equal(t, `[{"name":"VIC","score":1}]`, recvFrame(t, a, 200*time.Millisecond))
	assert.Equal(t, `[{"name":"VIC","score":1}]`, recvFrame(t, b, 200*time.Millisecond))
}

func TestHub_UnreadFrameIsReplacedByNewer(t *testing.T) {
	stream := newFakeStream()
	h := NewHub(context.Background(), newFakeSource(stream))
	defer h.Close()

	sub, err := h.Subscribe(context.Background())
	require.NoError(t, err)

	stream.frames <- []byte("1")
	stream.frames <- []byte("2")
	stream.frames <- []byte("3")
	waitStatus(t, h, func(s Status) bool { return s.Frames == 3 })

	assert.Equal(t, "3", recvFrame(t, sub, 200*time.Millisecond))
	select {
	case f := <-sub.C:
		t.Fatalf("expected only the latest frame, also got %q", f)
	default:
	}
}

func TestHub_LateSubscriberGetsLatestFrame(t *testing.T) {
	stream := newFakeStream()
	h := NewHub(context.Background(), newFakeSource(stream))
	defer h.Close()

	stream.frames <- []byte("1")
	stream.frames <- []byte("2")
	waitStatus(t, h, func(s Status) bool { return s.Frames == 2 })

	sub, err := h.Subscribe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2", recvFrame(t, sub, 200*time.Millisecond))

	stream.frames <- []byte("3")
	assert.Equal(t, "3", recvFrame(t, sub, 200*time.Millisecond))
}

func TestHub_ReconnectsAfterDrop(t *testing.T) {
	first, second := newFakeStream(), newFakeStream()
	src := newFakeSource(first, second)
	h := NewHub(context.Background(), src, WithBackoff(time.Millisecond, 5*time.Millisecond))
	defer h.Close()

	sub, err := h.Subscribe(context.Background())
	require.NoError(t, err)

	first.frames <- []byte("before")
	assert.Equal(t, "before", recvFrame(t, sub, 200*time.Millisecond))
	close(first.frames) // server went away

	second.frames <- []byte("after")
	assert.Equal(t, "after", recvFrame(t, sub, time.Second))

	st := waitStatus(t, h, func(s Status) bool { return s.Connected })
	assert.GreaterOrEqual(t, st.Reconnects, 1)
	assert.ErrorIs(t, st.LastError, errDropped)
	assert.Equal(t, 1, first.Closes(), "dropped stream must be closed once")
}

func TestHub_CloseReleasesOpenedStreamAndSubscriptions(t *testing.T) {
	stream := newFakeStream()
	src := newFakeSource(stream)
	h := NewHub(context.Background(), src)

	sub, err := h.Subscribe(context.Background())
	require.NoError(t, err)
	waitStatus(t, h, func(s Status) bool { return s.Connected })

	require.NoError(t, h.Close())

	opened := src.Opened()
	require.Len(t, opened, 1)
	assert.Same(t, stream, opened[0])
	assert.Equal(t, 1, stream.Closes())

	_, ok := <-sub.C
	assert.False(t, ok, "subscription should be closed")

	_, err = h.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub(context.Background(), newFakeSource(newFakeStream()))
	defer h.Close()

	sub, err := h.Subscribe(context.Background())
	require.NoError(t, err)
	h.Unsubscribe(sub.ID)

	_, ok := <-sub.C
	assert.False(t, ok)
	assert.Equal(t, 0, h.Status().Subscribers)
}

func TestWebSocketSource_ReadsTextFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		ctx := r.Context()
		_ = conn.Write(ctx, websocket.MessageBinary, []byte{0x1})
		_ = conn.Write(ctx, websocket.MessageText, []byte(`[{"name":"VIC","score":3}]`))
		_, _, _ = conn.Read(ctx) // hold open until the client closes
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	src := WebSocketSource{URL: "ws" + strings.TrimPrefix(srv.URL, "http")}
	stream, err := src.Open(ctx)
	require.NoError(t, err)

	data, err := stream.Next(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"VIC","score":3}]`, string(data))

	assert.NoError(t, stream.Close())
}

func TestWebSocketSource_DialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := WebSocketSource{URL: "ws://127.0.0.1:1/ws/results"}.Open(ctx)
	assert.Error(t, err)
}
