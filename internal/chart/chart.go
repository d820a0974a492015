package chart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/score-dashboard/internal/engine"
	"github.com/DoyleJ11/score-dashboard/internal/metrics"
	"github.com/DoyleJ11/score-dashboard/internal/palette"
	"github.com/DoyleJ11/score-dashboard/internal/sink"
	"github.com/DoyleJ11/score-dashboard/pkg/types"
)

var (
	ErrSinkPanic = errors.New("rendering sink panicked")
	ErrStopped   = errors.New("chart stopped")
)

type Msg interface{ isChartMsg() }

// Attach is the first paint. Frames that arrive before it update state only.
type Attach struct{}

func (Attach) isChartMsg() {}

type FromFeed struct {
	Raw []byte
}

func (FromFeed) isChartMsg() {}

type Shutdown struct{}

func (Shutdown) isChartMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isChartMsg() {}

type View struct {
	Version   int
	Title     string
	Snapshot  types.Snapshot
	Attached  bool
	HandleID  string // empty when nothing is drawn
	Renders   int
	LastError error
}

// Chart is the live chart component. It owns its state and its one rendered
// handle; every mutation runs on the loop goroutine so renders never overlap.
type Chart struct {
	inbox    chan Msg
	done     chan struct{}
	state    engine.State
	sink     sink.Sink
	colors   engine.Colorer
	handle   sink.Handle
	attached bool
	renders  int
	lastErr  error

	debounce time.Duration
	clock    clockwork.Clock
	timer    clockwork.Timer
	pending  bool

	log     *zap.Logger
	metrics *metrics.Metrics
	ctx     context.Context
	cancel  context.CancelFunc
}

type Option func(*Chart)

func WithLogger(log *zap.Logger) Option {
	return func(c *Chart) { c.log = log }
}

func WithColors(colors engine.Colorer) Option {
	return func(c *Chart) { c.colors = colors }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Chart) { c.metrics = m }
}

// WithDebounce delays the render after a frame by d. Frames that arrive while a
// render is pending are folded into it, so a steady stream renders at most once
// per d and never waits longer than d.
func WithDebounce(d time.Duration) Option {
	return func(c *Chart) { c.debounce = d }
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Chart) { c.clock = clock }
}

func New(parent context.Context, title string, initial types.Snapshot, s sink.Sink, opts ...Option) *Chart {
	ctx, cancel := context.WithCancel(parent)

	c := &Chart{
		inbox:  make(chan Msg, 64),
		done:   make(chan struct{}),
		state:  engine.NewState(title, initial),
		sink:   s,
		colors: palette.NewDefault(),
		clock:  clockwork.NewRealClock(),
		log:    zap.NewNop(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.String("component", "chart"), zap.String("title", title))

	go c.loop()
	return c
}

func (c *Chart) Inbox() chan<- Msg { return c.inbox }

// Done is closed once the loop has exited and the handle is released.
func (c *Chart) Done() <-chan struct{} { return c.done }

// Send delivers msg unless the chart has already shut down.
func (c *Chart) Send(msg Msg) bool {
	select {
	case c.inbox <- msg:
		return true
	case <-c.done:
		return false
	}
}

// State returns the current view, or ErrStopped once the chart has shut down.
func (c *Chart) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if !c.Send(GetState{Reply: reply}) {
		return View{}, ErrStopped
	}
	select {
	case v := <-reply:
		return v, nil
	case <-c.done:
		return View{}, ErrStopped
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (c *Chart) loop() {
	defer close(c.done)

	for {
		var fire <-chan time.Time
		if c.timer != nil {
			fire = c.timer.Chan()
		}

		select {
		case <-c.ctx.Done():
			c.shutdown()
			return

		case <-fire:
			c.timer = nil
			if c.pending {
				c.pending = false
				c.render()
			}

		case m := <-c.inbox:
			switch msg := m.(type) {
			case Attach:
				if c.attached {
					break
				}
				c.attached = true
				c.render()

			case FromFeed:
				c.apply(engine.Command{Type: engine.CmdFeedFrame, Raw: msg.Raw})

			case GetState:
				msg.Reply <- c.view()

			case Shutdown:
				c.shutdown()
				return
			}
		}
	}
}

func (c *Chart) apply(cmd engine.Command) {
	events, next, err := engine.Apply(c.state, cmd)
	if err != nil {
		// Keep the previous snapshot on screen.
		c.log.Warn("dropping feed frame", zap.Error(err), zap.Int("bytes", len(cmd.Raw)))
		c.metrics.FrameMalformed()
		return
	}
	c.state = next

	for _, e := range events {
		c.log.Debug("snapshot replaced", zap.Int("version", e.Version), zap.Int("records", e.Records))
	}

	if !c.attached {
		return
	}
	if c.debounce <= 0 {
		c.render()
		return
	}
	c.pending = true
	if c.timer == nil {
		c.timer = c.clock.NewTimer(c.debounce)
	}
}

// render replaces the drawn chart: destroy first, then create.
func (c *Chart) render() {
	spec := engine.BuildSpec(c.state, c.colors)

	c.releaseHandle()

	h, err := c.create(spec)
	if err != nil {
		c.lastErr = err
		c.metrics.RenderFailed()
		c.log.Error("render failed", zap.Error(err), zap.Int("version", c.state.Version))
		c.sink.ShowError(c.state.Title, err)
		return
	}

	c.handle = h
	c.lastErr = nil
	c.renders++
	c.metrics.Rendered()
	c.log.Debug("rendered", zap.String("handle", h.ID()), zap.Int("bars", len(spec.Labels)))
}

func (c *Chart) create(spec engine.ChartSpec) (h sink.Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			h, err = nil, fmt.Errorf("%w: %v", ErrSinkPanic, r)
		}
	}()
	return c.sink.Create(c.ctx, spec)
}

func (c *Chart) releaseHandle() {
	if c.handle == nil {
		return
	}
	if err := c.handle.Destroy(); err != nil {
		c.log.Warn("destroy previous chart", zap.String("handle", c.handle.ID()), zap.Error(err))
	}
	c.handle = nil
}

func (c *Chart) view() View {
	v := View{
		Version:   c.state.Version,
		Title:     c.state.Title,
		Snapshot:  c.state.Snapshot.Clone(),
		Attached:  c.attached,
		Renders:   c.renders,
		LastError: c.lastErr,
	}
	if c.handle != nil {
		v.HandleID = c.handle.ID()
	}
	return v
}

func (c *Chart) shutdown() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.releaseHandle()
	c.cancel()
}
