// Package container mounts the live chart: it loads the initial snapshot,
// owns the one feed subscription and tears both down together.
package container

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/score-dashboard/internal/chart"
	"github.com/DoyleJ11/score-dashboard/internal/feed"
	"github.com/DoyleJ11/score-dashboard/internal/metrics"
	"github.com/DoyleJ11/score-dashboard/internal/sink"
	"github.com/DoyleJ11/score-dashboard/internal/snapshot"
)

var ErrNotMounted = errors.New("container not mounted")

// Fetcher loads the initial snapshot. *snapshot.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context) snapshot.Result
}

// Feed is the shared subscription owner. *feed.Hub implements it.
type Feed interface {
	Subscribe(ctx context.Context) (feed.Subscription, error)
	Unsubscribe(id string)
	Close() error
}

type Config struct {
	Title        string
	ChartOptions []chart.Option
}

type Container struct {
	cfg     Config
	fetcher Fetcher
	feed    Feed
	sink    sink.Sink
	log     *zap.Logger
	m       *metrics.Metrics

	mu      sync.Mutex
	chart   *chart.Chart
	subID   string
	initial snapshot.Result
	wg      sync.WaitGroup
	closed  bool
}

func New(cfg Config, fetcher Fetcher, f Feed, s sink.Sink, log *zap.Logger, m *metrics.Metrics) *Container {
	if log == nil {
		log = zap.NewNop()
	}
	return &Container{
		cfg:     cfg,
		fetcher: fetcher,
		feed:    f,
		sink:    s,
		log:     log.With(zap.String("component", "container")),
		m:       m,
	}
}

// Mount subscribes to the feed, fetches the initial snapshot, then creates and
// attaches the chart. A frame delivered while the fetch is in flight wins over
// the fetched snapshot. On error everything already opened is released.
func (c *Container) Mount(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = multierr.Append(err, c.Close())
		}
	}()

	sub, err := c.feed.Subscribe(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.subID = sub.ID
	c.mu.Unlock()

	res := c.fetcher.Fetch(ctx)
	if !res.OK() {
		c.m.SnapshotFailed(string(res.Reason))
	}

	ch := chart.New(context.WithoutCancel(ctx), c.cfg.Title, res.Snapshot, c.sink, c.cfg.ChartOptions...)

	c.mu.Lock()
	c.chart = ch
	c.initial = res
	c.mu.Unlock()

	// Frames sent before Attach only update state, so the first paint shows
	// the pending frame if there is one.
	select {
	case raw, ok := <-sub.C:
		if ok {
			c.log.Debug("feed frame during fetch", zap.Int("bytes", len(raw)))
			ch.Send(chart.FromFeed{Raw: raw})
		}
	default:
	}
	ch.Send(chart.Attach{})

	c.wg.Add(1)
	go c.forward(sub, ch)

	c.log.Info("mounted", zap.String("title", c.cfg.Title), zap.Int("initial_records", len(res.Snapshot)))
	return nil
}

func (c *Container) forward(sub feed.Subscription, ch *chart.Chart) {
	defer c.wg.Done()
	for {
		select {
		case raw, ok := <-sub.C:
			if !ok {
				return
			}
			c.log.Debug("feed frame", zap.Int("bytes", len(raw)))
			if !ch.Send(chart.FromFeed{Raw: raw}) {
				return
			}
		case <-ch.Done():
			return
		}
	}
}

// Initial reports the outcome of the mount-time fetch.
func (c *Container) Initial() snapshot.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initial
}

func (c *Container) Chart() (*chart.Chart, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chart == nil {
		return nil, ErrNotMounted
	}
	return c.chart, nil
}

// Status reports what the mounted chart currently shows.
func (c *Container) Status(ctx context.Context) (chart.View, error) {
	ch, err := c.Chart()
	if err != nil {
		return chart.View{}, err
	}
	return ch.State(ctx)
}

// Close releases exactly what Mount opened: the subscription, the chart and
// the feed connection. Safe to call more than once.
func (c *Container) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ch, subID := c.chart, c.subID
	c.mu.Unlock()

	if subID != "" {
		c.feed.Unsubscribe(subID)
	}
	if ch != nil {
		ch.Send(chart.Shutdown{})
		<-ch.Done()
	}

	err := c.feed.Close()
	c.wg.Wait()

	if err != nil {
		c.log.Warn("teardown", zap.Error(err))
	} else {
		c.log.Info("unmounted")
	}
	return err
}
