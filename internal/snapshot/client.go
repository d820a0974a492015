// Package snapshot fetches the initial score snapshot shown before the feed
// delivers its first frame.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/score-dashboard/pkg/types"
)

type Reason string

const (
	ReasonNone      Reason = ""
	ReasonTransport Reason = "transport"
	ReasonStatus    Reason = "status"
	ReasonMalformed Reason = "malformed"
	ReasonTooLarge  Reason = "too_large"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrBodyTooLarge     = errors.New("snapshot body too large")
)

const maxBody = 1 << 20

// Result is the outcome of a fetch. On failure Snapshot is empty and Reason
// says why.
type Result struct {
	Snapshot types.Snapshot
	Reason   Reason
	Err      error
}

func (r Result) OK() bool { return r.Err == nil }

type Client struct {
	url     string
	http    *http.Client
	timeout time.Duration
	log     *zap.Logger
}

func NewClient(url string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		url:     url,
		http:    &http.Client{},
		timeout: timeout,
		log:     log.With(zap.String("component", "snapshot")),
	}
}

// Fetch issues one GET and never returns a nil Snapshot. A zero timeout means
// the caller's context is the only bound.
func (c *Client) Fetch(ctx context.Context) Result {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	res := c.fetch(ctx)
	if !res.OK() {
		c.log.Warn("initial snapshot unavailable, starting empty",
			zap.String("url", c.url), zap.String("reason", string(res.Reason)), zap.Error(res.Err))
		res.Snapshot = types.Snapshot{}
		return res
	}
	c.log.Info("initial snapshot loaded", zap.Int("records", len(res.Snapshot)))
	return res
}

func (c *Client) fetch(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Result{Reason: ReasonTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{Reason: ReasonTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Reason: ReasonStatus, Err: fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return Result{Reason: ReasonTransport, Err: err}
	}
	if len(body) > maxBody {
		return Result{Reason: ReasonTooLarge, Err: fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, maxBody)}
	}

	snap, err := types.DecodeSnapshot(body)
	if err != nil {
		return Result{Reason: ReasonMalformed, Err: err}
	}
	return Result{Snapshot: snap}
}
