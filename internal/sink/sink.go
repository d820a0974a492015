// Package sink defines the drawable surface a chart renders into.
package sink

import (
	"context"
	"errors"

	"github.com/DoyleJ11/score-dashboard/internal/engine"
)

var ErrDestroyed = errors.New("chart handle already destroyed")

// Sink creates chart instances on one surface. The caller guarantees at most
// one live Handle per surface by destroying the previous one before Create.
type Sink interface {
	Create(ctx context.Context, spec engine.ChartSpec) (Handle, error)
	// ShowError replaces the surface with a visible inline error.
	ShowError(title string, err error)
}

type Handle interface {
	ID() string
	Destroy() error
}
