// Package sinktest provides an in-memory sink that records every chart drawn.
package sinktest

import (
	"context"
	"fmt"
	"sync"

	"github.com/DoyleJ11/score-dashboard/internal/engine"
	"github.com/DoyleJ11/score-dashboard/internal/sink"
)

type Recorder struct {
	mu        sync.Mutex
	seq       int
	live      map[string]engine.ChartSpec
	created   []engine.ChartSpec
	destroyed []string
	errors    []string
	overlaps  int
	failNext  error
	renders   chan engine.ChartSpec
}

func NewRecorder() *Recorder {
	return &Recorder{
		live:    make(map[string]engine.ChartSpec),
		renders: make(chan engine.ChartSpec, 64),
	}
}

// FailNext makes the next Create return err.
func (r *Recorder) FailNext(err error) {
	r.mu.Lock()
	r.failNext = err
	r.mu.Unlock()
}

func (r *Recorder) Create(_ context.Context, spec engine.ChartSpec) (sink.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.failNext; err != nil {
		r.failNext = nil
		return nil, err
	}
	if len(r.live) > 0 {
		r.overlaps++
	}

	r.seq++
	id := fmt.Sprintf("chart-%d", r.seq)
	r.live[id] = spec
	r.created = append(r.created, spec)

	select {
	case r.renders <- spec:
	default:
	}
	return &handle{id: id, rec: r}, nil
}

func (r *Recorder) ShowError(title string, err error) {
	r.mu.Lock()
	r.errors = append(r.errors, fmt.Sprintf("%s: %v", title, err))
	r.mu.Unlock()
}

// Renders delivers each created spec, for tests that wait on a redraw.
func (r *Recorder) Renders() <-chan engine.ChartSpec { return r.renders }

// Live returns the specs of handles not yet destroyed.
func (r *Recorder) Live() []engine.ChartSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]engine.ChartSpec, 0, len(r.live))
	for _, s := range r.live {
		out = append(out, s)
	}
	return out
}

func (r *Recorder) Created() []engine.ChartSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]engine.ChartSpec(nil), r.created...)
}

func (r *Recorder) Destroyed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.destroyed...)
}

func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

// Overlaps counts Creates that happened while another handle was still live.
func (r *Recorder) Overlaps() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overlaps
}

type handle struct {
	id  string
	rec *Recorder
}

func (h *handle) ID() string { return h.id }

func (h *handle) Destroy() error {
	h.rec.mu.Lock()
	defer h.rec.mu.Unlock()
	if _, ok := h.rec.live[h.id]; !ok {
		return sink.ErrDestroyed
	}
	delete(h.rec.live, h.id)
	h.rec.destroyed = append(h.rec.destroyed, h.id)
	return nil
}
