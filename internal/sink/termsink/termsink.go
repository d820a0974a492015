// Package termsink draws the chart as a text table with horizontal bars.
package termsink

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/google/goterm/term"
	"github.com/olekukonko/tablewriter"

	"github.com/DoyleJ11/score-dashboard/internal/engine"
	"github.com/DoyleJ11/score-dashboard/internal/sink"
)

const clearScreen = "\033[H\033[2J"

type Sink struct {
	mu     sync.Mutex
	w      io.Writer
	width  int
	clear  bool
	seq    int
	liveID string
}

type Option func(*Sink)

// WithClear wipes the terminal before each frame.
func WithClear() Option {
	return func(s *Sink) { s.clear = true }
}

// WithWidth sets the length of the longest bar in characters.
func WithWidth(n int) Option {
	return func(s *Sink) { s.width = n }
}

func New(w io.Writer, opts ...Option) *Sink {
	s := &Sink{w: w, width: 40}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) Create(_ context.Context, spec engine.ChartSpec) (sink.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	if s.clear {
		b.WriteString(clearScreen)
	}
	b.WriteString(term.Cyanf("%s", spec.Title))
	b.WriteString("\n")
	b.WriteString(Table(spec, s.width))

	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return nil, fmt.Errorf("write chart: %w", err)
	}

	s.seq++
	id := "term-" + strconv.Itoa(s.seq)
	s.liveID = id
	return &handle{id: id, s: s}, nil
}

func (s *Sink) ShowError(title string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clear {
		_, _ = io.WriteString(s.w, clearScreen)
	}
	_, _ = io.WriteString(s.w, term.Redf("%s: chart unavailable: %v", title, err)+"\n")
}

// Table renders one row per bar in snapshot order.
func Table(spec engine.ChartSpec, width int) string {
	out := &strings.Builder{}
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Team", "Score", ""})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})
	table.SetAutoWrapText(false)

	top := 0.0
	for _, v := range spec.Values {
		if v > top {
			top = v
		}
	}

	for i, label := range spec.Labels {
		table.Append([]string{
			label,
			strconv.FormatFloat(spec.Values[i], 'f', -1, 64),
			bar(spec.Values[i], top, width),
		})
	}
	table.Render()
	return out.String()
}

func bar(v, top float64, width int) string {
	if top <= 0 || v <= 0 {
		return ""
	}
	n := int(v / top * float64(width))
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}

type handle struct {
	id string
	s  *Sink
}

func (h *handle) ID() string { return h.id }

// Destroy only forgets the frame; the next Create draws over it.
func (h *handle) Destroy() error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if h.s.liveID != h.id {
		return sink.ErrDestroyed
	}
	h.s.liveID = ""
	return nil
}
