// Package websink draws the chart in connected browsers. The page is served
// from embedded assets; charts are pushed over a websocket as JSON messages.
package websink

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/score-dashboard/internal/engine"
	"github.com/DoyleJ11/score-dashboard/internal/sink"
	"github.com/DoyleJ11/score-dashboard/pkg/types"
)

// Static assets embedded in the binary
var (
	//go:embed assets
	staticFiles embed.FS
)

type Sink struct {
	mu      sync.Mutex
	clients map[string]chan []byte
	current []byte // replayed to clients that join later
	liveID  string

	title     string
	debug     bool
	indexHTML *template.Template
	script    []byte
	log       *zap.Logger
}

type Option func(*Sink)

func WithLogger(log *zap.Logger) Option {
	return func(s *Sink) { s.log = log }
}

// WithDebug disables minification of the page script.
func WithDebug() Option {
	return func(s *Sink) { s.debug = true }
}

func New(title string, opts ...Option) (*Sink, error) {
	s := &Sink{
		clients: make(map[string]chan []byte),
		title:   title,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("component", "websink"))

	var err error
	s.indexHTML, err = template.ParseFS(staticFiles, "assets/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}

	appJS, err := staticFiles.ReadFile("assets/app.js")
	if err != nil {
		return nil, fmt.Errorf("failed to read app.js: %w", err)
	}

	result := api.Transform(string(appJS), api.TransformOptions{
		Loader:            api.LoaderJS,
		Target:            api.ES2015,
		MinifySyntax:      !s.debug,
		MinifyIdentifiers: !s.debug,
		MinifyWhitespace:  !s.debug,
	})
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("page script failed with: %v", result.Errors)
	}
	s.script = result.Code

	return s, nil
}

func (s *Sink) Create(_ context.Context, spec engine.ChartSpec) (sink.Handle, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(types.ServerMessage{Type: types.MsgRender, ChartID: id, Chart: spec.Config()})
	if err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveID = id
	s.current = payload
	s.broadcast(payload)
	return &handle{id: id, s: s}, nil
}

func (s *Sink) ShowError(title string, err error) {
	payload, _ := json.Marshal(types.ServerMessage{Type: types.MsgError, Title: title, Error: err.Error()})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = payload
	s.broadcast(payload)
}

// Join implements ws.Publisher.
func (s *Sink) Join(clientID string, out chan []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[clientID] = out
	if s.current != nil {
		out <- s.current
	}
}

func (s *Sink) Leave(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, clientID)
}

func (s *Sink) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// s.mu must be held.
func (s *Sink) broadcast(payload []byte) {
	for id, ch := range s.clients {
		select {
		case ch <- payload:
		default:
			// Browser is slow/full - drop it; it reconnects and gets current.
			close(ch)
			delete(s.clients, id)
			s.log.Debug("dropped slow browser", zap.String("client", id))
		}
	}
}

func (s *Sink) HandleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.indexHTML.Execute(w, map[string]any{"Title": s.title}); err != nil {
		s.log.Error("template execution failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Sink) HandleScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	_, _ = w.Write(s.script)
}

type handle struct {
	id string
	s  *Sink
}

func (h *handle) ID() string { return h.id }

func (h *handle) Destroy() error {
	payload, _ := json.Marshal(types.ServerMessage{Type: types.MsgDestroy, ChartID: h.id})

	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if h.s.liveID != h.id {
		return sink.ErrDestroyed
	}
	h.s.liveID = ""
	h.s.current = nil
	h.s.broadcast(payload)
	return nil
}
