package board

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/score-dashboard/internal/metrics"
	"github.com/DoyleJ11/score-dashboard/internal/types"
)

var ErrClosed = errors.New("board closed")

type Msg interface{ isBoardMsg() }

type Result struct {
	ID  int
	Err error
}

type AddTeam struct {
	Name  string
	Reply chan Result
}

type AddTest struct {
	Name  string
	Reply chan Result
}

type AddScore struct {
	Req   types.ScoreRequest
	Reply chan Result
}

type DeleteScore struct {
	ID    int
	Reply chan Result
}

type RenameTeam struct {
	ID    int
	Name  string
	Reply chan Result
}

// DeleteTeam also removes the team's scores.
type DeleteTeam struct {
	ID    int
	Reply chan Result
}

// DeleteTest also removes the scores recorded against it.
type DeleteTest struct {
	ID    int
	Reply chan Result
}

type GetView struct {
	Reply chan View
}

type Join struct {
	ClientID string
	Outbox   chan []byte // receives the grouped snapshot as JSON
}

type Leave struct{ ClientID string }

type Shutdown struct{}

func (AddTeam) isBoardMsg()     {}
func (AddTest) isBoardMsg()     {}
func (AddScore) isBoardMsg()    {}
func (DeleteScore) isBoardMsg() {}
func (RenameTeam) isBoardMsg()  {}
func (DeleteTeam) isBoardMsg()  {}
func (DeleteTest) isBoardMsg()  {}
func (GetView) isBoardMsg()     {}
func (Join) isBoardMsg()        {}
func (Leave) isBoardMsg()       {}
func (Shutdown) isBoardMsg()    {}

type View struct {
	Version    int
	NumClients int
	Teams      []types.Team
	Tests      []types.Test
	Scores     []types.TeamScore
	Grouped    []types.GroupedScore
	Err        error
}

// Mirror receives every grouped snapshot the board broadcasts, e.g. to
// republish it on NATS.
type Mirror interface {
	Publish(payload []byte) error
}

// Board is the dev feed server's single source of truth. Every change
// rebroadcasts the grouped totals to all feed clients.
type Board struct {
	inbox   chan Msg
	done    chan struct{}
	store   *store
	version int
	clients map[string]chan []byte
	mirror  Mirror
	log     *zap.Logger
	m       *metrics.Metrics
	ctx     context.Context
	cancel  context.CancelFunc
}

type Option func(*Board)

func WithLogger(log *zap.Logger) Option {
	return func(b *Board) { b.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Board) { b.m = m }
}

func WithMirror(mirror Mirror) Option {
	return func(b *Board) { b.mirror = mirror }
}

func New(parent context.Context, opts ...Option) (*Board, error) {
	st, err := openStore()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	b := &Board{
		inbox:   make(chan Msg, 64),
		done:    make(chan struct{}),
		store:   st,
		clients: make(map[string]chan []byte),
		log:     zap.NewNop(),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With(zap.String("component", "board"))

	go b.loop()
	return b, nil
}

func (b *Board) Inbox() chan<- Msg { return b.inbox }

func (b *Board) Done() <-chan struct{} { return b.done }

func (b *Board) send(m Msg) bool {
	select {
	case b.inbox <- m:
		return true
	case <-b.done:
		return false
	}
}

// Join implements ws.Publisher.
func (b *Board) Join(clientID string, out chan []byte) {
	if !b.send(Join{ClientID: clientID, Outbox: out}) {
		close(out)
	}
}

func (b *Board) Leave(clientID string) { b.send(Leave{ClientID: clientID}) }

// Do sends a request carrying a Reply channel and waits for the result.
func (b *Board) Do(ctx context.Context, msg Msg, reply chan Result) Result {
	if !b.send(msg) {
		return Result{Err: ErrClosed}
	}
	select {
	case r := <-reply:
		return r
	case <-b.done:
		return Result{Err: ErrClosed}
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

func (b *Board) View(ctx context.Context) View {
	reply := make(chan View, 1)
	if !b.send(GetView{Reply: reply}) {
		return View{Err: ErrClosed}
	}
	select {
	case v := <-reply:
		return v
	case <-b.done:
		return View{Err: ErrClosed}
	case <-ctx.Done():
		return View{Err: ctx.Err()}
	}
}

func (b *Board) loop() {
	defer close(b.done)

	for {
		select {
		case <-b.ctx.Done():
			b.shutdown()
			return

		case m := <-b.inbox:
			switch msg := m.(type) {
			case AddTeam:
				id, err := b.store.addTeam(msg.Name)
				msg.Reply <- Result{ID: id, Err: err}

			case AddTest:
				id, err := b.store.addTest(msg.Name)
				msg.Reply <- Result{ID: id, Err: err}

			case AddScore:
				id, err := b.store.addScore(msg.Req)
				msg.Reply <- Result{ID: id, Err: err}
				if err == nil {
					b.changed()
				}

			case DeleteScore:
				err := b.store.deleteScore(msg.ID)
				msg.Reply <- Result{ID: msg.ID, Err: err}
				if err == nil {
					b.changed()
				}

			case RenameTeam:
				err := b.store.renameTeam(msg.ID, msg.Name)
				msg.Reply <- Result{ID: msg.ID, Err: err}
				if err == nil {
					b.changed()
				}

			case DeleteTeam:
				err := b.store.deleteTeam(msg.ID)
				msg.Reply <- Result{ID: msg.ID, Err: err}
				if err == nil {
					b.changed()
				}

			case DeleteTest:
				err := b.store.deleteTest(msg.ID)
				msg.Reply <- Result{ID: msg.ID, Err: err}
				if err == nil {
					b.changed()
				}

			case Join:
				b.clients[msg.ClientID] = msg.Outbox
				b.m.SetClients(len(b.clients))
				if payload, err := b.payload(); err == nil {
					msg.Outbox <- payload
				}

			case Leave:
				delete(b.clients, msg.ClientID)
				b.m.SetClients(len(b.clients))

			case GetView:
				msg.Reply <- b.view()

			case Shutdown:
				b.shutdown()
				return
			}
		}
	}
}

func (b *Board) payload() ([]byte, error) {
	grouped, err := b.store.grouped()
	if err != nil {
		return nil, err
	}
	return json.Marshal(grouped)
}

func (b *Board) changed() {
	b.version++
	payload, err := b.payload()
	if err != nil {
		b.log.Error("group scores", zap.Error(err))
		return
	}
	b.broadcast(payload)
	b.m.Broadcast()

	if b.mirror != nil {
		if err := b.mirror.Publish(payload); err != nil {
			b.log.Warn("mirror publish", zap.Error(err))
		}
	}
}

func (b *Board) broadcast(payload []byte) {
	for id, ch := range b.clients {
		select {
		case ch <- payload:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(b.clients, id)
		}
	}
	b.m.SetClients(len(b.clients))
}

func (b *Board) view() View {
	v := View{Version: b.version, NumClients: len(b.clients)}
	var err error
	if v.Teams, err = b.store.teams(); err != nil {
		v.Err = err
	}
	if v.Tests, err = b.store.tests(); err != nil {
		v.Err = err
	}
	if v.Scores, err = b.store.scores(); err != nil {
		v.Err = err
	}
	if v.Grouped, err = b.store.grouped(); err != nil {
		v.Err = err
	}
	return v
}

func (b *Board) shutdown() {
	for id, ch := range b.clients {
		close(ch) // Tell client no more snapshots
		delete(b.clients, id)
	}
	if err := b.store.close(); err != nil {
		b.log.Warn("close score store", zap.Error(err))
	}
	b.cancel()
}
