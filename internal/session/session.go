package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spygrid/codenames-backend/internal/engine"
)

type Msg interface{ isSessionMsg() }

// FromClient carries one game command into the session. The result is
// reported synchronously on Reply; a failed command leaves state untouched.
type FromClient struct {
	Cmd   engine.Command
	Reply chan Result
}

func (FromClient) isSessionMsg() {}

type Result struct {
	Events     []engine.Event
	Status     engine.Status
	ActiveTeam engine.Team
	Winner     engine.Team
	Err        error
}

// Subscribe registers a connection's outbox. The session immediately sends
// the subscriber's current projected snapshot, so a reconnect is just a
// fresh Subscribe.
type Subscribe struct {
	ClientID string
	PlayerID string
	Outbox   chan Snapshot
}

func (Subscribe) isSessionMsg() {}

type Unsubscribe struct{ ClientID string }

func (Unsubscribe) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

type idleCheck struct{}

func (idleCheck) isSessionMsg() {}

// Snapshot is one subscriber's view of the session after a state change.
// The board is already projected for that subscriber.
type Snapshot struct {
	Version    int
	SessionID  string
	Status     engine.Status
	ActiveTeam engine.Team
	Winner     engine.Team
	Board      []engine.ProjectedTile
}

// View reflects internal state without data races; test-only.
type View struct {
	Version    int
	NumClients int
	State      engine.State
}

type subscriber struct {
	playerID string
	outbox   chan Snapshot
}

type Options struct {
	// IdleAfter is how long the session may sit with zero subscribers
	// before OnIdle fires. Zero disables eviction.
	IdleAfter time.Duration
	// OnIdle is called from the session goroutine right before the
	// session shuts itself down.
	OnIdle func(id string)
	Logger *zap.Logger
}

// Session owns one game's authoritative state. A single goroutine drains
// the inbox, so commands are serialized per game id; different sessions
// never contend.
type Session struct {
	id      string
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]subscriber
	idle    *time.Timer
	opts    Options
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, id string, initial engine.State, opts Options) *Session {
	ctx, cancel := context.WithCancel(parent)

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Session{
		id:      id,
		inbox:   make(chan Msg, 64),
		state:   initial,
		clients: make(map[string]subscriber),
		opts:    opts,
		log:     opts.Logger.With(zap.String("session", id)),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.armIdleTimer()

	go s.loop()
	return s
}

func (s *Session) ID() string { return s.id }

// Inbox exposes the message channel to the transport layer and tests.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Done is closed once the session has shut down; callers holding a stale
// pointer use it to avoid waiting on a reply that will never come.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

func (s *Session) loop() {
	// An engine invariant violation is a programming defect; kill this
	// session loudly instead of letting it corrupt state, but leave the
	// rest of the process alone.
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("session aborted on invariant violation", zap.Any("panic", r))
			s.shutdown()
		}
	}()

	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Subscribe:
				if s.idle != nil {
					s.idle.Stop()
					s.idle = nil
				}
				s.clients[msg.ClientID] = subscriber{playerID: msg.PlayerID, outbox: msg.Outbox}
				msg.Outbox <- s.snapshotFor(msg.PlayerID)

			case Unsubscribe:
				if sub, ok := s.clients[msg.ClientID]; ok {
					close(sub.outbox)
					delete(s.clients, msg.ClientID)
				}
				if len(s.clients) == 0 {
					s.armIdleTimer()
				}

			case FromClient:
				events, newState, err := engine.Apply(s.state, msg.Cmd)
				if err != nil {
					s.reply(msg.Reply, Result{
						Status:     s.state.Status,
						ActiveTeam: s.state.ActiveTeam,
						Winner:     s.state.Winner,
						Err:        err,
					})
					break
				}
				s.state = newState
				s.version++
				s.broadcast()
				s.reply(msg.Reply, Result{
					Events:     events,
					Status:     newState.Status,
					ActiveTeam: newState.ActiveTeam,
					Winner:     newState.Winner,
				})

			case GetState:
				msg.Reply <- View{
					Version:    s.version,
					NumClients: len(s.clients),
					State:      s.state,
				}

			case idleCheck:
				if len(s.clients) > 0 {
					break
				}
				s.log.Info("session idle, shutting down")
				if s.opts.OnIdle != nil {
					s.opts.OnIdle(s.id)
				}
				s.shutdown()
				return

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) reply(ch chan Result, res Result) {
	if ch == nil {
		return
	}
	ch <- res
}

func (s *Session) shutdown() {
	for id, sub := range s.clients {
		close(sub.outbox)
		delete(s.clients, id)
	}
	if s.idle != nil {
		s.idle.Stop()
	}
	s.cancel()
}

// broadcast fans the new state out, projected per recipient. Snapshots for
// one subscriber arrive in commit order; a subscriber whose buffer is full
// is disconnected rather than allowed to stall the others.
func (s *Session) broadcast() {
	for id, sub := range s.clients {
		snap := s.snapshotFor(sub.playerID)
		select {
		case sub.outbox <- snap:
		default:
			s.log.Warn("dropping slow subscriber", zap.String("client", id))
			close(sub.outbox)
			delete(s.clients, id)
		}
	}
	if len(s.clients) == 0 {
		s.armIdleTimer()
	}
}

func (s *Session) snapshotFor(playerID string) Snapshot {
	// Unknown viewers (spectators, players who haven't joined yet) get
	// the operative projection: everything unrevealed stays hidden.
	viewer := s.state.Players[playerID]
	return Snapshot{
		Version:    s.version,
		SessionID:  s.id,
		Status:     s.state.Status,
		ActiveTeam: s.state.ActiveTeam,
		Winner:     s.state.Winner,
		Board:      engine.Project(s.state.Board, viewer),
	}
}

func (s *Session) armIdleTimer() {
	if s.opts.IdleAfter <= 0 {
		return
	}
	if s.idle != nil {
		s.idle.Stop()
	}
	s.idle = time.AfterFunc(s.opts.IdleAfter, func() {
		select {
		case s.inbox <- idleCheck{}:
		case <-s.ctx.Done():
		}
	})
}
