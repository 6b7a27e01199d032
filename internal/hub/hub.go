package hub

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spygrid/codenames-backend/internal/engine"
	"github.com/spygrid/codenames-backend/internal/session"
)

type HubMsg interface{ isHubMsg() }

type CreateSession struct {
	ID    string
	State engine.State
	Reply chan *session.Session
}

type GetSession struct {
	ID    string
	Reply chan *session.Session
}

// EnsureSession creates the session if the id is unseen; concurrent
// Ensure calls for one id converge on a single instance because the hub
// goroutine processes them one at a time.
type EnsureSession struct {
	ID    string
	State engine.State // only used if creation happens
	Reply chan *session.Session
}

type RemoveSession struct {
	ID string
}

type ShutdownHub struct{}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (EnsureSession) isHubMsg() {}
func (RemoveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

type Options struct {
	// IdleAfter is forwarded to each session; an evicted session removes
	// itself from the hub.
	IdleAfter time.Duration
	Logger    *zap.Logger
}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	opts     Options
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		opts:     opts,
		log:      opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				if s := h.sessions[msg.ID]; s != nil {
					msg.Reply <- s
					break
				}
				msg.Reply <- h.create(msg.ID, msg.State)

			case GetSession:
				msg.Reply <- h.sessions[msg.ID] // may be nil

			case EnsureSession:
				if s := h.sessions[msg.ID]; s != nil {
					msg.Reply <- s
					break
				}
				msg.Reply <- h.create(msg.ID, msg.State)

			case RemoveSession:
				if s := h.sessions[msg.ID]; s != nil {
					delete(h.sessions, msg.ID)
					s.Inbox() <- session.Shutdown{}
					h.log.Info("session removed", zap.String("session", msg.ID))
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(id string, state engine.State) *session.Session {
	s := session.New(h.ctx, id, state, session.Options{
		IdleAfter: h.opts.IdleAfter,
		OnIdle: func(id string) {
			// Runs on the session goroutine; the hub inbox decouples it.
			select {
			case h.inbox <- RemoveSession{ID: id}:
			case <-h.ctx.Done():
			}
		},
		Logger: h.log,
	})
	h.sessions[id] = s
	h.log.Info("session created", zap.String("session", id))
	return s
}

func (h *Hub) shutdown() {
	for _, s := range h.sessions {
		s.Inbox() <- session.Shutdown{}
	}
	clear(h.sessions)
	h.cancel()
}
