package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spygrid/codenames-backend/internal/hub"
	"github.com/spygrid/codenames-backend/internal/session"
	"github.com/spygrid/codenames-backend/internal/types"
)

// Handler upgrades GET /api/game/{gameID}/ws?playerId=... into a push-only
// subscription. The session sends the caller's projected snapshot on open
// and after every committed command; game commands stay on the HTTP API,
// so inbound frames are drained and ignored.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		playerID := r.URL.Query().Get("playerId")
		if gameID == "" || playerID == "" {
			http.Error(w, "missing gameID or playerId", http.StatusBadRequest)
			return
		}

		reply := make(chan *session.Session, 1)
		h.Inbox() <- hub.GetSession{ID: gameID, Reply: reply}
		sess := <-reply
		if sess == nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan session.Snapshot, 8)
		clientID := uuid.NewString()

		sess.Inbox() <- session.Subscribe{ClientID: clientID, PlayerID: playerID, Outbox: out}
		defer func() { sess.Inbox() <- session.Unsubscribe{ClientID: clientID} }()

		// Writer goroutine: drains the outbox until the session closes it
		// (shutdown or slow-subscriber disconnect).
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			// A closed outbox means the session shut down or dropped us
			// for falling behind; close the socket so the client
			// reconnects and resubscribes for a fresh full snapshot.
			defer conn.Close(websocket.StatusTryAgainLater, "resubscribe")
			for snap := range out {
				msg := types.ServerMessage{
					Type:    "state",
					Version: snap.Version,
					Session: &types.SessionInfo{
						ID:         snap.SessionID,
						Status:     snap.Status,
						ActiveTeam: snap.ActiveTeam,
						Winner:     snap.Winner,
					},
					Board: snap.Board,
				}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
					cancel()
					log.Debug("ws write failed",
						zap.String("session", gameID),
						zap.String("player", playerID),
						zap.Error(err))
					return
				}
				cancel()
			}
		}()

		// Reader loop exists only to notice the close; a dropped
		// connection unsubscribes without touching game state.
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}
		}
	}
}
