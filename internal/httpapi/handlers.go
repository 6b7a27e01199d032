package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spygrid/codenames-backend/internal/engine"
	"github.com/spygrid/codenames-backend/internal/hub"
	"github.com/spygrid/codenames-backend/internal/session"
	"github.com/spygrid/codenames-backend/internal/types"
)

type API struct {
	hub        *hub.Hub
	maxPlayers int
	log        *zap.Logger
}

func New(h *hub.Hub, maxPlayers int, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{hub: h, maxPlayers: maxPlayers, log: log}
}

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// CreateGame generates the board server-side and registers a fresh lobby
// session under a new game id. Clients only ever see projections of it.
func (a *API) CreateGame(w http.ResponseWriter, r *http.Request) {
	var code string
	for {
		c, err := GenerateCode()
		if err != nil {
			http.Error(w, "failed to generate game id", http.StatusInternalServerError)
			return
		}
		reply := make(chan *session.Session, 1)
		a.hub.Inbox() <- hub.GetSession{ID: c, Reply: reply}
		if <-reply == nil {
			code = c
			break
		}
		a.log.Info("collision on game id, regenerating", zap.String("id", c))
	}

	starting := engine.RandomStartingTeam()
	board, err := engine.NewBoard(starting)
	if err != nil {
		http.Error(w, "failed to generate board", http.StatusInternalServerError)
		return
	}
	state := engine.NewLobbyState(board, starting, engine.Rules{MaxPlayers: a.maxPlayers})

	reply := make(chan *session.Session, 1)
	a.hub.Inbox() <- hub.EnsureSession{ID: code, State: state, Reply: reply}
	if <-reply == nil {
		http.Error(w, "failed to create game", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, types.CreateGameResponse{GameID: code})
}

func (a *API) Join(w http.ResponseWriter, r *http.Request) {
	var req types.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, engine.ErrInvalidInput)
		return
	}
	if req.PlayerID == "" {
		req.PlayerID = uuid.NewString()
	}

	res, err := a.dispatch(r, engine.Command{
		Type:        engine.CmdJoin,
		PlayerID:    req.PlayerID,
		DisplayName: req.DisplayName,
		Team:        engine.Team(req.Team),
		Role:        engine.Role(req.Role),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.JoinResponse{PlayerID: req.PlayerID, Status: res.Status})
}

func (a *API) StartGame(w http.ResponseWriter, r *http.Request) {
	res, err := a.dispatch(r, engine.Command{Type: engine.CmdStartGame})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.CommandResponse{
		Status:     res.Status,
		ActiveTeam: res.ActiveTeam,
		Winner:     res.Winner,
	})
}

func (a *API) Reveal(w http.ResponseWriter, r *http.Request) {
	var req types.RevealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, engine.ErrInvalidInput)
		return
	}

	res, err := a.dispatch(r, engine.Command{
		Type:      engine.CmdReveal,
		PlayerID:  req.PlayerID,
		TileIndex: req.TileIndex,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := types.CommandResponse{
		Status:     res.Status,
		ActiveTeam: res.ActiveTeam,
		Winner:     res.Winner,
	}
	for _, ev := range res.Events {
		if ev.Type == engine.EvtTileRevealed {
			resp.Reveal = &engine.RevealEvent{
				TileIndex:     ev.TileIndex,
				RevealedBy:    ev.PlayerID,
				ResultingTeam: ev.TileTeam,
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) EndTurn(w http.ResponseWriter, r *http.Request) {
	var req types.EndTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, engine.ErrInvalidInput)
		return
	}

	res, err := a.dispatch(r, engine.Command{
		Type:     engine.CmdEndTurn,
		PlayerID: req.PlayerID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.CommandResponse{
		Status:     res.Status,
		ActiveTeam: res.ActiveTeam,
		Winner:     res.Winner,
	})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// dispatch resolves the addressed session and applies one command on its
// serialized inbox, waiting for the synchronous result.
func (a *API) dispatch(r *http.Request, cmd engine.Command) (session.Result, error) {
	gameID := chi.URLParam(r, "gameID")

	reply := make(chan *session.Session, 1)
	a.hub.Inbox() <- hub.GetSession{ID: gameID, Reply: reply}
	sess := <-reply
	if sess == nil {
		return session.Result{}, errGameNotFound
	}

	// The session can idle out between lookup and dispatch; treat that
	// window the same as an unknown game.
	res := make(chan session.Result, 1)
	select {
	case sess.Inbox() <- session.FromClient{Cmd: cmd, Reply: res}:
	case <-sess.Done():
		return session.Result{}, errGameNotFound
	}

	var result session.Result
	select {
	case result = <-res:
	case <-sess.Done():
		// a reply that raced the shutdown still counts
		select {
		case result = <-res:
		default:
			return session.Result{}, errGameNotFound
		}
	}
	if result.Err != nil {
		return session.Result{}, result.Err
	}
	return result, nil
}
