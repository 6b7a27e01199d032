package types

import "github.com/spygrid/codenames-backend/internal/engine"

// HTTP request bodies.

type JoinRequest struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Team        string `json:"team"`
	Role        string `json:"role"`
}

type RevealRequest struct {
	PlayerID  string `json:"playerId"`
	TileIndex int    `json:"tileIndex"`
}

type EndTurnRequest struct {
	PlayerID string `json:"playerId"`
}

// HTTP response bodies.

type CreateGameResponse struct {
	GameID string `json:"gameId"`
}

type JoinResponse struct {
	PlayerID string        `json:"playerId"`
	Status   engine.Status `json:"status"`
}

// CommandResponse reports the session after a successful command. Reveal
// responses additionally carry the committed reveal fact.
type CommandResponse struct {
	Status     engine.Status       `json:"status"`
	ActiveTeam engine.Team         `json:"activeTeam"`
	Winner     engine.Team         `json:"winner,omitempty"`
	Reveal     *engine.RevealEvent `json:"reveal,omitempty"`
}

// SessionInfo is the non-board part of a pushed state message.
type SessionInfo struct {
	ID         string        `json:"id"`
	Status     engine.Status `json:"status"`
	ActiveTeam engine.Team   `json:"activeTeam"`
	Winner     engine.Team   `json:"winner,omitempty"`
}

// ServerMessage is the single frame type pushed over the websocket and
// the error body returned by the HTTP API.
// Type is "state" or "error".
type ServerMessage struct {
	Type    string                 `json:"type"`
	Version int                    `json:"version,omitempty"`
	Session *SessionInfo           `json:"session,omitempty"`
	Board   []engine.ProjectedTile `json:"board,omitempty"`
	Code    string                 `json:"code,omitempty"`
	Message string                 `json:"message,omitempty"`
}
