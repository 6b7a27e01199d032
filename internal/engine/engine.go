package engine

import (
	"errors"
	"maps"
	"slices"
)

var ErrInvalidInput = errors.New("invalid input")
var ErrInvalidIndex = errors.New("tile index out of range")
var ErrUnknownPlayer = errors.New("unknown player")
var ErrRoleTaken = errors.New("role already taken")
var ErrSessionFull = errors.New("session is full")
var ErrNotReady = errors.New("both teams need a spymaster and an operative")
var ErrNotActive = errors.New("game is not active")
var ErrNotYourTurn = errors.New("not your turn")
var ErrTileAlreadyRevealed = errors.New("tile already revealed")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Team string

const (
	TeamRed      Team = "red"
	TeamBlue     Team = "blue"
	TeamNeutral  Team = "neutral"
	TeamAssassin Team = "assassin"
	// TeamHidden is only ever emitted by Project, never stored on a board.
	TeamHidden Team = "hidden"
	TeamNone   Team = ""
)

func (t Team) Playable() bool { return t == TeamRed || t == TeamBlue }

func Opponent(t Team) Team {
	switch t {
	case TeamRed:
		return TeamBlue
	case TeamBlue:
		return TeamRed
	default:
		return TeamNone
	}
}

type Role string

const (
	RoleSpymaster Role = "spymaster"
	RoleOperative Role = "operative"
)

type Status string

const (
	StatusLobby    Status = "lobby"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

type Tile struct {
	Word     string `json:"word"`
	Team     Team   `json:"team"`
	Revealed bool   `json:"revealed"`
}

type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Team        Team   `json:"team"`
	Role        Role   `json:"role"`
}

// RevealEvent is an immutable fact appended to the session history.
type RevealEvent struct {
	TileIndex     int    `json:"tileIndex"`
	RevealedBy    string `json:"revealedBy"`
	ResultingTeam Team   `json:"resultingTeam"`
}

type Rules struct {
	MaxPlayers int
}

type State struct {
	Board        []Tile
	Players      map[string]Player
	StartingTeam Team
	ActiveTeam   Team
	TurnCount    int
	Status       Status
	Winner       Team
	History      []RevealEvent
	Rules        Rules
}

type CommandType string

const (
	CmdJoin      CommandType = "Join"
	CmdStartGame CommandType = "StartGame"
	CmdReveal    CommandType = "Reveal"
	CmdEndTurn   CommandType = "EndTurn"
)

type Command struct {
	Type        CommandType
	PlayerID    string
	DisplayName string
	Team        Team
	Role        Role
	TileIndex   int
}

type EventType string

const (
	EvtPlayerJoined EventType = "PlayerJoined"
	EvtGameStarted  EventType = "GameStarted"
	EvtTileRevealed EventType = "TileRevealed"
	EvtTurnPassed   EventType = "TurnPassed"
	EvtGameFinished EventType = "GameFinished"
)

type Event struct {
	Type      EventType
	PlayerID  string
	Team      Team
	TileIndex int
	TileTeam  Team
	Winner    Team
}

// Apply runs one command against the state and returns the events it
// produced plus the resulting state. On error the returned state is the
// input state, untouched. Apply never mutates its argument; the session
// actor that owns the state serializes calls to it.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdJoin:
		return applyJoin(s, cmd)
	case CmdStartGame:
		return applyStartGame(s, cmd)
	case CmdReveal:
		return applyReveal(s, cmd)
	case CmdEndTurn:
		return applyEndTurn(s, cmd)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func applyJoin(s State, cmd Command) ([]Event, State, error) {
	if s.Status == StatusFinished {
		return nil, s, ErrNotActive
	}
	if cmd.PlayerID == "" || !cmd.Team.Playable() {
		return nil, s, ErrInvalidInput
	}
	if cmd.Role != RoleSpymaster && cmd.Role != RoleOperative {
		return nil, s, ErrInvalidInput
	}
	if _, ok := s.Players[cmd.PlayerID]; ok {
		return nil, s, ErrInvalidInput
	}
	if cmd.Role == RoleSpymaster && teamHasSpymaster(s, cmd.Team) {
		return nil, s, ErrRoleTaken
	}
	if s.Rules.MaxPlayers > 0 && len(s.Players) >= s.Rules.MaxPlayers {
		return nil, s, ErrSessionFull
	}

	newState := s
	newState.Players = maps.Clone(s.Players)
	if newState.Players == nil {
		newState.Players = map[string]Player{}
	}
	newState.Players[cmd.PlayerID] = Player{
		ID:          cmd.PlayerID,
		DisplayName: cmd.DisplayName,
		Team:        cmd.Team,
		Role:        cmd.Role,
	}

	events := []Event{
		{Type: EvtPlayerJoined, PlayerID: cmd.PlayerID, Team: cmd.Team},
	}
	return events, newState, nil
}

func applyStartGame(s State, cmd Command) ([]Event, State, error) {
	if s.Status != StatusLobby {
		return nil, s, ErrNotActive
	}
	for _, team := range []Team{TeamRed, TeamBlue} {
		if !teamHasSpymaster(s, team) || countOperatives(s, team) == 0 {
			return nil, s, ErrNotReady
		}
	}

	newState := s
	newState.Status = StatusActive
	newState.ActiveTeam = s.StartingTeam

	events := []Event{
		{Type: EvtGameStarted, Team: newState.ActiveTeam},
	}
	return events, newState, nil
}

func applyReveal(s State, cmd Command) ([]Event, State, error) {
	if s.Status != StatusActive {
		return nil, s, ErrNotActive
	}
	player, ok := s.Players[cmd.PlayerID]
	if !ok {
		return nil, s, ErrUnknownPlayer
	}
	if player.Team != s.ActiveTeam {
		return nil, s, ErrNotYourTurn
	}
	if cmd.TileIndex < 0 || cmd.TileIndex >= len(s.Board) {
		return nil, s, ErrInvalidIndex
	}
	if s.Board[cmd.TileIndex].Revealed {
		return nil, s, ErrTileAlreadyRevealed
	}

	newState := s
	newState.Board = slices.Clone(s.Board)
	newState.Board[cmd.TileIndex].Revealed = true

	tile := newState.Board[cmd.TileIndex]
	newState.History = append(slices.Clip(s.History), RevealEvent{
		TileIndex:     cmd.TileIndex,
		RevealedBy:    cmd.PlayerID,
		ResultingTeam: tile.Team,
	})

	events := []Event{
		{Type: EvtTileRevealed, PlayerID: cmd.PlayerID, TileIndex: cmd.TileIndex, TileTeam: tile.Team},
	}

	// Revealing the assassin loses the game on the spot.
	if tile.Team == TeamAssassin {
		newState.Status = StatusFinished
		newState.Winner = Opponent(s.ActiveTeam)
		events = append(events, Event{Type: EvtGameFinished, Winner: newState.Winner})
		return events, newState, nil
	}

	// Uncovering the last tile of either color ends the game in that
	// color's favor, even when the guessing team just handed it over.
	if tile.Team.Playable() && allRevealed(newState.Board, tile.Team) {
		newState.Status = StatusFinished
		newState.Winner = tile.Team
		events = append(events, Event{Type: EvtGameFinished, Winner: newState.Winner})
		return events, newState, nil
	}

	// Wrong guess passes the turn; a correct one keeps it.
	if tile.Team != s.ActiveTeam {
		newState.ActiveTeam = Opponent(s.ActiveTeam)
		newState.TurnCount++
		events = append(events, Event{Type: EvtTurnPassed, Team: newState.ActiveTeam})
	}
	return events, newState, nil
}

func applyEndTurn(s State, cmd Command) ([]Event, State, error) {
	if s.Status != StatusActive {
		return nil, s, ErrNotActive
	}
	player, ok := s.Players[cmd.PlayerID]
	if !ok {
		return nil, s, ErrUnknownPlayer
	}
	if player.Team != s.ActiveTeam {
		return nil, s, ErrNotYourTurn
	}

	newState := s
	newState.ActiveTeam = Opponent(s.ActiveTeam)
	newState.TurnCount++

	events := []Event{
		{Type: EvtTurnPassed, PlayerID: cmd.PlayerID, Team: newState.ActiveTeam},
	}
	return events, newState, nil
}

func teamHasSpymaster(s State, team Team) bool {
	for _, p := range s.Players {
		if p.Team == team && p.Role == RoleSpymaster {
			return true
		}
	}
	return false
}

func countOperatives(s State, team Team) int {
	n := 0
	for _, p := range s.Players {
		if p.Team == team && p.Role == RoleOperative {
			n++
		}
	}
	return n
}

func allRevealed(board []Tile, team Team) bool {
	for _, t := range board {
		if t.Team == team && !t.Revealed {
			return false
		}
	}
	return true
}
