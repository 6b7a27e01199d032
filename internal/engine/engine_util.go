package engine

// NewLobbyState builds the initial state for a fresh session around an
// already-generated board.
func NewLobbyState(board []Tile, starting Team, rules Rules) State {
	return State{
		Board:        board,
		Players:      map[string]Player{},
		StartingTeam: starting,
		ActiveTeam:   starting,
		Status:       StatusLobby,
		Rules:        rules,
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
