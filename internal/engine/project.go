package engine

// ProjectedTile is what a given viewer is allowed to see of a tile.
type ProjectedTile struct {
	Word     string `json:"word"`
	Team     Team   `json:"team"`
	Revealed bool   `json:"revealed"`
}

// Project derives the viewer-specific board. Spymasters see every team
// assignment; everyone else sees TeamHidden until a tile is revealed. This
// is the only path board data takes out of a session, so nothing past it
// can leak an unrevealed team to a non-spymaster.
func Project(board []Tile, viewer Player) []ProjectedTile {
	out := make([]ProjectedTile, len(board))
	for i, t := range board {
		team := t.Team
		if !t.Revealed && viewer.Role != RoleSpymaster {
			team = TeamHidden
		}
		out[i] = ProjectedTile{Word: t.Word, Team: team, Revealed: t.Revealed}
	}
	return out
}
