package engine

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
)

const (
	// Rows by Columns is the fixed board layout.
	Rows    = 5
	Columns = 5
	// Size is the number of tiles on a board.
	Size = Rows * Columns

	startingTeamTiles = 9
	secondTeamTiles   = 8
)

// Generate builds a board from 25 distinct words. Words keep their input
// order on the board; team assignment is a uniform permutation over the 25
// positions: 9 tiles for the starting team, 8 for the other, one assassin,
// the rest neutral. Deterministic given a seeded rng.
func Generate(words []string, starting Team, rng *rand.Rand) ([]Tile, error) {
	if !starting.Playable() {
		return nil, ErrInvalidInput
	}

	distinct := make([]string, 0, Size)
	seen := make(map[string]struct{}, Size)
	for _, w := range words {
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		distinct = append(distinct, w)
		if len(distinct) == Size {
			break
		}
	}
	if len(distinct) < Size {
		return nil, ErrInvalidInput
	}

	tiles := make([]Tile, Size)
	for slot, pos := range rng.Perm(Size) {
		tiles[pos] = Tile{Word: distinct[pos], Team: teamForSlot(slot, starting)}
	}
	return tiles, nil
}

// NewBoard picks 25 words from the default list and generates a board with
// an unpredictable seed.
func NewBoard(starting Team) ([]Tile, error) {
	rng := NewRand()

	words := make([]string, 0, Size)
	for _, idx := range rng.Perm(len(DefaultWords))[:Size] {
		words = append(words, DefaultWords[idx])
	}
	return Generate(words, starting, rng)
}

// RandomStartingTeam flips a coin between red and blue.
func RandomStartingTeam() Team {
	if NewRand().Intn(2) == 0 {
		return TeamRed
	}
	return TeamBlue
}

// NewRand returns a math/rand generator seeded from crypto/rand, for
// production board generation where predictability would let a client
// reconstruct hidden assignments.
func NewRand() *rand.Rand {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		panic(err)
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	return rand.New(rand.NewSource(seed))
}

func teamForSlot(slot int, starting Team) Team {
	switch {
	case slot < startingTeamTiles:
		return starting
	case slot < startingTeamTiles+secondTeamTiles:
		return Opponent(starting)
	case slot == startingTeamTiles+secondTeamTiles:
		return TeamAssassin
	default:
		return TeamNeutral
	}
}
