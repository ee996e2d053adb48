// Package connectfour implements the Connect Four game: a pure move-list
// engine re-derived per read, and the screen handlers around it.
package connectfour

import (
	"errors"
	"fmt"
	"strings"
)

const (
	columns = 7
	rows    = 6
	// bitsPerColumn includes the guard bit above each column, so vertical
	// shifts cannot wrap a win across column boundaries.
	bitsPerColumn = rows + 1
)

// Engine errors.
var (
	ErrColumnFull    = errors.New("connectfour: column is full")
	ErrBadColumn     = errors.New("connectfour: column out of range")
	ErrGameOver      = errors.New("connectfour: game is over")
	ErrMalformedGame = errors.New("connectfour: malformed move list")
)

// Game is the canonical Connect Four state: the ordered list of columns
// played, 1-based. Everything else is derived.
type Game struct {
	moves []int
}

// Parse rebuilds a game from its serialized move list, e.g. "4455667".
func Parse(s string) (*Game, error) {
	g := &Game{}
	for _, r := range strings.TrimSpace(s) {
		col := int(r - '0')
		if col < 1 || col > columns {
			return nil, fmt.Errorf("move %q: %w", r, ErrMalformedGame)
		}
		if err := g.Play(col); err != nil {
			return nil, fmt.Errorf("replay %q: %w", s, err)
		}
	}
	return g, nil
}

// String serializes the move list.
func (g *Game) String() string {
	var b strings.Builder
	for _, col := range g.moves {
		b.WriteByte(byte('0' + col))
	}
	return b.String()
}

// Moves returns the number of moves played.
func (g *Game) Moves() int { return len(g.moves) }

// CurrentPlayer returns the player to move, 1 or 2. Player 1 moves first.
func (g *Game) CurrentPlayer() int { return len(g.moves)%2 + 1 }

// Play drops the current player's token into col (1-based).
func (g *Game) Play(col int) error {
	if col < 1 || col > columns {
		return ErrBadColumn
	}
	if g.Over() {
		return ErrGameOver
	}
	if g.height(col-1) >= rows {
		return ErrColumnFull
	}
	g.moves = append(g.moves, col)
	return nil
}

// Winner returns the winning player and true once four are connected.
func (g *Game) Winner() (int, bool) {
	for player := 1; player <= 2; player++ {
		if connected(g.bitboard(player)) {
			return player, true
		}
	}
	return 0, false
}

// Draw reports a full board without a winner.
func (g *Game) Draw() bool {
	if _, won := g.Winner(); won {
		return false
	}
	return len(g.moves) == rows*columns
}

// Over reports whether the game has ended.
func (g *Game) Over() bool {
	if _, won := g.Winner(); won {
		return true
	}
	return len(g.moves) == rows*columns
}

// Grid derives the board: Grid()[r][c] is 0, 1 or 2, with row 0 at the
// bottom.
func (g *Game) Grid() [rows][columns]int {
	var grid [rows][columns]int
	var heights [columns]int
	for i, col := range g.moves {
		c := col - 1
		grid[heights[c]][c] = i%2 + 1
		heights[c]++
	}
	return grid
}

// bitboard packs a player's tokens: column c occupies bits c*7..c*7+5,
// bit c*7+6 stays clear as a guard.
func (g *Game) bitboard(player int) uint64 {
	var board uint64
	var heights [columns]int
	for i, col := range g.moves {
		c := col - 1
		if i%2+1 == player {
			board |= 1 << (c*bitsPerColumn + heights[c])
		}
		heights[c]++
	}
	return board
}

// connected checks all four directions with shift pairs: 1 vertical,
// 7 horizontal, 6 and 8 the diagonals.
func connected(board uint64) bool {
	for _, shift := range []int{1, 7, 6, 8} {
		m := board & (board >> shift)
		if m&(m>>(2*shift)) != 0 {
			return true
		}
	}
	return false
}

func (g *Game) height(c int) int {
	n := 0
	for _, col := range g.moves {
		if col-1 == c {
			n++
		}
	}
	return n
}
