// Package game holds the client-side model of the on-chain snake game: board
// coordinates, directions, reward tiers and the per-player snapshot the agent
// keeps in sync with the game contract.
package game

import "fmt"

// Position is a cell on the board.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Equal checks if 2 positions are the same x,y coordinate
func (p Position) Equal(other Position) bool {
	return p.X == other.X && p.Y == other.Y
}

// Step returns the position one cell away in the given direction. Up decreases
// y, matching the contract's row-major board.
func (p Position) Step(d Direction) Position {
	switch d {
	case Up:
		return Position{X: p.X, Y: p.Y - 1}
	case Down:
		return Position{X: p.X, Y: p.Y + 1}
	case Left:
		return Position{X: p.X - 1, Y: p.Y}
	case Right:
		return Position{X: p.X + 1, Y: p.Y}
	}
	return p
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Board is the fixed extent of the game grid, [0, Width) x [0, Height).
type Board struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultBoard is the extent used by the deployed game contract.
var DefaultBoard = Board{Width: 20, Height: 20}

// Contains reports whether p lies on the board.
func (b Board) Contains(p Position) bool {
	return p.X >= 0 && p.X < b.Width && p.Y >= 0 && p.Y < b.Height
}
