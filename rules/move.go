// Package rules is the decision engine. Every function here is pure: given a
// snapshot of a player's game it picks the next move and the reward mints
// that are due.
package rules

import "github.com/battlesnakeio/chainsnake/game"

// GreedyMove steps one axis toward the first food. The x axis is closed
// first, then y. It returns game.None when there is no food or the head is
// already on it. Food order is the contract's; no distance comparison.
func GreedyMove(head game.Position, food []game.Position) game.Direction {
	if len(food) == 0 {
		return game.None
	}
	target := food[0]
	if d := xMove(head, target); d != game.None {
		return d
	}
	return yMove(head, target)
}

// BoundedMove is GreedyMove that never leaves the board. When the greedy
// step would exit the board the other axis is tried; if that is unavailable
// too the result is game.None with retry set, so the caller waits a cycle.
func BoundedMove(head game.Position, food []game.Position, board game.Board) (game.Direction, bool) {
	if len(food) == 0 {
		return game.None, false
	}
	target := food[0]
	first, second := xMove(head, target), yMove(head, target)
	if first == game.None {
		first, second = second, game.None
	}
	if first == game.None {
		return game.None, false
	}
	for _, d := range []game.Direction{first, second} {
		if d != game.None && board.Contains(head.Step(d)) {
			return d, false
		}
	}
	return game.None, true
}

func xMove(head, target game.Position) game.Direction {
	switch {
	case target.X > head.X:
		return game.Right
	case target.X < head.X:
		return game.Left
	}
	return game.None
}

func yMove(head, target game.Position) game.Direction {
	switch {
	case target.Y > head.Y:
		return game.Down
	case target.Y < head.Y:
		return game.Up
	}
	return game.None
}
