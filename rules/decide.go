package rules

import "github.com/battlesnakeio/chainsnake/game"

// Decision is the engine's output for one cycle. Move and Mints are
// independent; both may be acted on in the same cycle.
type Decision struct {
	Move  game.Direction
	Mints []game.Tier
	// Retry is set when the bounded move rule suppressed every step.
	Retry bool
}

// Options selects the move rule.
type Options struct {
	Board   game.Board
	Tiers   game.Tiers
	Bounded bool
}

// Decide picks the next action for a snapshot.
func Decide(s *game.Snapshot, opts Options) Decision {
	d := Decision{Mints: MintsDue(s, opts.Tiers)}
	if opts.Bounded {
		d.Move, d.Retry = BoundedMove(s.Head, s.Food, opts.Board)
	} else {
		d.Move = GreedyMove(s.Head, s.Food)
	}
	return d
}
