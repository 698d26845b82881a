package executor

import (
	"fmt"

	"github.com/battlesnakeio/chainsnake/chain"
	"github.com/battlesnakeio/chainsnake/game"
)

// Op is one write operation against the contracts.
type Op struct {
	Kind      string
	Direction game.Direction
	Tier      game.Tier
}

// StartOp starts the player's game.
func StartOp() Op { return Op{Kind: chain.OpStart} }

// MoveOp moves the player's head one cell.
func MoveOp(d game.Direction) Op { return Op{Kind: chain.OpMove, Direction: d} }

// MintOp mints the tier's reward.
func MintOp(t game.Tier) Op { return Op{Kind: chain.OpMint, Tier: t} }

func (o Op) String() string {
	switch o.Kind {
	case chain.OpMove:
		return fmt.Sprintf("move %s", o.Direction)
	case chain.OpMint:
		return fmt.Sprintf("mint tier %d", o.Tier.Class)
	}
	return o.Kind
}
