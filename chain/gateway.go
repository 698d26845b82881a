// Package chain is the gateway between the agent and the remote ledger. It
// exposes typed reads of the game and reward contracts and two-phase writes:
// a Submit* call returns a Pending handle, AwaitFinality blocks until that
// transaction is final or has failed.
package chain

import (
	"context"
	"math/big"

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

var (
	// ErrReverted is returned by AwaitFinality when the transaction was
	// included but its execution failed.
	ErrReverted = errors.New("chain: transaction reverted")
	// ErrTimeout is returned by AwaitFinality when finality was not reached
	// before the deadline.
	ErrTimeout = errors.New("chain: timed out waiting for finality")
)

// Operation names carried by Pending handles and used as metric labels.
const (
	OpStart = "start"
	OpMove  = "move"
	OpMint  = "mint"
)

// Pending is the handle of a submitted, not yet final transaction.
type Pending struct {
	Hash     common.Hash
	Op       string
	Identity common.Address

	tx *types.Transaction
}

// Receipt describes a final transaction.
type Receipt struct {
	Hash    common.Hash
	Block   uint64
	GasUsed uint64
}

// Gateway is the interface to the game and reward contracts. Reads reflect
// remote state that may change between calls; callers must tolerate skew
// across several reads.
type Gateway interface {
	Balance(ctx context.Context, id *Identity) (*big.Int, error)
	Score(ctx context.Context, id *Identity) (uint64, error)
	Moves(ctx context.Context, id *Identity) (uint64, error)
	Head(ctx context.Context, id *Identity) (game.Position, error)
	Food(ctx context.Context, id *Identity) ([]game.Position, error)
	Minted(ctx context.Context, tier game.Tier, id *Identity) (bool, error)

	SubmitStart(ctx context.Context, id *Identity) (Pending, error)
	SubmitMove(ctx context.Context, id *Identity, dir game.Direction) (Pending, error)
	SubmitMint(ctx context.Context, tier game.Tier, id *Identity) (Pending, error)
	AwaitFinality(ctx context.Context, p Pending) (*Receipt, error)
}
