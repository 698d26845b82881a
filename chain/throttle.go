package chain

import (
	"context"
	"math/big"

	"github.com/battlesnakeio/chainsnake/game"
	"golang.org/x/time/rate"
)

// Throttle makes every gateway call wait on limiter first, keeping the agent
// under the RPC provider's request rate.
func Throttle(g Gateway, limiter *rate.Limiter) Gateway {
	return &throttled{g: g, limiter: limiter}
}

type throttled struct {
	g       Gateway
	limiter *rate.Limiter
}

func (t *throttled) Balance(ctx context.Context, id *Identity) (*big.Int, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.g.Balance(ctx, id)
}

func (t *throttled) Score(ctx context.Context, id *Identity) (uint64, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return t.g.Score(ctx, id)
}

func (t *throttled) Moves(ctx context.Context, id *Identity) (uint64, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return t.g.Moves(ctx, id)
}

func (t *throttled) Head(ctx context.Context, id *Identity) (game.Position, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return game.Position{}, err
	}
	return t.g.Head(ctx, id)
}

func (t *throttled) Food(ctx context.Context, id *Identity) ([]game.Position, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.g.Food(ctx, id)
}

func (t *throttled) Minted(ctx context.Context, tier game.Tier, id *Identity) (bool, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return false, err
	}
	return t.g.Minted(ctx, tier, id)
}

func (t *throttled) SubmitStart(ctx context.Context, id *Identity) (Pending, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return Pending{}, err
	}
	return t.g.SubmitStart(ctx, id)
}

func (t *throttled) SubmitMove(ctx context.Context, id *Identity, dir game.Direction) (Pending, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return Pending{}, err
	}
	return t.g.SubmitMove(ctx, id, dir)
}

func (t *throttled) SubmitMint(ctx context.Context, tier game.Tier, id *Identity) (Pending, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return Pending{}, err
	}
	return t.g.SubmitMint(ctx, tier, id)
}

// AwaitFinality is not throttled, the backend polls on its own schedule.
func (t *throttled) AwaitFinality(ctx context.Context, p Pending) (*Receipt, error) {
	return t.g.AwaitFinality(ctx, p)
}
