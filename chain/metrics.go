package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/prometheus/client_golang/prometheus"
)

// Instrument wraps all gateway methods to instrument the underlying calls.
func Instrument(g Gateway) Gateway { return &metrics{g} }

var (
	gatewayCalls = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chainsnake",
			Subsystem: "gateway",
			Name:      "calls",
			Help:      "Calls made against the game and reward contracts.",
		},
		[]string{"method", "result"},
	)
)

func init() {
	prometheus.MustRegister(gatewayCalls)
}

func instrument(method string) func(error) {
	start := time.Now()
	return func(err error) {
		result := "ok"
		if err != nil {
			result = "error"
		}
		gatewayCalls.WithLabelValues(method, result).Observe(time.Since(start).Seconds())
	}
}

type metrics struct{ g Gateway }

func (m *metrics) Balance(ctx context.Context, id *Identity) (b *big.Int, err error) {
	done := instrument("Balance")
	defer func() { done(err) }()
	return m.g.Balance(ctx, id)
}

func (m *metrics) Score(ctx context.Context, id *Identity) (v uint64, err error) {
	done := instrument("Score")
	defer func() { done(err) }()
	return m.g.Score(ctx, id)
}

func (m *metrics) Moves(ctx context.Context, id *Identity) (v uint64, err error) {
	done := instrument("Moves")
	defer func() { done(err) }()
	return m.g.Moves(ctx, id)
}

func (m *metrics) Head(ctx context.Context, id *Identity) (p game.Position, err error) {
	done := instrument("Head")
	defer func() { done(err) }()
	return m.g.Head(ctx, id)
}

func (m *metrics) Food(ctx context.Context, id *Identity) (f []game.Position, err error) {
	done := instrument("Food")
	defer func() { done(err) }()
	return m.g.Food(ctx, id)
}

func (m *metrics) Minted(ctx context.Context, tier game.Tier, id *Identity) (ok bool, err error) {
	done := instrument("Minted")
	defer func() { done(err) }()
	return m.g.Minted(ctx, tier, id)
}

func (m *metrics) SubmitStart(ctx context.Context, id *Identity) (p Pending, err error) {
	done := instrument("SubmitStart")
	defer func() { done(err) }()
	return m.g.SubmitStart(ctx, id)
}

func (m *metrics) SubmitMove(ctx context.Context, id *Identity, dir game.Direction) (p Pending, err error) {
	done := instrument("SubmitMove")
	defer func() { done(err) }()
	return m.g.SubmitMove(ctx, id, dir)
}

func (m *metrics) SubmitMint(ctx context.Context, tier game.Tier, id *Identity) (p Pending, err error) {
	done := instrument("SubmitMint")
	defer func() { done(err) }()
	return m.g.SubmitMint(ctx, tier, id)
}

func (m *metrics) AwaitFinality(ctx context.Context, p Pending) (r *Receipt, err error) {
	done := instrument("AwaitFinality")
	defer func() { done(err) }()
	return m.g.AwaitFinality(ctx, p)
}
