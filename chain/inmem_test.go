package chain

import (
	"context"
	"math/big"
	"testing"

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var testTiers = game.MustTiers(
	game.Tier{Class: 1, Threshold: 10},
	game.Tier{Class: 2, Threshold: 20},
)

func finalize(t *testing.T, m *InMem, p Pending, err error) error {
	require.NoError(t, err)
	_, err = m.AwaitFinality(context.Background(), p)
	return err
}

func TestInMemGame(t *testing.T) {
	ctx := context.Background()
	m := NewInMem(InMemOptions{Board: game.Board{Width: 5, Height: 5}, Tiers: testTiers, FoodScore: 10})
	id, err := GenerateIdentity()
	require.NoError(t, err)

	bal, err := m.Balance(ctx, id)
	require.NoError(t, err)
	require.Zero(t, bal.Sign())
	m.Fund(id.Address, big.NewInt(1))
	bal, err = m.Balance(ctx, id)
	require.NoError(t, err)
	require.Equal(t, int64(1), bal.Int64())

	p, err := m.SubmitMove(ctx, id, game.Up)
	require.True(t, errors.Is(finalize(t, m, p, err), ErrReverted), "moves before start revert")

	p, err = m.SubmitStart(ctx, id)
	require.NoError(t, finalize(t, m, p, err))

	head, err := m.Head(ctx, id)
	require.NoError(t, err)
	require.Equal(t, game.Position{X: 2, Y: 2}, head)

	m.SetState(id.Address, &game.Snapshot{Head: game.Position{X: 2, Y: 2}, Food: []game.Position{{X: 3, Y: 2}}})
	p, err = m.SubmitMove(ctx, id, game.Right)
	require.NoError(t, finalize(t, m, p, err))

	s := m.State(id.Address)
	require.Equal(t, uint64(10), s.Score)
	require.Equal(t, uint64(1), s.Moves)
	require.Len(t, s.Food, 1, "eaten food respawns")
	require.False(t, s.Food[0].Equal(s.Head))

	p, err = m.SubmitMint(ctx, testTiers.Terminal(), id)
	require.True(t, errors.Is(finalize(t, m, p, err), ErrReverted), "below threshold")

	tier1, _ := testTiers.ByClass(1)
	p, err = m.SubmitMint(ctx, tier1, id)
	require.NoError(t, finalize(t, m, p, err))
	p, err = m.SubmitMint(ctx, tier1, id)
	require.True(t, errors.Is(finalize(t, m, p, err), ErrReverted), "already minted")

	minted, err := m.Minted(ctx, tier1, id)
	require.NoError(t, err)
	require.True(t, minted)
	require.Equal(t, 2, m.Submitted(OpMint))
}

func TestInMemOutOfBounds(t *testing.T) {
	ctx := context.Background()
	m := NewInMem(InMemOptions{Board: game.Board{Width: 5, Height: 5}, Tiers: testTiers})
	id, _ := GenerateIdentity()
	m.SetState(id.Address, &game.Snapshot{Head: game.Position{X: 0, Y: 0}})

	p, err := m.SubmitMove(ctx, id, game.Left)
	require.True(t, errors.Is(finalize(t, m, p, err), ErrReverted))
	require.Equal(t, game.Position{}, m.State(id.Address).Head)
}

func TestInMemFaults(t *testing.T) {
	ctx := context.Background()
	m := NewInMem(InMemOptions{Board: game.DefaultBoard, Tiers: testTiers})
	id, _ := GenerateIdentity()
	m.SetState(id.Address, &game.Snapshot{Score: 5, Head: game.Position{X: 5, Y: 5}})

	m.FailRead("score", errors.New("rpc down"))
	_, err := m.Score(ctx, id)
	require.Error(t, err)
	score, err := m.Score(ctx, id)
	require.NoError(t, err, "faults are consumed")
	require.Equal(t, uint64(5), score)

	m.FailFinality(OpMove, ErrTimeout)
	p, err := m.SubmitMove(ctx, id, game.Up)
	require.True(t, errors.Is(finalize(t, m, p, err), ErrTimeout))
	require.Equal(t, game.Position{X: 5, Y: 5}, m.State(id.Address).Head, "failed transactions do not execute")

	_, err = m.SubmitMove(ctx, id, game.None)
	require.Error(t, err)
}
