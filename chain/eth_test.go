package chain

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers contract calls from canned outputs keyed by method
// selector. Methods it does not override panic through the nil Backend.
type fakeBackend struct {
	Backend

	outputs    map[string][]byte
	receipt    *types.Receipt
	receiptErr error
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	out, ok := f.outputs[string(msg.Data[:4])]
	if !ok {
		return nil, errors.New("unexpected call")
	}
	return out, nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	return f.receipt, nil
}

func (f *fakeBackend) BalanceAt(ctx context.Context, account common.Address, block *big.Int) (*big.Int, error) {
	return big.NewInt(42), nil
}

func packed(t *testing.T, method string, values ...interface{}) (string, []byte) {
	m := gameABI.Methods[method]
	data, err := m.Outputs.Pack(values...)
	require.NoError(t, err)
	return string(m.ID), data
}

func testGateway(t *testing.T, b *fakeBackend) (*EthGateway, *Identity) {
	id, err := GenerateIdentity()
	require.NoError(t, err)
	g := NewEthGateway(b, big.NewInt(1337), EthOptions{
		GameContract:    common.HexToAddress("0x1"),
		Tiers:           game.MustTiers(game.Tier{Class: 1, Threshold: 100, Contract: common.HexToAddress("0x2")}),
		GasLimit:        300000,
		FinalityTimeout: 50 * time.Millisecond,
	})
	return g, id
}

func TestEthGatewayReads(t *testing.T) {
	b := &fakeBackend{outputs: map[string][]byte{}}
	k, v := packed(t, "getScore", big.NewInt(250))
	b.outputs[k] = v
	k, v = packed(t, "getMoveCount", big.NewInt(17))
	b.outputs[k] = v
	k, v = packed(t, "getHead", uint8(3), uint8(4))
	b.outputs[k] = v
	k, v = packed(t, "getFood", []foodPoint{{X: 8, Y: 5}, {X: 1, Y: 2}})
	b.outputs[k] = v
	hasMinted := rewardABI.Methods["hasMinted"]
	v, err := hasMinted.Outputs.Pack(true)
	require.NoError(t, err)
	b.outputs[string(hasMinted.ID)] = v

	g, id := testGateway(t, b)
	ctx := context.Background()

	score, err := g.Score(ctx, id)
	require.NoError(t, err)
	require.Equal(t, uint64(250), score)

	moves, err := g.Moves(ctx, id)
	require.NoError(t, err)
	require.Equal(t, uint64(17), moves)

	head, err := g.Head(ctx, id)
	require.NoError(t, err)
	require.Equal(t, game.Position{X: 3, Y: 4}, head)

	food, err := g.Food(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []game.Position{{X: 8, Y: 5}, {X: 1, Y: 2}}, food)

	minted, err := g.Minted(ctx, game.Tier{Class: 1, Contract: common.HexToAddress("0x2")}, id)
	require.NoError(t, err)
	require.True(t, minted)

	bal, err := g.Balance(ctx, id)
	require.NoError(t, err)
	require.Equal(t, int64(42), bal.Int64())
}

func TestEthGatewayAwaitFinality(t *testing.T) {
	tx := types.NewTx(&types.LegacyTx{Nonce: 1, Gas: 21000, GasPrice: big.NewInt(1)})
	p := Pending{Hash: tx.Hash(), Op: OpMove, tx: tx}

	t.Run("Success", func(t *testing.T) {
		g, _ := testGateway(t, &fakeBackend{receipt: &types.Receipt{
			Status:      types.ReceiptStatusSuccessful,
			TxHash:      tx.Hash(),
			BlockNumber: big.NewInt(9),
			GasUsed:     30000,
		}})
		r, err := g.AwaitFinality(context.Background(), p)
		require.NoError(t, err)
		require.Equal(t, uint64(9), r.Block)
		require.Equal(t, uint64(30000), r.GasUsed)
	})

	t.Run("Reverted", func(t *testing.T) {
		g, _ := testGateway(t, &fakeBackend{receipt: &types.Receipt{
			Status:      types.ReceiptStatusFailed,
			BlockNumber: big.NewInt(9),
		}})
		_, err := g.AwaitFinality(context.Background(), p)
		require.True(t, errors.Is(err, ErrReverted))
	})

	t.Run("Timeout", func(t *testing.T) {
		g, _ := testGateway(t, &fakeBackend{receiptErr: ethereum.NotFound})
		_, err := g.AwaitFinality(context.Background(), p)
		require.True(t, errors.Is(err, ErrTimeout))
	})

	t.Run("NoTransaction", func(t *testing.T) {
		g, _ := testGateway(t, &fakeBackend{})
		_, err := g.AwaitFinality(context.Background(), Pending{Op: OpMint})
		require.Error(t, err)
	})
}

func TestDirectionCode(t *testing.T) {
	for d, want := range map[game.Direction]uint8{game.Up: 0, game.Down: 1, game.Left: 2, game.Right: 3} {
		code, ok := directionCode(d)
		require.True(t, ok)
		require.Equal(t, want, code)
	}
	_, ok := directionCode(game.None)
	require.False(t, ok)

	_, err := gameABI.Pack("move", uint8(3))
	require.NoError(t, err)
}
