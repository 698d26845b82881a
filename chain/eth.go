package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Backend is the subset of an Ethereum client the gateway needs.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// EthOptions configures an EthGateway.
type EthOptions struct {
	GameContract    common.Address
	Tiers           game.Tiers
	GasLimit        uint64
	FinalityTimeout time.Duration
	// Confirmations is the number of blocks to wait on top of the inclusion
	// block before a receipt counts as final.
	Confirmations uint64
	PollInterval  time.Duration
}

// EthGateway talks to the contracts over Ethereum JSON-RPC.
type EthGateway struct {
	backend Backend
	chainID *big.Int
	opts    EthOptions

	game    *bind.BoundContract
	rewards map[common.Address]*bind.BoundContract
}

// Dial connects to the RPC endpoint and resolves the chain id. Failing to do
// either is fatal for the caller.
func Dial(ctx context.Context, url string, opts EthOptions) (*EthGateway, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "chain: dial %s", url)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "chain: chain id from %s", url)
	}
	log.WithFields(log.Fields{
		"url":     url,
		"chainID": chainID,
	}).Info("connected to rpc endpoint")
	return NewEthGateway(client, chainID, opts), nil
}

// NewEthGateway binds the game contract and every tier's reward contract.
func NewEthGateway(backend Backend, chainID *big.Int, opts EthOptions) *EthGateway {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	g := &EthGateway{
		backend: backend,
		chainID: chainID,
		opts:    opts,
		game:    bind.NewBoundContract(opts.GameContract, gameABI, backend, backend, backend),
		rewards: map[common.Address]*bind.BoundContract{},
	}
	for _, t := range opts.Tiers.All() {
		g.rewards[t.Contract] = bind.NewBoundContract(t.Contract, rewardABI, backend, backend, backend)
	}
	return g
}

func (g *EthGateway) reward(tier game.Tier) *bind.BoundContract {
	if c, ok := g.rewards[tier.Contract]; ok {
		return c
	}
	return bind.NewBoundContract(tier.Contract, rewardABI, g.backend, g.backend, g.backend)
}

func (g *EthGateway) call(ctx context.Context, c *bind.BoundContract, id *Identity, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	err := c.Call(&bind.CallOpts{Context: ctx, From: id.Address}, &out, method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "chain: call %s", method)
	}
	return out, nil
}

func (g *EthGateway) callUint(ctx context.Context, id *Identity, method string) (uint64, error) {
	out, err := g.call(ctx, g.game, id, method, id.Address)
	if err != nil {
		return 0, err
	}
	v := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if v == nil || !v.IsUint64() {
		return 0, errors.Errorf("chain: %s returned out of range value %v", method, v)
	}
	return v.Uint64(), nil
}

// Balance returns the identity's balance in wei.
func (g *EthGateway) Balance(ctx context.Context, id *Identity) (*big.Int, error) {
	b, err := g.backend.BalanceAt(ctx, id.Address, nil)
	if err != nil {
		return nil, errors.Wrap(err, "chain: balance")
	}
	return b, nil
}

// Score reads the player's score.
func (g *EthGateway) Score(ctx context.Context, id *Identity) (uint64, error) {
	return g.callUint(ctx, id, "getScore")
}

// Moves reads the player's move count.
func (g *EthGateway) Moves(ctx context.Context, id *Identity) (uint64, error) {
	return g.callUint(ctx, id, "getMoveCount")
}

// Head reads the position of the player's snake head.
func (g *EthGateway) Head(ctx context.Context, id *Identity) (game.Position, error) {
	out, err := g.call(ctx, g.game, id, "getHead", id.Address)
	if err != nil {
		return game.Position{}, err
	}
	x := *abi.ConvertType(out[0], new(uint8)).(*uint8)
	y := *abi.ConvertType(out[1], new(uint8)).(*uint8)
	return game.Position{X: int(x), Y: int(y)}, nil
}

// Food reads the player's food list in contract order.
func (g *EthGateway) Food(ctx context.Context, id *Identity) ([]game.Position, error) {
	out, err := g.call(ctx, g.game, id, "getFood", id.Address)
	if err != nil {
		return nil, err
	}
	points := *abi.ConvertType(out[0], new([]foodPoint)).(*[]foodPoint)
	food := make([]game.Position, 0, len(points))
	for _, p := range points {
		food = append(food, game.Position{X: int(p.X), Y: int(p.Y)})
	}
	return food, nil
}

// Minted reads whether the player already holds the tier's reward.
func (g *EthGateway) Minted(ctx context.Context, tier game.Tier, id *Identity) (bool, error) {
	out, err := g.call(ctx, g.reward(tier), id, "hasMinted", id.Address)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (g *EthGateway) transact(ctx context.Context, c *bind.BoundContract, id *Identity, op, method string, args ...interface{}) (Pending, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(id.Key, g.chainID)
	if err != nil {
		return Pending{}, errors.Wrap(err, "chain: transactor")
	}
	opts.Context = ctx
	opts.GasLimit = g.opts.GasLimit

	tx, err := c.Transact(opts, method, args...)
	if err != nil {
		return Pending{}, errors.Wrapf(err, "chain: submit %s", method)
	}
	log.WithFields(log.Fields{
		"identity": id.Address.Hex(),
		"op":       op,
		"tx":       tx.Hash().Hex(),
		"nonce":    tx.Nonce(),
	}).Debug("transaction submitted")
	return Pending{Hash: tx.Hash(), Op: op, Identity: id.Address, tx: tx}, nil
}

// SubmitStart submits startGame.
func (g *EthGateway) SubmitStart(ctx context.Context, id *Identity) (Pending, error) {
	return g.transact(ctx, g.game, id, OpStart, "startGame")
}

// SubmitMove submits a single move.
func (g *EthGateway) SubmitMove(ctx context.Context, id *Identity, dir game.Direction) (Pending, error) {
	code, ok := directionCode(dir)
	if !ok {
		return Pending{}, errors.Errorf("chain: cannot submit move %s", dir)
	}
	return g.transact(ctx, g.game, id, OpMove, "move", code)
}

// SubmitMint submits mint on the tier's reward contract.
func (g *EthGateway) SubmitMint(ctx context.Context, tier game.Tier, id *Identity) (Pending, error) {
	return g.transact(ctx, g.reward(tier), id, OpMint, "mint")
}

// AwaitFinality waits for the receipt and the configured confirmations.
func (g *EthGateway) AwaitFinality(ctx context.Context, p Pending) (*Receipt, error) {
	if p.tx == nil {
		return nil, errors.Errorf("chain: %s handle %s has no transaction", p.Op, p.Hash.Hex())
	}
	if g.opts.FinalityTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.FinalityTimeout)
		defer cancel()
	}

	r, err := bind.WaitMined(ctx, g.backend, p.tx)
	if err != nil {
		return nil, finalityError(p, err)
	}
	if r.Status == types.ReceiptStatusFailed {
		return nil, errors.Wrapf(ErrReverted, "%s %s", p.Op, p.Hash.Hex())
	}
	if err := g.awaitConfirmations(ctx, r.BlockNumber.Uint64()); err != nil {
		return nil, finalityError(p, err)
	}
	return &Receipt{
		Hash:    r.TxHash,
		Block:   r.BlockNumber.Uint64(),
		GasUsed: r.GasUsed,
	}, nil
}

func (g *EthGateway) awaitConfirmations(ctx context.Context, block uint64) error {
	if g.opts.Confirmations == 0 {
		return nil
	}
	t := time.NewTicker(g.opts.PollInterval)
	defer t.Stop()
	for {
		head, err := g.backend.HeaderByNumber(ctx, nil)
		if err == nil && head.Number.Uint64() >= block+g.opts.Confirmations {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func finalityError(p Pending, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrapf(ErrTimeout, "%s %s", p.Op, p.Hash.Hex())
	}
	return errors.Wrapf(err, "chain: await %s %s", p.Op, p.Hash.Hex())
}
