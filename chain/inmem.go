package chain

import (
	"context"
	"math/big"
	"math/rand"
	"sync"
	"time"

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// InMemOptions configures the simulated game contract.
type InMemOptions struct {
	Board     game.Board
	Tiers     game.Tiers
	FoodCount int
	FoodScore uint64
	// Latency is how long AwaitFinality blocks before a transaction is final.
	Latency time.Duration
	Seed    int64
}

// InMem is an in memory Gateway that plays the game contract's rules locally.
// Transactions are queued by Submit* and executed when AwaitFinality is
// called, like a transaction executing when it is mined.
type InMem struct {
	opts InMemOptions

	lock     sync.Mutex
	rng      *rand.Rand
	players  map[common.Address]*inmemPlayer
	balances map[common.Address]*big.Int
	queued   map[common.Hash]inmemTx
	nonce    int64
	block    uint64

	readFaults  map[string][]error
	finalFaults map[string][]error
	submitted   map[string]int
}

type inmemPlayer struct {
	started bool
	score   uint64
	moves   uint64
	head    game.Position
	food    []game.Position
	minted  map[int]bool
}

type inmemTx struct {
	op   string
	from common.Address
	dir  game.Direction
	tier game.Tier
}

// NewInMem returns an empty simulated chain.
func NewInMem(opts InMemOptions) *InMem {
	if opts.FoodCount <= 0 {
		opts.FoodCount = 1
	}
	if opts.FoodScore == 0 {
		opts.FoodScore = 10
	}
	return &InMem{
		opts:        opts,
		rng:         rand.New(rand.NewSource(opts.Seed)),
		players:     map[common.Address]*inmemPlayer{},
		balances:    map[common.Address]*big.Int{},
		queued:      map[common.Hash]inmemTx{},
		readFaults:  map[string][]error{},
		finalFaults: map[string][]error{},
		submitted:   map[string]int{},
	}
}

// Fund sets an account balance in wei.
func (m *InMem) Fund(addr common.Address, wei *big.Int) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.balances[addr] = new(big.Int).Set(wei)
}

// FailRead makes the next read of method ("score", "moves", "head", "food",
// "minted", "balance") return err.
func (m *InMem) FailRead(method string, err error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.readFaults[method] = append(m.readFaults[method], err)
}

// FailFinality makes the next AwaitFinality of op return err without
// executing the transaction.
func (m *InMem) FailFinality(op string, err error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.finalFaults[op] = append(m.finalFaults[op], err)
}

// Submitted returns how many transactions of op were submitted.
func (m *InMem) Submitted(op string) int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.submitted[op]
}

// SetState overrides a player's contract state. The player counts as started.
func (m *InMem) SetState(addr common.Address, s *game.Snapshot) {
	m.lock.Lock()
	defer m.lock.Unlock()
	p := m.player(addr)
	p.started = true
	p.score = s.Score
	p.moves = s.Moves
	p.head = s.Head
	p.food = append([]game.Position(nil), s.Food...)
	for c, ok := range s.Minted {
		if ok {
			p.minted[c] = true
		}
	}
}

// State returns a copy of a player's contract state.
func (m *InMem) State(addr common.Address) *game.Snapshot {
	m.lock.Lock()
	defer m.lock.Unlock()
	p := m.player(addr)
	s := &game.Snapshot{
		Score:  p.score,
		Moves:  p.moves,
		Head:   p.head,
		Food:   append([]game.Position(nil), p.food...),
		Minted: map[int]bool{},
	}
	for c := range p.minted {
		s.Minted[c] = true
	}
	return s
}

func (m *InMem) player(addr common.Address) *inmemPlayer {
	p, ok := m.players[addr]
	if !ok {
		p = &inmemPlayer{minted: map[int]bool{}}
		m.players[addr] = p
	}
	return p
}

func (m *InMem) readFault(method string) error {
	faults := m.readFaults[method]
	if len(faults) == 0 {
		return nil
	}
	m.readFaults[method] = faults[1:]
	return faults[0]
}

// Balance returns the funded balance.
func (m *InMem) Balance(ctx context.Context, id *Identity) (*big.Int, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if err := m.readFault("balance"); err != nil {
		return nil, err
	}
	if b, ok := m.balances[id.Address]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

// Score returns the player's score.
func (m *InMem) Score(ctx context.Context, id *Identity) (uint64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if err := m.readFault("score"); err != nil {
		return 0, err
	}
	return m.player(id.Address).score, nil
}

// Moves returns the player's move count.
func (m *InMem) Moves(ctx context.Context, id *Identity) (uint64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if err := m.readFault("moves"); err != nil {
		return 0, err
	}
	return m.player(id.Address).moves, nil
}

// Head returns the player's head position.
func (m *InMem) Head(ctx context.Context, id *Identity) (game.Position, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if err := m.readFault("head"); err != nil {
		return game.Position{}, err
	}
	return m.player(id.Address).head, nil
}

// Food returns the player's food list.
func (m *InMem) Food(ctx context.Context, id *Identity) ([]game.Position, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if err := m.readFault("food"); err != nil {
		return nil, err
	}
	return append([]game.Position{}, m.player(id.Address).food...), nil
}

// Minted reports whether the player holds the tier's reward.
func (m *InMem) Minted(ctx context.Context, tier game.Tier, id *Identity) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if err := m.readFault("minted"); err != nil {
		return false, err
	}
	return m.player(id.Address).minted[tier.Class], nil
}

func (m *InMem) submit(tx inmemTx) Pending {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.nonce++
	h := common.BigToHash(big.NewInt(m.nonce))
	m.queued[h] = tx
	m.submitted[tx.op]++
	return Pending{Hash: h, Op: tx.op, Identity: tx.from}
}

// SubmitStart queues startGame.
func (m *InMem) SubmitStart(ctx context.Context, id *Identity) (Pending, error) {
	return m.submit(inmemTx{op: OpStart, from: id.Address}), nil
}

// SubmitMove queues a move.
func (m *InMem) SubmitMove(ctx context.Context, id *Identity, dir game.Direction) (Pending, error) {
	if _, ok := directionCode(dir); !ok {
		return Pending{}, errors.Errorf("chain: cannot submit move %s", dir)
	}
	return m.submit(inmemTx{op: OpMove, from: id.Address, dir: dir}), nil
}

// SubmitMint queues a mint on the tier's reward contract.
func (m *InMem) SubmitMint(ctx context.Context, tier game.Tier, id *Identity) (Pending, error) {
	return m.submit(inmemTx{op: OpMint, from: id.Address, tier: tier}), nil
}

// AwaitFinality executes the queued transaction after the configured latency.
func (m *InMem) AwaitFinality(ctx context.Context, p Pending) (*Receipt, error) {
	if m.opts.Latency > 0 {
		select {
		case <-time.After(m.opts.Latency):
		case <-ctx.Done():
			return nil, finalityError(p, ctx.Err())
		}
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	tx, ok := m.queued[p.Hash]
	if !ok {
		return nil, errors.Errorf("chain: unknown transaction %s", p.Hash.Hex())
	}
	delete(m.queued, p.Hash)

	if faults := m.finalFaults[tx.op]; len(faults) > 0 {
		m.finalFaults[tx.op] = faults[1:]
		return nil, faults[0]
	}

	if reason := m.execute(tx); reason != "" {
		return nil, errors.Wrapf(ErrReverted, "%s %s: %s", p.Op, p.Hash.Hex(), reason)
	}
	m.block++
	return &Receipt{Hash: p.Hash, Block: m.block, GasUsed: 21000}, nil
}

// execute applies tx and returns a revert reason, empty on success.
func (m *InMem) execute(tx inmemTx) string {
	p := m.player(tx.from)
	switch tx.op {
	case OpStart:
		if p.started {
			return ""
		}
		p.started = true
		p.head = game.Position{X: m.opts.Board.Width / 2, Y: m.opts.Board.Height / 2}
		p.food = nil
		for i := 0; i < m.opts.FoodCount; i++ {
			m.spawnFood(p)
		}
	case OpMove:
		if !p.started {
			return "game not started"
		}
		next := p.head.Step(tx.dir)
		if !m.opts.Board.Contains(next) {
			return "move out of bounds"
		}
		p.head = next
		p.moves++
		for i, f := range p.food {
			if f.Equal(next) {
				p.score += m.opts.FoodScore
				p.food = append(p.food[:i], p.food[i+1:]...)
				m.spawnFood(p)
				break
			}
		}
	case OpMint:
		if p.minted[tx.tier.Class] {
			return "already minted"
		}
		if p.score < tx.tier.Threshold {
			return "score below threshold"
		}
		p.minted[tx.tier.Class] = true
	}
	return ""
}

func (m *InMem) spawnFood(p *inmemPlayer) {
	b := m.opts.Board
	free := make([]game.Position, 0, b.Width*b.Height)
	for x := 0; x < b.Width; x++ {
		for y := 0; y < b.Height; y++ {
			c := game.Position{X: x, Y: y}
			if c.Equal(p.head) || containsPosition(p.food, c) {
				continue
			}
			free = append(free, c)
		}
	}
	if len(free) == 0 {
		return
	}
	p.food = append(p.food, free[m.rng.Intn(len(free))])
}

func containsPosition(list []game.Position, p game.Position) bool {
	for _, c := range list {
		if c.Equal(p) {
			return true
		}
	}
	return false
}
