// Package session keeps one player's local belief about their remote game
// state and refreshes it from the chain gateway.
package session

import (
	"context"
	"sync"

	"github.com/battlesnakeio/chainsnake/chain"
	"github.com/battlesnakeio/chainsnake/game"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Starter submits a start transaction for a session and waits for it to be
// final. *executor.Executor satisfies it.
type Starter interface {
	Start(ctx context.Context, s *Session) error
}

// Session is a player identity plus its snapshot. The snapshot is owned by
// the session; callers get copies.
type Session struct {
	ID *chain.Identity

	gateway chain.Gateway
	tiers   game.Tiers

	// writes serializes transactions for this identity, they share a nonce.
	writes sync.Mutex

	mu       sync.RWMutex
	snapshot *game.Snapshot
	started  bool
}

// New returns a session with an empty snapshot.
func New(id *chain.Identity, gateway chain.Gateway, tiers game.Tiers) *Session {
	return &Session{
		ID:       id,
		gateway:  gateway,
		tiers:    tiers,
		snapshot: game.NewSnapshot(),
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *Session) Snapshot() *game.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone()
}

// Started reports whether the player's game is known to be running.
func (s *Session) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// LockWrites must be held while a transaction for this identity is in flight.
func (s *Session) LockWrites() { s.writes.Lock() }

// UnlockWrites releases LockWrites.
func (s *Session) UnlockWrites() { s.writes.Unlock() }

// Refresh reads score, moves, head, food and the minted flag of every tier
// not yet recorded, and overwrites each field whose read succeeded. Fields
// whose read failed keep their last known value; all failures are returned
// together so the caller can skip the cycle.
func (s *Session) Refresh(ctx context.Context) error {
	var errs error

	score, err := s.gateway.Score(ctx, s.ID)
	errs = multierr.Append(errs, errors.Wrap(err, "read score"))
	scoreOK := err == nil

	moves, err := s.gateway.Moves(ctx, s.ID)
	errs = multierr.Append(errs, errors.Wrap(err, "read moves"))
	movesOK := err == nil

	head, err := s.gateway.Head(ctx, s.ID)
	errs = multierr.Append(errs, errors.Wrap(err, "read head"))
	headOK := err == nil

	food, err := s.gateway.Food(ctx, s.ID)
	errs = multierr.Append(errs, errors.Wrap(err, "read food"))
	foodOK := err == nil

	var minted []int
	for _, t := range s.tiers.All() {
		if s.HasMinted(t.Class) {
			continue
		}
		ok, err := s.gateway.Minted(ctx, t, s.ID)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "read minted tier %d", t.Class))
			continue
		}
		if ok {
			minted = append(minted, t.Class)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if scoreOK {
		s.snapshot.Score = score
	}
	if movesOK {
		s.snapshot.Moves = moves
		if moves > 0 {
			s.started = true
		}
	}
	if headOK {
		s.snapshot.Head = head
	}
	if foodOK {
		s.snapshot.Food = food
	}
	for _, c := range minted {
		s.snapshot.RecordMint(c)
	}
	return errs
}

// InitializeIfNeeded starts the player's game when the contract reports no
// moves yet. A failed start is returned and retried on the next pass.
func (s *Session) InitializeIfNeeded(ctx context.Context, starter Starter) error {
	if s.Started() {
		return nil
	}
	moves, err := s.gateway.Moves(ctx, s.ID)
	if err != nil {
		return errors.Wrap(err, "read moves")
	}
	if moves > 0 {
		s.MarkStarted()
		return nil
	}

	log.WithField("identity", s.ID.String()).Info("starting game")
	return starter.Start(ctx, s)
}

// HasMinted reports whether the tier class is recorded locally.
func (s *Session) HasMinted(class int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.HasMinted(class)
}

// MarkStarted records that the player's game is running.
func (s *Session) MarkStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
}

// RecordMove optimistically counts a final move. The next Refresh replaces
// the count with the contract's.
func (s *Session) RecordMove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Moves++
}

// RecordMint records a tier as minted. Only call after the contract confirmed
// it, either through a read or a successful mint transaction.
func (s *Session) RecordMint(class int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.RecordMint(class)
}
