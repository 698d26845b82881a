// Package agent runs the play loop: it keeps every funded identity's session
// in sync with the chain, asks the rules what to do and hands the resulting
// operations to the executor until every identity holds the terminal tier.
package agent

import (
	"context"
	"sync"
	"time"

	"github.com/battlesnakeio/chainsnake/chain"
	"github.com/battlesnakeio/chainsnake/executor"
	"github.com/battlesnakeio/chainsnake/game"
	"github.com/battlesnakeio/chainsnake/journal"
	"github.com/battlesnakeio/chainsnake/render"
	"github.com/battlesnakeio/chainsnake/rules"
	"github.com/battlesnakeio/chainsnake/session"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// ErrNoFundedIdentity is returned when no identity can pay for transactions.
var ErrNoFundedIdentity = errors.New("agent: no funded identity")

// State is the agent's lifecycle state.
type State int

// States.
const (
	Idle State = iota
	Bootstrapping
	Running
	Terminated
)

func (s State) String() string {
	switch s {
	case Bootstrapping:
		return "bootstrapping"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	}
	return "idle"
}

// Agent plays the game for a set of identities.
type Agent struct {
	Gateway    chain.Gateway
	Executor   *executor.Executor
	Identities []*chain.Identity
	Tiers      game.Tiers
	Board      game.Board
	// Bounded selects the bounds-aware move rule.
	Bounded    bool
	CycleDelay time.Duration
	// Parallel > 1 runs up to that many identity cycles at once.
	Parallel   int
	Renderer   render.Renderer
	Journal    journal.Store
	RunID      string

	mu       sync.Mutex
	state    State
	sessions []*session.Session
	lastErr  map[*session.Session]string
	done     map[*session.Session]bool
	cycle    int64
}

// State returns the current lifecycle state.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Agent) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
	log.WithField("run", a.RunID).WithField("state", s.String()).Info("agent state")
}

// Sessions returns the sessions of funded identities.
func (a *Agent) Sessions() []*session.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*session.Session(nil), a.sessions...)
}

// Run bootstraps the sessions and plays until every identity holds the
// terminal tier or ctx is cancelled. Cancellation is only observed between
// cycles and returns ctx.Err().
func (a *Agent) Run(ctx context.Context) error {
	if a.RunID == "" {
		a.RunID = uuid.NewV4().String()
	}
	a.setState(Bootstrapping)
	if err := a.bootstrap(ctx); err != nil {
		a.setState(Terminated)
		return err
	}

	a.setState(Running)
	status := journal.RunComplete
	err := a.loop(ctx)
	if err != nil {
		status = journal.RunStopped
	}

	a.setState(Terminated)
	frames := a.frames()
	a.render(frames)
	a.journal(frames...)
	if a.Journal != nil {
		if jErr := a.Journal.SetRunStatus(context.WithoutCancel(ctx), a.RunID, status); jErr != nil {
			log.WithError(jErr).WithField("run", a.RunID).Warn("unable to finish journal run")
		}
	}
	return err
}

// bootstrap drops identities without a balance and only fails when none is
// left, so one empty key does not stop the others from playing.
func (a *Agent) bootstrap(ctx context.Context) error {
	var sessions []*session.Session
	var identities []string
	for _, id := range a.Identities {
		balance, err := a.Gateway.Balance(ctx, id)
		if err != nil {
			return errors.Wrapf(err, "agent: balance of %s", id)
		}
		if balance.Sign() <= 0 {
			log.WithField("identity", id.String()).Warn("identity is not funded, skipping")
			continue
		}
		sessions = append(sessions, session.New(id, a.Gateway, a.Tiers))
		identities = append(identities, id.String())
	}
	if len(sessions) == 0 {
		return ErrNoFundedIdentity
	}

	a.mu.Lock()
	a.sessions = sessions
	a.lastErr = map[*session.Session]string{}
	a.done = map[*session.Session]bool{}
	a.mu.Unlock()

	if a.Journal != nil {
		err := a.Journal.CreateRun(ctx, &journal.Run{
			ID:         a.RunID,
			Status:     journal.RunRunning,
			Identities: identities,
			Board:      a.Board,
			Created:    time.Now().UTC(),
		})
		if err != nil {
			log.WithError(err).WithField("run", a.RunID).Warn("unable to create journal run")
		}
	}

	// Failures are retried by the first cycle of each identity.
	for _, s := range sessions {
		if err := s.InitializeIfNeeded(ctx, a.Executor); err != nil {
			a.setError(s, err)
			log.WithError(err).WithField("identity", s.ID.String()).Warn("unable to initialize game")
		}
	}
	return nil
}

func (a *Agent) loop(ctx context.Context) error {
	for {
		if a.finished() {
			log.WithField("run", a.RunID).Info("every identity holds the terminal tier")
			return nil
		}

		if a.Parallel > 1 {
			a.parallelPass(ctx)
			if a.finished() {
				continue
			}
			if err := a.wait(ctx); err != nil {
				return err
			}
			continue
		}

		for _, s := range a.Sessions() {
			if a.isDone(s) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			a.cycleOne(ctx, s)
			frames := a.frames()
			a.render(frames)
			a.journal(a.frameOf(s))
			if a.finished() {
				break
			}
			if err := a.wait(ctx); err != nil {
				return err
			}
		}
	}
}

func (a *Agent) parallelPass(ctx context.Context) {
	var g errgroup.Group
	g.SetLimit(a.Parallel)
	var stepped []*session.Session
	for _, s := range a.Sessions() {
		if a.isDone(s) {
			continue
		}
		s := s
		stepped = append(stepped, s)
		g.Go(func() error {
			a.cycleOne(ctx, s)
			return nil
		})
	}
	_ = g.Wait()

	a.render(a.frames())
	var frames []*game.Frame
	for _, s := range stepped {
		frames = append(frames, a.frameOf(s))
	}
	a.journal(frames...)
}

// cycleOne runs one identity's cycle and records its outcome.
func (a *Agent) cycleOne(ctx context.Context, s *session.Session) {
	a.mu.Lock()
	a.cycle++
	a.mu.Unlock()

	terminal, err := a.step(ctx, s)
	a.setError(s, err)
	if err != nil {
		log.WithError(err).WithField("identity", s.ID.String()).Warn("cycle incomplete")
	}
	if terminal {
		log.WithField("identity", s.ID.String()).Info("terminal tier held")
		a.mu.Lock()
		a.done[s] = true
		a.mu.Unlock()
	}
}

// step is one pass of initialize, refresh, decide, mint, move for an
// identity. It reports whether the identity holds the terminal tier.
func (a *Agent) step(ctx context.Context, s *session.Session) (bool, error) {
	if err := s.InitializeIfNeeded(ctx, a.Executor); err != nil {
		return false, errors.Wrap(err, "initialize")
	}
	if err := s.Refresh(ctx); err != nil {
		return false, errors.Wrap(err, "refresh")
	}

	d := rules.Decide(s.Snapshot(), rules.Options{
		Board:   a.Board,
		Tiers:   a.Tiers,
		Bounded: a.Bounded,
	})

	var errs error
	for _, t := range d.Mints {
		if res := a.Executor.Execute(ctx, s, executor.MintOp(t)); !res.OK() {
			errs = multierr.Append(errs, res.Err)
		}
	}

	if rules.HasTerminalTier(s.Snapshot(), a.Tiers) {
		return true, errs
	}

	switch {
	case d.Move != game.None:
		if res := a.Executor.Execute(ctx, s, executor.MoveOp(d.Move)); !res.OK() {
			errs = multierr.Append(errs, res.Err)
		}
	case d.Retry:
		log.WithField("identity", s.ID.String()).Debug("no in-bounds move, retrying next cycle")
	}
	return false, errs
}

func (a *Agent) wait(ctx context.Context) error {
	if a.CycleDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(a.CycleDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Agent) finished() bool {
	sessions := a.Sessions()
	snapshots := make([]*game.Snapshot, 0, len(sessions))
	for _, s := range sessions {
		snapshots = append(snapshots, s.Snapshot())
	}
	return rules.CheckForGameOver(snapshots, a.Tiers)
}

func (a *Agent) isDone(s *session.Session) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done[s]
}

func (a *Agent) setError(s *session.Session, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err == nil {
		delete(a.lastErr, s)
		return
	}
	a.lastErr[s] = err.Error()
}

func (a *Agent) frameOf(s *session.Session) *game.Frame {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &game.Frame{
		RunID:    a.RunID,
		Cycle:    a.cycle,
		Identity: s.ID.String(),
		Snapshot: s.Snapshot(),
		Board:    a.Board,
		Error:    a.lastErr[s],
		Time:     time.Now().UTC(),
	}
}

// Frames returns the current frame of every session.
func (a *Agent) Frames() []*game.Frame { return a.frames() }

func (a *Agent) frames() []*game.Frame {
	sessions := a.Sessions()
	frames := make([]*game.Frame, 0, len(sessions))
	for _, s := range sessions {
		frames = append(frames, a.frameOf(s))
	}
	return frames
}

func (a *Agent) render(frames []*game.Frame) {
	if a.Renderer == nil || len(frames) == 0 {
		return
	}
	if err := a.Renderer.Render(frames); err != nil {
		log.WithError(err).Warn("render failed")
	}
}

func (a *Agent) journal(frames ...*game.Frame) {
	if a.Journal == nil || len(frames) == 0 {
		return
	}
	if err := a.Journal.AppendFrames(context.Background(), a.RunID, frames...); err != nil {
		log.WithError(err).WithField("run", a.RunID).Warn("unable to journal frames")
	}
}
