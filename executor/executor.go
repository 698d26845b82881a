// Package executor submits write operations for a session, waits for them to
// be final and applies their effect to the session's snapshot. A failed
// operation never touches the snapshot; the next cycle re-derives it.
package executor

import (
	"context"
	"time"

	"github.com/battlesnakeio/chainsnake/chain"
	"github.com/battlesnakeio/chainsnake/session"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

var (
	transactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chainsnake",
			Subsystem: "executor",
			Name:      "transactions_total",
			Help:      "Write operations by outcome.",
		},
		[]string{"op", "outcome", "failure"},
	)
)

func init() { prometheus.MustRegister(transactions) }

// Executor runs write operations through a gateway.
type Executor struct {
	Gateway chain.Gateway
	// FinalityTimeout bounds submit plus finality for one operation.
	FinalityTimeout time.Duration
}

// New returns an executor.
func New(g chain.Gateway, finalityTimeout time.Duration) *Executor {
	return &Executor{Gateway: g, FinalityTimeout: finalityTimeout}
}

// Start runs a start operation, satisfying session.Starter.
func (e *Executor) Start(ctx context.Context, s *session.Session) error {
	return e.Execute(ctx, s, StartOp()).Err
}

// Execute submits op, blocks until it is final or failed, and on success
// applies it to the session. Once submitted an operation is not cancellable:
// caller cancellation is ignored until the transaction resolves.
func (e *Executor) Execute(ctx context.Context, s *session.Session, op Op) Result {
	s.LockWrites()
	defer s.UnlockWrites()

	logger := log.WithFields(log.Fields{
		"identity": s.ID.String(),
		"op":       op.String(),
	})

	res := e.execute(ctx, s, op, logger)
	transactions.WithLabelValues(op.Kind, string(res.Outcome), string(res.Failure)).Inc()

	switch res.Outcome {
	case OutcomeFailed:
		logger.WithError(res.Err).
			WithField("failure", res.Failure).
			Warn("operation failed, will re-evaluate next cycle")
	case OutcomeAlreadyMinted:
		logger.Info("tier already minted")
	default:
		entry := logger
		if res.Receipt != nil {
			entry = entry.WithFields(log.Fields{
				"tx":    res.Receipt.Hash.Hex(),
				"block": res.Receipt.Block,
			})
		}
		entry.Info("operation final")
	}
	return res
}

func (e *Executor) execute(ctx context.Context, s *session.Session, op Op, logger *log.Entry) Result {
	if op.Kind == chain.OpMint {
		if s.HasMinted(op.Tier.Class) {
			return Result{Op: op, Outcome: OutcomeAlreadyMinted}
		}
		minted, err := e.Gateway.Minted(ctx, op.Tier, s.ID)
		if err != nil {
			return failed(op, errors.Wrap(err, "mint pre-check"))
		}
		if minted {
			s.RecordMint(op.Tier.Class)
			return Result{Op: op, Outcome: OutcomeAlreadyMinted}
		}
	}

	wctx := context.WithoutCancel(ctx)
	if e.FinalityTimeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(wctx, e.FinalityTimeout)
		defer cancel()
	}

	p, err := e.submit(wctx, s, op)
	if err != nil {
		return failed(op, err)
	}
	logger.WithField("tx", p.Hash.Hex()).Debug("awaiting finality")

	receipt, err := e.Gateway.AwaitFinality(wctx, p)
	if err != nil {
		if op.Kind == chain.OpMint && Classify(err) == FailureRevert {
			// A racing mint from elsewhere makes ours revert; that is success.
			if minted, mErr := e.Gateway.Minted(wctx, op.Tier, s.ID); mErr == nil && minted {
				s.RecordMint(op.Tier.Class)
				return Result{Op: op, Outcome: OutcomeAlreadyMinted}
			}
		}
		return failed(op, err)
	}

	switch op.Kind {
	case chain.OpStart:
		s.MarkStarted()
	case chain.OpMove:
		s.RecordMove()
	case chain.OpMint:
		s.RecordMint(op.Tier.Class)
	}
	return Result{Op: op, Outcome: OutcomeSuccess, Receipt: receipt}
}

func (e *Executor) submit(ctx context.Context, s *session.Session, op Op) (chain.Pending, error) {
	switch op.Kind {
	case chain.OpStart:
		return e.Gateway.SubmitStart(ctx, s.ID)
	case chain.OpMove:
		return e.Gateway.SubmitMove(ctx, s.ID, op.Direction)
	case chain.OpMint:
		return e.Gateway.SubmitMint(ctx, op.Tier, s.ID)
	}
	return chain.Pending{}, errors.Errorf("executor: unknown operation %q", op.Kind)
}

func failed(op Op, err error) Result {
	return Result{Op: op, Outcome: OutcomeFailed, Failure: Classify(err), Err: err}
}
