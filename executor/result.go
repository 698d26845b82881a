package executor

import (
	"context"

	"github.com/battlesnakeio/chainsnake/chain"
	"github.com/pkg/errors"
)

// Outcome is how an operation ended.
type Outcome string

// Outcomes.
const (
	OutcomeSuccess       Outcome = "success"
	OutcomeAlreadyMinted Outcome = "already_minted"
	OutcomeFailed        Outcome = "failed"
)

// FailureKind classifies a failed operation.
type FailureKind string

// Failure kinds.
const (
	FailureNone    FailureKind = ""
	FailureRevert  FailureKind = "revert"
	FailureTimeout FailureKind = "timeout"
	FailureRPC     FailureKind = "rpc"
)

// Result is the outcome of Execute.
type Result struct {
	Op      Op
	Outcome Outcome
	Failure FailureKind
	Receipt *chain.Receipt
	Err     error
}

// OK reports whether the operation's effect holds on chain.
func (r Result) OK() bool {
	return r.Outcome != OutcomeFailed
}

// Classify maps a gateway error onto a failure kind.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, chain.ErrReverted):
		return FailureRevert
	case errors.Is(err, chain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	}
	return FailureRPC
}
