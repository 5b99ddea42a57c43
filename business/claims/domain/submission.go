package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SubmissionState is the lifecycle state of a pending submission.
type SubmissionState string

const (
	SubmissionBuilt      SubmissionState = "built"
	SubmissionSigned     SubmissionState = "signed"
	SubmissionBroadcast  SubmissionState = "broadcast"
	SubmissionConfirmed  SubmissionState = "confirmed"
	SubmissionReverted   SubmissionState = "reverted"
	SubmissionDropped    SubmissionState = "dropped"
	SubmissionSuperseded SubmissionState = "superseded"
)

// submissionTransitions lists the legal state moves.
var submissionTransitions = map[SubmissionState][]SubmissionState{
	SubmissionBuilt:      {SubmissionSigned},
	SubmissionSigned:     {SubmissionBroadcast},
	SubmissionBroadcast:  {SubmissionConfirmed, SubmissionReverted, SubmissionDropped, SubmissionSuperseded},
	SubmissionConfirmed:  {},
	SubmissionReverted:   {},
	SubmissionDropped:    {},
	SubmissionSuperseded: {},
}

// PendingSubmission tracks one signed transaction from construction to a
// terminal outcome. A replacement at the same nonce supersedes the prior
// attempt rather than mutating it.
type PendingSubmission struct {
	WindowID  uint64
	Nonce     uint64
	Attempt   int
	GasPrice  *big.Int
	GasLimit  uint64
	TxHash    common.Hash
	State     SubmissionState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPendingSubmission creates a submission in the built state.
func NewPendingSubmission(windowID, nonce uint64, attempt int, gasPrice *big.Int, gasLimit uint64) *PendingSubmission {
	now := time.Now()
	return &PendingSubmission{
		WindowID:  windowID,
		Nonce:     nonce,
		Attempt:   attempt,
		GasPrice:  gasPrice,
		GasLimit:  gasLimit,
		State:     SubmissionBuilt,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the submission to the target state.
func (p *PendingSubmission) Transition(to SubmissionState) error {
	for _, allowed := range submissionTransitions[p.State] {
		if allowed == to {
			p.State = to
			p.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("illegal submission transition %s -> %s", p.State, to)
}

// IsTerminal reports whether the submission has a final outcome.
func (p *PendingSubmission) IsTerminal() bool {
	switch p.State {
	case SubmissionConfirmed, SubmissionReverted, SubmissionDropped, SubmissionSuperseded:
		return true
	}
	return false
}

// Outcome is the final result of a submit cycle across all attempts.
type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeReverted  Outcome = "reverted"
	OutcomeDropped   Outcome = "dropped"
	OutcomeAborted   Outcome = "aborted" // preflight re-evaluation vetoed the broadcast
)

// SubmissionResult reports the terminal outcome of a submit cycle.
type SubmissionResult struct {
	Outcome     Outcome
	TxHash      common.Hash
	Attempts    int
	GasUsed     uint64
	BlockNumber uint64
	// NonceConsumed is true when the nonce landed on chain, including
	// reverted transactions.
	NonceConsumed bool
}
