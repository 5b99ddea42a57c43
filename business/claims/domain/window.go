// Package domain contains the core domain types for the claims context.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// WindowState is the lifecycle state of a reward window.
type WindowState string

const (
	// WindowPending means claimable value exists but the claim is not yet
	// worth submitting.
	WindowPending WindowState = "pending"

	// WindowEligible means the last evaluation found the claim profitable.
	WindowEligible WindowState = "eligible"

	// WindowClaiming means a submission for this window is in flight.
	WindowClaiming WindowState = "claiming"

	// WindowClaimed means our transaction confirmed and the reward was won.
	WindowClaimed WindowState = "claimed"

	// WindowMissed means the claimable value disappeared before we
	// captured it, usually because a competitor claimed first.
	WindowMissed WindowState = "missed"
)

// windowTransitions lists the legal state moves.
var windowTransitions = map[WindowState][]WindowState{
	WindowPending:  {WindowEligible, WindowMissed},
	WindowEligible: {WindowPending, WindowClaiming, WindowMissed},
	WindowClaiming: {WindowPending, WindowEligible, WindowClaimed, WindowMissed},
	WindowClaimed:  {},
	WindowMissed:   {},
}

// RewardWindow tracks one contiguous stretch of claimable value from the
// moment it appears until it is either claimed or lost.
type RewardWindow struct {
	ID          uint64
	State       WindowState
	OpenedAt    time.Time
	EligibleAt  time.Time // zero until first profitable evaluation
	ClosedAt    time.Time // zero until terminal
	ClaimedUSD  decimal.Decimal
	LastVerdict *ProfitVerdict
}

// NewRewardWindow opens a pending window.
func NewRewardWindow(id uint64, openedAt time.Time) *RewardWindow {
	return &RewardWindow{
		ID:       id,
		State:    WindowPending,
		OpenedAt: openedAt,
	}
}

// Transition moves the window to the target state, enforcing the lifecycle.
func (w *RewardWindow) Transition(to WindowState, at time.Time) error {
	for _, allowed := range windowTransitions[w.State] {
		if allowed == to {
			w.applyTransition(to, at)
			return nil
		}
	}
	return fmt.Errorf("illegal window transition %s -> %s", w.State, to)
}

func (w *RewardWindow) applyTransition(to WindowState, at time.Time) {
	switch to {
	case WindowEligible:
		if w.EligibleAt.IsZero() {
			w.EligibleAt = at
		}
	case WindowClaimed, WindowMissed:
		w.ClosedAt = at
	}
	w.State = to
}

// IsTerminal reports whether the window has reached a final state.
func (w *RewardWindow) IsTerminal() bool {
	return w.State == WindowClaimed || w.State == WindowMissed
}

// Duration returns how long the window has been (or was) open.
func (w *RewardWindow) Duration(now time.Time) time.Duration {
	if w.IsTerminal() {
		return w.ClosedAt.Sub(w.OpenedAt)
	}
	return now.Sub(w.OpenedAt)
}
