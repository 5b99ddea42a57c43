package app

import (
	"sync"

	"github.com/fd1az/cooler-keeper/internal/apperror"
)

// GateState is the execution gate lifecycle.
type GateState string

const (
	GateIdle      GateState = "idle"
	GateAdmitted  GateState = "admitted"
	GateSubmitted GateState = "submitted"
)

// ExecutionGate serializes claim execution: at most one window may hold the
// gate, so at most one submission is ever in flight. Settling returns the
// gate to idle for the next window.
type ExecutionGate struct {
	mu       sync.Mutex
	state    GateState
	windowID uint64
}

// NewExecutionGate creates an idle gate.
func NewExecutionGate() *ExecutionGate {
	return &ExecutionGate{state: GateIdle}
}

// Admit attempts to take the gate for a window. It returns true only on
// the idle-to-admitted transition. Re-admitting the holder window is a
// no-op returning false, so repeated evaluations of the same opportunity
// never launch a second submission.
func (g *ExecutionGate) Admit(windowID uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != GateIdle {
		return false
	}

	g.state = GateAdmitted
	g.windowID = windowID
	return true
}

// MarkSubmitted records that the holder window's transaction went on the
// wire.
func (g *ExecutionGate) MarkSubmitted(windowID uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != GateAdmitted || g.windowID != windowID {
		return apperror.New(apperror.CodeInvalidState,
			apperror.WithContext("gate not admitted for this window"))
	}

	g.state = GateSubmitted
	return nil
}

// Settle releases the gate after the holder window's submission reached a
// terminal outcome, or after an admitted window aborted before broadcast.
func (g *ExecutionGate) Settle(windowID uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == GateIdle || g.windowID != windowID {
		return apperror.New(apperror.CodeInvalidState,
			apperror.WithContext("gate not held by this window"))
	}

	g.state = GateIdle
	g.windowID = 0
	return nil
}

// Holder returns the window currently holding the gate, if any.
func (g *ExecutionGate) Holder() (uint64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == GateIdle {
		return 0, false
	}
	return g.windowID, true
}

// State returns the current gate state.
func (g *ExecutionGate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}
