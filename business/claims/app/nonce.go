package app

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/cooler-keeper/internal/apperror"
)

// NonceSequencer issues transaction nonces for the keeper account. At most
// one nonce may be outstanding at a time; a dropped submission returns its
// nonce for reuse, a confirmed or reverted one consumes it.
type NonceSequencer struct {
	source  NonceSource
	account common.Address

	mu          sync.Mutex
	initialized bool
	next        uint64
	outstanding bool
	issued      uint64
}

// NewNonceSequencer creates a sequencer for the given account.
func NewNonceSequencer(source NonceSource, account common.Address) *NonceSequencer {
	return &NonceSequencer{
		source:  source,
		account: account,
	}
}

// Sync aligns the sequencer with the chain's pending nonce. It fails when
// a nonce is outstanding, the in-flight submission owns the sequence.
func (n *NonceSequencer) Sync(ctx context.Context) error {
	n.mu.Lock()
	outstanding := n.outstanding
	n.mu.Unlock()

	if outstanding {
		return apperror.New(apperror.CodeNonceConflict,
			apperror.WithContext("cannot sync while a nonce is outstanding"))
	}

	pending, err := n.source.PendingNonce(ctx, n.account)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.next = pending
	n.initialized = true
	n.mu.Unlock()

	return nil
}

// Acquire issues the next nonce. It fails while another nonce is
// outstanding or before the first Sync.
func (n *NonceSequencer) Acquire() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.initialized {
		return 0, apperror.New(apperror.CodeInvalidState,
			apperror.WithContext("nonce sequencer not synced"))
	}
	if n.outstanding {
		return 0, apperror.New(apperror.CodeNonceConflict,
			apperror.WithContext("a nonce is already outstanding"))
	}

	n.outstanding = true
	n.issued = n.next
	return n.issued, nil
}

// ReleaseConsumed marks the outstanding nonce as landed on chain and
// advances the sequence past it.
func (n *NonceSequencer) ReleaseConsumed(nonce uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.outstanding || n.issued != nonce {
		return apperror.New(apperror.CodeNonceConflict,
			apperror.WithContext("nonce is not outstanding"))
	}

	n.outstanding = false
	if nonce >= n.next {
		n.next = nonce + 1
	}
	return nil
}

// ReleaseUnused returns the outstanding nonce without consuming it, so the
// next acquisition reuses it.
func (n *NonceSequencer) ReleaseUnused(nonce uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.outstanding || n.issued != nonce {
		return apperror.New(apperror.CodeNonceConflict,
			apperror.WithContext("nonce is not outstanding"))
	}

	n.outstanding = false
	n.next = nonce
	return nil
}

// Outstanding returns the issued nonce while one is in flight.
func (n *NonceSequencer) Outstanding() (uint64, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.outstanding {
		return 0, false
	}
	return n.issued, true
}
