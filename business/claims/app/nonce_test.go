package app

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/cooler-keeper/internal/apperror"
)

type fakeNonceSource struct {
	pending uint64
	err     error
	calls   int
}

func (f *fakeNonceSource) PendingNonce(ctx context.Context, account common.Address) (uint64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.pending, nil
}

func newSyncedSequencer(t *testing.T, pending uint64) *NonceSequencer {
	t.Helper()
	seq := NewNonceSequencer(&fakeNonceSource{pending: pending}, common.Address{})
	if err := seq.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	return seq
}

func TestSequencerRequiresSync(t *testing.T) {
	seq := NewNonceSequencer(&fakeNonceSource{pending: 5}, common.Address{})
	if _, err := seq.Acquire(); err == nil {
		t.Error("Acquire before Sync should fail")
	}
}

func TestSequencerSingleOutstanding(t *testing.T) {
	seq := newSyncedSequencer(t, 7)

	nonce, err := seq.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if nonce != 7 {
		t.Errorf("Acquire() = %d, want 7", nonce)
	}

	if _, err := seq.Acquire(); !apperror.IsCode(err, apperror.CodeNonceConflict) {
		t.Errorf("second Acquire error = %v, want nonce conflict", err)
	}
}

func TestSequencerConsumedAdvances(t *testing.T) {
	seq := newSyncedSequencer(t, 7)

	nonce, _ := seq.Acquire()
	if err := seq.ReleaseConsumed(nonce); err != nil {
		t.Fatalf("ReleaseConsumed() error = %v", err)
	}

	next, err := seq.Acquire()
	if err != nil {
		t.Fatalf("Acquire() after consume error = %v", err)
	}
	if next != nonce+1 {
		t.Errorf("next nonce = %d, want %d", next, nonce+1)
	}
}

func TestSequencerUnusedIsReissued(t *testing.T) {
	seq := newSyncedSequencer(t, 7)

	nonce, _ := seq.Acquire()
	if err := seq.ReleaseUnused(nonce); err != nil {
		t.Fatalf("ReleaseUnused() error = %v", err)
	}

	again, err := seq.Acquire()
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	if again != nonce {
		t.Errorf("reissued nonce = %d, want %d", again, nonce)
	}
}

func TestSequencerReleaseWrongNonce(t *testing.T) {
	seq := newSyncedSequencer(t, 7)
	seq.Acquire()

	if err := seq.ReleaseConsumed(99); err == nil {
		t.Error("ReleaseConsumed with wrong nonce should fail")
	}
	if err := seq.ReleaseUnused(99); err == nil {
		t.Error("ReleaseUnused with wrong nonce should fail")
	}
}

func TestSequencerSyncBlockedWhileOutstanding(t *testing.T) {
	seq := newSyncedSequencer(t, 7)
	seq.Acquire()

	err := seq.Sync(context.Background())
	if !apperror.IsCode(err, apperror.CodeNonceConflict) {
		t.Errorf("Sync while outstanding error = %v, want nonce conflict", err)
	}
}

func TestSequencerSyncPropagatesSourceError(t *testing.T) {
	seq := NewNonceSequencer(&fakeNonceSource{err: errors.New("rpc down")}, common.Address{})
	if err := seq.Sync(context.Background()); err == nil {
		t.Error("Sync should propagate source errors")
	}
}

func TestSequencerOutstanding(t *testing.T) {
	seq := newSyncedSequencer(t, 3)

	if _, out := seq.Outstanding(); out {
		t.Error("no nonce should be outstanding after sync")
	}

	nonce, _ := seq.Acquire()
	got, out := seq.Outstanding()
	if !out || got != nonce {
		t.Errorf("Outstanding() = %d, %v; want %d, true", got, out, nonce)
	}
}
