package app

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/cooler-keeper/business/protocol/domain"
	"github.com/fd1az/cooler-keeper/internal/logger"
)

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

type fakeFactoryWatcher struct {
	events []domain.LoanEvent
	stream chan domain.LoanEvent
}

func (f *fakeFactoryWatcher) Backfill(ctx context.Context, fromBlock uint64) ([]domain.LoanEvent, error) {
	return f.events, nil
}

func (f *fakeFactoryWatcher) Subscribe(ctx context.Context) (<-chan domain.LoanEvent, error) {
	return f.stream, nil
}

type fakeLoanReader struct {
	states map[string]*LoanState
	reads  int
}

func (f *fakeLoanReader) ReadLoan(ctx context.Context, cooler common.Address, loanID *big.Int) (*LoanState, error) {
	f.reads++
	key := domain.LoanID{Cooler: cooler, ID: loanID}.String()
	state, ok := f.states[key]
	if !ok {
		return &LoanState{Collateral: big.NewInt(0), Expiry: time.Time{}}, nil
	}
	return state, nil
}

type fakeEncoder struct{}

func (f *fakeEncoder) EncodeClaim(batch *domain.ClaimBatch) ([]byte, error) {
	return []byte{0xaa}, nil
}

func (f *fakeEncoder) ContractAddress() common.Address {
	return common.HexToAddress("0xD6A6E8d9e82534bD65821142fcCd91ec9cF31880")
}

func key(cooler common.Address, id int64) string {
	return domain.LoanID{Cooler: cooler, ID: big.NewInt(id)}.String()
}

func newService(t *testing.T, watcher *fakeFactoryWatcher, reader *fakeLoanReader) *ProtocolService {
	t.Helper()
	log := logger.New(testWriter{t}, logger.LevelDebug, "test", nil)
	svc, err := NewProtocolService(watcher, reader, &fakeEncoder{}, log)
	if err != nil {
		t.Fatalf("NewProtocolService() error = %v", err)
	}
	return svc
}

func TestBackfillPopulatesRegistry(t *testing.T) {
	now := time.Now()
	coolerA := common.HexToAddress("0x1")
	coolerB := common.HexToAddress("0x2")

	watcher := &fakeFactoryWatcher{events: []domain.LoanEvent{
		{Type: domain.EventClearRequest, Cooler: coolerA, RequestID: big.NewInt(1), LoanID: big.NewInt(10)},
		{Type: domain.EventClearRequest, Cooler: coolerB, RequestID: big.NewInt(2), LoanID: big.NewInt(20)},
	}}
	reader := &fakeLoanReader{states: map[string]*LoanState{
		key(coolerA, 10): {Collateral: big.NewInt(1e18), Expiry: now.Add(24 * time.Hour)},
		key(coolerB, 20): {Collateral: big.NewInt(2e18), Expiry: now.Add(48 * time.Hour)},
	}}

	svc := newService(t, watcher, reader)
	if err := svc.Backfill(context.Background(), 0); err != nil {
		t.Fatalf("Backfill() error = %v", err)
	}

	if svc.LoanCount() != 2 {
		t.Errorf("LoanCount() = %d, want 2", svc.LoanCount())
	}
}

func TestRepayEventRefreshesLoan(t *testing.T) {
	now := time.Now()
	cooler := common.HexToAddress("0x1")

	watcher := &fakeFactoryWatcher{events: []domain.LoanEvent{
		{Type: domain.EventClearRequest, Cooler: cooler, RequestID: big.NewInt(1), LoanID: big.NewInt(10)},
	}}
	reader := &fakeLoanReader{states: map[string]*LoanState{
		key(cooler, 10): {Collateral: big.NewInt(1e18), Expiry: now.Add(-time.Hour)},
	}}

	svc := newService(t, watcher, reader)
	if err := svc.Backfill(context.Background(), 0); err != nil {
		t.Fatal(err)
	}

	// Full repayment pulls the collateral.
	reader.states[key(cooler, 10)] = &LoanState{Collateral: big.NewInt(0), Expiry: now.Add(-time.Hour)}
	ev := domain.LoanEvent{Type: domain.EventRepayLoan, Cooler: cooler, LoanID: big.NewInt(10)}
	if err := svc.applyEvent(context.Background(), &ev); err != nil {
		t.Fatalf("applyEvent() error = %v", err)
	}

	batch, err := svc.ClaimableBatch(context.Background(), now, decimal.NewFromInt(3000))
	if err != nil {
		t.Fatal(err)
	}
	if !batch.IsEmpty() {
		t.Errorf("batch should be empty after repayment, got %d loans", batch.Len())
	}
}

func TestRefreshUnknownLoanIsIgnored(t *testing.T) {
	svc := newService(t, &fakeFactoryWatcher{}, &fakeLoanReader{states: map[string]*LoanState{}})

	err := svc.RefreshLoan(context.Background(), common.HexToAddress("0x9"), big.NewInt(99))
	if err != nil {
		t.Errorf("RefreshLoan() for unknown loan error = %v, want nil", err)
	}
}

func TestClaimableBatchSelectsAndValues(t *testing.T) {
	now := time.Now()
	expired := common.HexToAddress("0x1")
	healthy := common.HexToAddress("0x2")
	emptied := common.HexToAddress("0x3")

	watcher := &fakeFactoryWatcher{events: []domain.LoanEvent{
		{Type: domain.EventClearRequest, Cooler: expired, RequestID: big.NewInt(1), LoanID: big.NewInt(1)},
		{Type: domain.EventClearRequest, Cooler: healthy, RequestID: big.NewInt(2), LoanID: big.NewInt(2)},
		{Type: domain.EventClearRequest, Cooler: emptied, RequestID: big.NewInt(3), LoanID: big.NewInt(3)},
	}}

	tenDaysAgo := now.Add(-10 * 24 * time.Hour)
	reader := &fakeLoanReader{states: map[string]*LoanState{
		// Fully ramped: reward is min(0.1, 5% of 100) = 0.1 gOHM.
		key(expired, 1): {Collateral: big.NewInt(0).Mul(big.NewInt(100), big.NewInt(1e18)), Expiry: tenDaysAgo},
		key(healthy, 2): {Collateral: big.NewInt(1e18), Expiry: now.Add(24 * time.Hour)},
		key(emptied, 3): {Collateral: big.NewInt(1e18), Expiry: tenDaysAgo},
	}}

	svc := newService(t, watcher, reader)
	if err := svc.Backfill(context.Background(), 0); err != nil {
		t.Fatal(err)
	}

	// Before the scan, the third loan's collateral is claimed elsewhere;
	// the registry only learns this from the re-read.
	reader.states[key(emptied, 3)] = &LoanState{Collateral: big.NewInt(0), Expiry: tenDaysAgo}

	batch, err := svc.ClaimableBatch(context.Background(), now, decimal.NewFromInt(3000))
	if err != nil {
		t.Fatal(err)
	}

	if batch.Len() != 1 {
		t.Fatalf("batch has %d loans, want 1", batch.Len())
	}
	if batch.Coolers[0] != expired {
		t.Errorf("batch cooler = %s, want %s", batch.Coolers[0].Hex(), expired.Hex())
	}
	// 0.1 gOHM at $3000 = $300.
	if !batch.TotalRewardUSD.Equal(decimal.NewFromInt(300)) {
		t.Errorf("TotalRewardUSD = %s, want 300", batch.TotalRewardUSD)
	}
}

func TestWatchAppliesLiveEvents(t *testing.T) {
	now := time.Now()
	cooler := common.HexToAddress("0x1")

	stream := make(chan domain.LoanEvent, 1)
	watcher := &fakeFactoryWatcher{stream: stream}
	reader := &fakeLoanReader{states: map[string]*LoanState{
		key(cooler, 10): {Collateral: big.NewInt(1e18), Expiry: now.Add(24 * time.Hour)},
	}}

	svc := newService(t, watcher, reader)
	if err := svc.Watch(context.Background()); err != nil {
		t.Fatal(err)
	}

	stream <- domain.LoanEvent{
		Type: domain.EventClearRequest, Cooler: cooler,
		RequestID: big.NewInt(1), LoanID: big.NewInt(10),
	}
	close(stream)

	deadline := time.After(2 * time.Second)
	for svc.LoanCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("live event was not applied in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
