// Package app contains application services and port definitions for the protocol context.
package app

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/cooler-keeper/business/protocol/domain"
	"github.com/fd1az/cooler-keeper/internal/logger"
)

const meterName = "github.com/fd1az/cooler-keeper/business/protocol/app"

// protocolMetrics holds OTEL metric instruments.
type protocolMetrics struct {
	loansTracked   metric.Int64Gauge
	eventsApplied  metric.Int64Counter
	loansRefreshed metric.Int64Counter
}

// ProtocolService tracks the full set of cooler loans and values their
// claimable defaults. It is the single source of protocol state for the
// claims context.
type ProtocolService struct {
	watcher FactoryWatcher
	reader  LoanReader
	encoder ClaimEncoder
	logger  logger.LoggerInterface

	mu    sync.RWMutex
	loans map[string]*domain.Loan

	metrics *protocolMetrics
}

// NewProtocolService creates a ProtocolService with the given ports.
func NewProtocolService(watcher FactoryWatcher, reader LoanReader, encoder ClaimEncoder, log logger.LoggerInterface) (*ProtocolService, error) {
	s := &ProtocolService{
		watcher: watcher,
		reader:  reader,
		encoder: encoder,
		logger:  log,
		loans:   make(map[string]*domain.Loan),
	}
	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ProtocolService) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &protocolMetrics{}

	s.metrics.loansTracked, err = meter.Int64Gauge(
		"loans_tracked",
		metric.WithDescription("Loans currently tracked by the registry"),
		metric.WithUnit("{loan}"),
	)
	if err != nil {
		return err
	}

	s.metrics.eventsApplied, err = meter.Int64Counter(
		"loan_events_applied_total",
		metric.WithDescription("Loan lifecycle events applied to the registry"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	s.metrics.loansRefreshed, err = meter.Int64Counter(
		"loans_refreshed_total",
		metric.WithDescription("On-chain loan state refreshes"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Backfill loads all loans created since fromBlock into the registry.
func (s *ProtocolService) Backfill(ctx context.Context, fromBlock uint64) error {
	events, err := s.watcher.Backfill(ctx, fromBlock)
	if err != nil {
		return err
	}

	for i := range events {
		if err := s.applyEvent(ctx, &events[i]); err != nil {
			s.logger.Warn(ctx, "failed to apply backfilled event",
				"type", string(events[i].Type),
				"cooler", events[i].Cooler.Hex(),
				"error", err)
		}
	}

	s.logger.Info(ctx, "loan registry populated", "loans", s.LoanCount())
	return nil
}

// Watch applies live factory events until the context ends. It returns
// once the subscription is established; event handling runs in the
// background.
func (s *ProtocolService) Watch(ctx context.Context) error {
	events, err := s.watcher.Subscribe(ctx)
	if err != nil {
		return err
	}

	go func() {
		for event := range events {
			ev := event
			if err := s.applyEvent(ctx, &ev); err != nil {
				s.logger.Warn(ctx, "failed to apply loan event",
					"type", string(ev.Type),
					"cooler", ev.Cooler.Hex(),
					"error", err)
			}
		}
		s.logger.Warn(ctx, "loan event stream closed")
	}()

	return nil
}

func (s *ProtocolService) applyEvent(ctx context.Context, ev *domain.LoanEvent) error {
	s.metrics.eventsApplied.Add(ctx, 1,
		metric.WithAttributes(attribute.String("type", string(ev.Type))))

	switch ev.Type {
	case domain.EventClearRequest:
		state, err := s.reader.ReadLoan(ctx, ev.Cooler, ev.LoanID)
		if err != nil {
			return err
		}
		loan := domain.NewLoan(ev.Cooler, ev.RequestID, ev.LoanID, state.Collateral, state.Expiry)

		s.mu.Lock()
		s.loans[loan.ID.String()] = loan
		tracked := len(s.loans)
		s.mu.Unlock()

		s.metrics.loansTracked.Record(ctx, int64(tracked))
		s.logger.Info(ctx, "new loan tracked",
			"cooler", ev.Cooler.Hex(),
			"loan_id", ev.LoanID.String(),
			"expiry", state.Expiry)
		return nil

	case domain.EventRepayLoan, domain.EventExtendLoan, domain.EventDefaultLoan:
		return s.RefreshLoan(ctx, ev.Cooler, ev.LoanID)

	default:
		return nil
	}
}

// RefreshLoan re-reads a tracked loan's on-chain state. Unknown loans are
// ignored.
func (s *ProtocolService) RefreshLoan(ctx context.Context, cooler common.Address, loanID *big.Int) error {
	key := domain.LoanID{Cooler: cooler, ID: loanID}.String()

	s.mu.RLock()
	loan, ok := s.loans[key]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	state, err := s.reader.ReadLoan(ctx, loan.ID.Cooler, loan.ID.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	loan.Refresh(state.Collateral, state.Expiry)
	s.mu.Unlock()

	s.metrics.loansRefreshed.Add(ctx, 1)
	return nil
}

// ClaimableBatch refreshes every claimable loan and returns the batch of
// loans worth claiming at the given gOHM price, valued in USD. The batch
// is empty when nothing has claimable value.
func (s *ProtocolService) ClaimableBatch(ctx context.Context, now time.Time, gohmPriceUSD decimal.Decimal) (*domain.ClaimBatch, error) {
	s.mu.RLock()
	candidates := make([]*domain.Loan, 0, len(s.loans))
	for _, loan := range s.loans {
		if loan.IsClaimable(now) {
			candidates = append(candidates, loan)
		}
	}
	s.mu.RUnlock()

	batch := domain.NewClaimBatch(now)
	for _, loan := range candidates {
		// Collateral may have changed since the last event, re-read
		// before valuing the claim.
		state, err := s.reader.ReadLoan(ctx, loan.ID.Cooler, loan.ID.ID)
		if err != nil {
			s.logger.Warn(ctx, "skipping loan with unreadable state",
				"loan", loan.ID.String(), "error", err)
			continue
		}

		s.mu.Lock()
		loan.Refresh(state.Collateral, state.Expiry)
		s.mu.Unlock()
		s.metrics.loansRefreshed.Add(ctx, 1)

		if !loan.IsClaimable(now) {
			continue
		}

		rewardUSD := loan.RewardUSD(now, gohmPriceUSD)
		if rewardUSD.IsPositive() {
			batch.Add(loan, rewardUSD)
		}
	}

	return batch, nil
}

// EncodeClaim builds claimDefaulted calldata for the batch.
func (s *ProtocolService) EncodeClaim(batch *domain.ClaimBatch) ([]byte, error) {
	return s.encoder.EncodeClaim(batch)
}

// ClearinghouseAddress returns the contract the claim call targets.
func (s *ProtocolService) ClearinghouseAddress() common.Address {
	return s.encoder.ContractAddress()
}

// LoanCount returns the number of tracked loans.
func (s *ProtocolService) LoanCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.loans)
}
