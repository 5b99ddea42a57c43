package ethereum

import (
	"context"
	"math/big"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/cooler-keeper/business/protocol/domain"
	"github.com/fd1az/cooler-keeper/internal/apperror"
	"github.com/fd1az/cooler-keeper/internal/logger"
)

// backfillChunk bounds eth_getLogs ranges so providers do not reject the
// query on busy deployments.
const backfillChunk = 50_000

// FactoryWatcher implements the FactoryWatcher port over the cooler
// factory contract logs.
type FactoryWatcher struct {
	readClient *ethclient.Client // HTTP, used for backfill
	subClient  *ethclient.Client // WS, used for live subscription
	factory    common.Address
	logger     logger.LoggerInterface

	tracer        trace.Tracer
	eventsDecoded metric.Int64Counter
}

// NewFactoryWatcher creates a watcher over the given factory address. The
// subscription client may equal the read client when only one endpoint is
// configured.
func NewFactoryWatcher(readClient, subClient *ethclient.Client, factory common.Address, log logger.LoggerInterface) (*FactoryWatcher, error) {
	meter := otel.Meter(meterName)
	decoded, err := meter.Int64Counter(
		"factory_events_decoded_total",
		metric.WithDescription("Loan lifecycle events decoded from factory logs"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	return &FactoryWatcher{
		readClient:    readClient,
		subClient:     subClient,
		factory:       factory,
		logger:        log,
		tracer:        otel.Tracer(tracerName),
		eventsDecoded: decoded,
	}, nil
}

func (w *FactoryWatcher) topics() [][]common.Hash {
	return [][]common.Hash{{
		coolerFactoryABI.Events["ClearRequest"].ID,
		coolerFactoryABI.Events["RepayLoan"].ID,
		coolerFactoryABI.Events["ExtendLoan"].ID,
		coolerFactoryABI.Events["DefaultLoan"].ID,
	}}
}

// Backfill fetches all lifecycle events from fromBlock to the current head
// in bounded chunks.
func (w *FactoryWatcher) Backfill(ctx context.Context, fromBlock uint64) ([]domain.LoanEvent, error) {
	ctx, span := w.tracer.Start(ctx, "factory.backfill",
		trace.WithAttributes(attribute.Int64("from_block", int64(fromBlock))),
	)
	defer span.End()

	head, err := w.readClient.BlockNumber(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to read chain head"))
	}

	var events []domain.LoanEvent
	for start := fromBlock; start <= head; start += backfillChunk {
		end := start + backfillChunk - 1
		if end > head {
			end = head
		}

		logs, err := w.readClient.FilterLogs(ctx, goethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(start),
			ToBlock:   new(big.Int).SetUint64(end),
			Addresses: []common.Address{w.factory},
			Topics:    w.topics(),
		})
		if err != nil {
			span.RecordError(err)
			return nil, apperror.New(apperror.CodeEthereumRPCError,
				apperror.WithCause(err),
				apperror.WithContext("failed to filter factory logs"))
		}

		for i := range logs {
			event, err := w.decode(logs[i])
			if err != nil {
				w.logger.Warn(ctx, "skipping undecodable factory log",
					"tx", logs[i].TxHash.Hex(), "error", err)
				continue
			}
			events = append(events, *event)
		}
	}

	w.eventsDecoded.Add(ctx, int64(len(events)),
		metric.WithAttributes(attribute.String("phase", "backfill")))

	span.SetAttributes(attribute.Int("events", len(events)))
	w.logger.Info(ctx, "factory backfill complete",
		"from_block", fromBlock,
		"to_block", head,
		"events", len(events))

	return events, nil
}

// Subscribe streams live lifecycle events. The channel closes when the
// context ends or the underlying subscription fails.
func (w *FactoryWatcher) Subscribe(ctx context.Context) (<-chan domain.LoanEvent, error) {
	logs := make(chan types.Log, 64)
	sub, err := w.subClient.SubscribeFilterLogs(ctx, goethereum.FilterQuery{
		Addresses: []common.Address{w.factory},
		Topics:    w.topics(),
	}, logs)
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumSubscribeFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to subscribe to factory logs"))
	}

	events := make(chan domain.LoanEvent, 64)
	go func() {
		defer close(events)
		defer sub.Unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case err := <-sub.Err():
				if err != nil {
					w.logger.Error(ctx, "factory log subscription failed", "error", err)
				}
				return
			case lg := <-logs:
				if lg.Removed {
					continue
				}
				event, err := w.decode(lg)
				if err != nil {
					w.logger.Warn(ctx, "skipping undecodable factory log",
						"tx", lg.TxHash.Hex(), "error", err)
					continue
				}
				w.eventsDecoded.Add(ctx, 1,
					metric.WithAttributes(attribute.String("phase", "live")))

				select {
				case events <- *event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

func (w *FactoryWatcher) decode(lg types.Log) (*domain.LoanEvent, error) {
	if len(lg.Topics) == 0 {
		return nil, apperror.New(apperror.CodeLogDecodeFailed,
			apperror.WithContext("log has no topics"))
	}

	event := domain.LoanEvent{
		BlockNumber: lg.BlockNumber,
		TxHash:      lg.TxHash,
	}

	switch lg.Topics[0] {
	case coolerFactoryABI.Events["ClearRequest"].ID:
		var out struct {
			Cooler common.Address
			ReqID  *big.Int
			LoanID *big.Int
		}
		if err := coolerFactoryABI.UnpackIntoInterface(&out, "ClearRequest", lg.Data); err != nil {
			return nil, apperror.New(apperror.CodeLogDecodeFailed, apperror.WithCause(err))
		}
		event.Type = domain.EventClearRequest
		event.Cooler = out.Cooler
		event.RequestID = out.ReqID
		event.LoanID = out.LoanID

	case coolerFactoryABI.Events["RepayLoan"].ID:
		var out struct {
			Cooler common.Address
			LoanID *big.Int
			Amount *big.Int
		}
		if err := coolerFactoryABI.UnpackIntoInterface(&out, "RepayLoan", lg.Data); err != nil {
			return nil, apperror.New(apperror.CodeLogDecodeFailed, apperror.WithCause(err))
		}
		event.Type = domain.EventRepayLoan
		event.Cooler = out.Cooler
		event.LoanID = out.LoanID

	case coolerFactoryABI.Events["ExtendLoan"].ID:
		var out struct {
			Cooler common.Address
			LoanID *big.Int
			Times  uint8
		}
		if err := coolerFactoryABI.UnpackIntoInterface(&out, "ExtendLoan", lg.Data); err != nil {
			return nil, apperror.New(apperror.CodeLogDecodeFailed, apperror.WithCause(err))
		}
		event.Type = domain.EventExtendLoan
		event.Cooler = out.Cooler
		event.LoanID = out.LoanID

	case coolerFactoryABI.Events["DefaultLoan"].ID:
		var out struct {
			Cooler common.Address
			LoanID *big.Int
			Amount *big.Int
		}
		if err := coolerFactoryABI.UnpackIntoInterface(&out, "DefaultLoan", lg.Data); err != nil {
			return nil, apperror.New(apperror.CodeLogDecodeFailed, apperror.WithCause(err))
		}
		event.Type = domain.EventDefaultLoan
		event.Cooler = out.Cooler
		event.LoanID = out.LoanID

	default:
		return nil, apperror.New(apperror.CodeLogDecodeFailed,
			apperror.WithContext("unknown event topic "+lg.Topics[0].Hex()))
	}

	return &event, nil
}
