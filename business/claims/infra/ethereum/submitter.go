package ethereum

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"time"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	blockchaindomain "github.com/fd1az/cooler-keeper/business/blockchain/domain"
	"github.com/fd1az/cooler-keeper/business/claims/app"
	"github.com/fd1az/cooler-keeper/business/claims/domain"
	"github.com/fd1az/cooler-keeper/internal/apperror"
	"github.com/fd1az/cooler-keeper/internal/logger"
)

// SubmitterConfig holds the submission policy.
type SubmitterConfig struct {
	SignURL            string        // broadcast endpoint, may be a private relay
	MaxAttempts        int           // total broadcast attempts per cycle
	GasBumpPercent     int64         // gas raise for same-nonce replacements
	ConfirmationBlocks uint64        // depth required to call a receipt final
	PollInterval       time.Duration // receipt polling cadence
	AttemptTimeout     time.Duration // how long one attempt may chase a receipt
}

// DefaultSubmitterConfig returns sensible defaults for the given endpoint.
func DefaultSubmitterConfig(signURL string) SubmitterConfig {
	return SubmitterConfig{
		SignURL:            signURL,
		MaxAttempts:        3,
		GasBumpPercent:     15,
		ConfirmationBlocks: 10,
		PollInterval:       6 * time.Second,
		AttemptTimeout:     3 * time.Minute,
	}
}

// submitterMetrics holds OTEL metric instruments.
type submitterMetrics struct {
	broadcasts metric.Int64Counter
	rebumps    metric.Int64Counter
	outcomes   metric.Int64Counter
}

// Submitter implements the TransactionSubmitter port. It broadcasts via
// the sign endpoint and tracks receipts via the read client, replacing a
// vanished transaction at the same nonce with bumped gas.
type Submitter struct {
	config     SubmitterConfig
	signClient *ethclient.Client
	readClient *ethclient.Client
	signer     app.Signer
	logger     logger.LoggerInterface

	tracer  trace.Tracer
	metrics *submitterMetrics
}

// NewSubmitter dials the sign endpoint and wires the submitter.
func NewSubmitter(cfg SubmitterConfig, readClient *ethclient.Client, signer app.Signer, log logger.LoggerInterface) (*Submitter, error) {
	signClient, err := ethclient.Dial(cfg.SignURL)
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to dial sign endpoint"))
	}

	s := &Submitter{
		config:     cfg,
		signClient: signClient,
		readClient: readClient,
		signer:     signer,
		logger:     log,
		tracer:     otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Submitter) initMetrics() error {
	meter := otel.Meter(meterName)
	m := &submitterMetrics{}
	var err error

	if m.broadcasts, err = meter.Int64Counter("tx_broadcasts_total",
		metric.WithDescription("Transactions put on the wire"),
		metric.WithUnit("{tx}")); err != nil {
		return err
	}
	if m.rebumps, err = meter.Int64Counter("tx_gas_bumps_total",
		metric.WithDescription("Same-nonce replacements with bumped gas"),
		metric.WithUnit("{tx}")); err != nil {
		return err
	}
	if m.outcomes, err = meter.Int64Counter("tx_outcomes_total",
		metric.WithDescription("Terminal submission outcomes"),
		metric.WithUnit("{tx}")); err != nil {
		return err
	}

	s.metrics = m
	return nil
}

// Submit drives one claim transaction to a terminal outcome. Each attempt
// re-runs the preflight, signs, broadcasts, and chases the receipt; a
// transaction that vanishes from the mempool is replaced at the same nonce
// with a higher gas price.
func (s *Submitter) Submit(ctx context.Context, req app.SubmitRequest) (*domain.SubmissionResult, error) {
	ctx, span := s.tracer.Start(ctx, "claims.submit",
		trace.WithAttributes(
			attribute.Int64("window", int64(req.WindowID)),
			attribute.Int64("nonce", int64(req.Nonce)),
		),
	)
	defer span.End()

	gasPrice := blockchaindomain.NewGasPrice(new(big.Int).Set(req.GasPrice))
	var prior *domain.PendingSubmission

	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		if req.Preflight != nil {
			if err := req.Preflight(ctx); err != nil {
				span.AddEvent("preflight_veto")
				s.logger.Info(ctx, "preflight vetoed broadcast",
					"window", req.WindowID, "attempt", attempt, "reason", err.Error())
				s.recordOutcome(ctx, domain.OutcomeAborted)
				return &domain.SubmissionResult{
					Outcome:  domain.OutcomeAborted,
					Attempts: attempt,
				}, nil
			}
		}

		sub := domain.NewPendingSubmission(req.WindowID, req.Nonce, attempt, gasPrice.Wei, req.GasLimit)

		tx := types.NewTransaction(req.Nonce, req.To, big.NewInt(0), req.GasLimit, gasPrice.Wei, req.Calldata)
		signed, err := s.signer.SignTx(tx)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if terr := sub.Transition(domain.SubmissionSigned); terr != nil {
			return nil, terr
		}
		sub.TxHash = signed.Hash()

		if prior != nil {
			_ = prior.Transition(domain.SubmissionSuperseded)
		}

		err = s.signClient.SendTransaction(ctx, signed)
		switch {
		case err == nil, isAlreadyKnown(err):
			// On the wire (or already there from a prior attempt).
		case isUnderpriced(err):
			s.logger.Warn(ctx, "broadcast underpriced, bumping gas",
				"window", req.WindowID,
				"attempt", attempt,
				"gwei", gasPrice.Gwei)
			s.metrics.rebumps.Add(ctx, 1)
			gasPrice = gasPrice.Bump(s.config.GasBumpPercent)
			continue
		case isNonceTooLow(err):
			span.RecordError(err)
			return nil, apperror.New(apperror.CodeNonceConflict,
				apperror.WithCause(err),
				apperror.WithContext("nonce already consumed on chain"))
		default:
			// Broadcast rejected for another reason; retry with the
			// remaining attempts rather than giving up on the window here.
			span.RecordError(err)
			s.logger.Warn(ctx, "broadcast rejected",
				"window", req.WindowID,
				"attempt", attempt,
				"error", err)
			continue
		}

		if terr := sub.Transition(domain.SubmissionBroadcast); terr != nil {
			return nil, terr
		}
		s.metrics.broadcasts.Add(ctx, 1)
		s.logger.Info(ctx, "claim transaction broadcast",
			"window", req.WindowID,
			"tx", signed.Hash().Hex(),
			"nonce", req.Nonce,
			"attempt", attempt,
			"gwei", gasPrice.Gwei)

		receipt, err := s.awaitReceipt(ctx, signed.Hash())
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				span.RecordError(err)
				return nil, err
			}
			// Timed out without a receipt; assume dropped and replace it
			// at the same nonce with more gas.
			_ = sub.Transition(domain.SubmissionDropped)
			prior = sub
			s.logger.Warn(ctx, "transaction missing, replacing with bumped gas",
				"window", req.WindowID,
				"tx", signed.Hash().Hex(),
				"attempt", attempt)
			s.metrics.rebumps.Add(ctx, 1)
			gasPrice = gasPrice.Bump(s.config.GasBumpPercent)
			continue
		}

		if receipt.Status == types.ReceiptStatusFailed {
			_ = sub.Transition(domain.SubmissionReverted)
			span.SetStatus(codes.Error, "reverted")
			s.recordOutcome(ctx, domain.OutcomeReverted)
			return &domain.SubmissionResult{
				Outcome:       domain.OutcomeReverted,
				TxHash:        signed.Hash(),
				Attempts:      attempt,
				GasUsed:       receipt.GasUsed,
				BlockNumber:   receipt.BlockNumber.Uint64(),
				NonceConsumed: true,
			}, nil
		}

		_ = sub.Transition(domain.SubmissionConfirmed)
		span.SetStatus(codes.Ok, "confirmed")
		s.recordOutcome(ctx, domain.OutcomeConfirmed)
		return &domain.SubmissionResult{
			Outcome:       domain.OutcomeConfirmed,
			TxHash:        signed.Hash(),
			Attempts:      attempt,
			GasUsed:       receipt.GasUsed,
			BlockNumber:   receipt.BlockNumber.Uint64(),
			NonceConsumed: true,
		}, nil
	}

	span.SetStatus(codes.Error, "dropped")
	s.recordOutcome(ctx, domain.OutcomeDropped)
	return &domain.SubmissionResult{
		Outcome:  domain.OutcomeDropped,
		Attempts: s.config.MaxAttempts,
	}, nil
}

func (s *Submitter) recordOutcome(ctx context.Context, outcome domain.Outcome) {
	s.metrics.outcomes.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", string(outcome))))
}

// awaitReceipt polls for the receipt and the required confirmation depth.
// It returns an error when the attempt window elapses without a final
// receipt.
func (s *Submitter) awaitReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	deadline := time.NewTimer(s.config.AttemptTimeout)
	defer deadline.Stop()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, apperror.New(apperror.CodeTxDropped,
				apperror.WithContext("no receipt before attempt timeout"))
		case <-ticker.C:
			receipt, err := s.readClient.TransactionReceipt(ctx, txHash)
			if err != nil {
				if errors.Is(err, goethereum.NotFound) {
					continue
				}
				s.logger.Debug(ctx, "receipt poll failed", "error", err)
				continue
			}

			head, err := s.readClient.BlockNumber(ctx)
			if err != nil {
				continue
			}

			mined := receipt.BlockNumber.Uint64()
			if head < mined || head-mined+1 < s.config.ConfirmationBlocks {
				continue
			}

			return receipt, nil
		}
	}
}

func isUnderpriced(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "underpriced") || strings.Contains(msg, "fee too low")
}

func isNonceTooLow(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "nonce too low")
}

func isAlreadyKnown(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already known") || strings.Contains(msg, "known transaction")
}

// Close releases the sign endpoint connection.
func (s *Submitter) Close() error {
	s.signClient.Close()
	return nil
}
