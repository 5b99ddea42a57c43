package ethereum

import (
	"context"
	"math/big"
	"time"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/cooler-keeper/business/protocol/app"
	"github.com/fd1az/cooler-keeper/internal/apperror"
	"github.com/fd1az/cooler-keeper/internal/circuitbreaker"
)

// loanRequest mirrors the Cooler.Request tuple.
type loanRequest struct {
	Amount           *big.Int
	Interest         *big.Int
	LoanToCollateral *big.Int
	Duration         *big.Int
	Active           bool
	Requester        common.Address
}

// loanData mirrors the Cooler.Loan tuple returned by getLoan.
type loanData struct {
	Request    loanRequest
	Amount     *big.Int
	Unclaimed  *big.Int
	Collateral *big.Int
	Expiry     *big.Int
	Lender     common.Address
	Recipient  common.Address
	Callback   bool
}

// LoanReader implements the LoanReader port with eth_call against cooler
// escrow contracts.
type LoanReader struct {
	client *ethclient.Client
	cb     *circuitbreaker.CircuitBreaker[[]byte]
	tracer trace.Tracer
}

// NewLoanReader creates a reader over the given client.
func NewLoanReader(client *ethclient.Client) *LoanReader {
	return &LoanReader{
		client: client,
		cb:     circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("loan-reader")),
		tracer: otel.Tracer(tracerName),
	}
}

// ReadLoan fetches the current collateral and expiry of a loan.
func (r *LoanReader) ReadLoan(ctx context.Context, cooler common.Address, loanID *big.Int) (*app.LoanState, error) {
	ctx, span := r.tracer.Start(ctx, "cooler.get_loan",
		trace.WithAttributes(
			attribute.String("cooler", cooler.Hex()),
			attribute.String("loan_id", loanID.String()),
		),
	)
	defer span.End()

	input, err := coolerABI.Pack("getLoan", loanID)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to encode getLoan"))
	}

	output, err := r.cb.Execute(func() ([]byte, error) {
		return r.client.CallContract(ctx, goethereum.CallMsg{
			To:   &cooler,
			Data: input,
		}, nil)
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeTransientRead,
			apperror.WithCause(err),
			apperror.WithContext("getLoan call failed"))
	}

	out, err := coolerABI.Unpack("getLoan", output)
	if err != nil || len(out) == 0 {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to decode getLoan result"))
	}

	loan := abi.ConvertType(out[0], new(loanData)).(*loanData)

	return &app.LoanState{
		Collateral: loan.Collateral,
		Expiry:     time.Unix(loan.Expiry.Int64(), 0).UTC(),
	}, nil
}
