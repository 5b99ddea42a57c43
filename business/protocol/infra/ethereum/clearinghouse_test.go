package ethereum

import (
	"bytes"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/cooler-keeper/business/protocol/domain"
	"github.com/fd1az/cooler-keeper/internal/apperror"
)

func testBatch(t *testing.T) *domain.ClaimBatch {
	t.Helper()

	batch := domain.NewClaimBatch(time.Now())
	loanA := domain.NewLoan(common.HexToAddress("0x1"), big.NewInt(1), big.NewInt(10),
		big.NewInt(1e18), time.Now().Add(-time.Hour))
	loanB := domain.NewLoan(common.HexToAddress("0x2"), big.NewInt(2), big.NewInt(20),
		big.NewInt(2e18), time.Now().Add(-time.Hour))
	batch.Add(loanA, decimal.NewFromInt(100))
	batch.Add(loanB, decimal.NewFromInt(200))
	return batch
}

func TestEncodeClaim(t *testing.T) {
	ch := NewClearinghouse(common.HexToAddress("0xD6A6E8d9e82534bD65821142fcCd91ec9cF31880"))
	batch := testBatch(t)

	data, err := ch.EncodeClaim(batch)
	if err != nil {
		t.Fatalf("EncodeClaim() error = %v", err)
	}

	method := clearinghouseABI.Methods["claimDefaulted"]
	if !bytes.Equal(data[:4], method.ID) {
		t.Errorf("selector = %x, want %x", data[:4], method.ID)
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}

	coolers := args[0].([]common.Address)
	loanIDs := args[1].([]*big.Int)
	if len(coolers) != 2 || len(loanIDs) != 2 {
		t.Fatalf("decoded %d coolers, %d loan ids; want 2 each", len(coolers), len(loanIDs))
	}
	if coolers[0] != batch.Coolers[0] || coolers[1] != batch.Coolers[1] {
		t.Errorf("coolers round-trip mismatch: %v", coolers)
	}
	if loanIDs[0].Cmp(big.NewInt(10)) != 0 || loanIDs[1].Cmp(big.NewInt(20)) != 0 {
		t.Errorf("loan ids round-trip mismatch: %v", loanIDs)
	}
}

func TestEncodeClaimEmptyBatch(t *testing.T) {
	ch := NewClearinghouse(common.Address{})

	_, err := ch.EncodeClaim(domain.NewClaimBatch(time.Now()))
	if !apperror.IsCode(err, apperror.CodeInvalidInput) {
		t.Errorf("error = %v, want %s", err, apperror.CodeInvalidInput)
	}
}

func TestEncodeClaimLengthMismatch(t *testing.T) {
	ch := NewClearinghouse(common.Address{})
	batch := testBatch(t)
	batch.LoanIDs = batch.LoanIDs[:1]

	_, err := ch.EncodeClaim(batch)
	if !apperror.IsCode(err, apperror.CodeInvalidInput) {
		t.Errorf("error = %v, want %s", err, apperror.CodeInvalidInput)
	}
}

func TestContractAddress(t *testing.T) {
	addr := common.HexToAddress("0xD6A6E8d9e82534bD65821142fcCd91ec9cF31880")
	if got := NewClearinghouse(addr).ContractAddress(); got != addr {
		t.Errorf("ContractAddress() = %s, want %s", got.Hex(), addr.Hex())
	}
}
