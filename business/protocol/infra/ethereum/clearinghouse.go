package ethereum

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/cooler-keeper/business/protocol/domain"
	"github.com/fd1az/cooler-keeper/internal/apperror"
)

// Clearinghouse implements the ClaimEncoder port against the deployed
// clearinghouse contract.
type Clearinghouse struct {
	address common.Address
}

// NewClearinghouse creates an encoder targeting the given address.
func NewClearinghouse(address common.Address) *Clearinghouse {
	return &Clearinghouse{address: address}
}

// EncodeClaim builds claimDefaulted calldata for the batch.
func (c *Clearinghouse) EncodeClaim(batch *domain.ClaimBatch) ([]byte, error) {
	if batch.IsEmpty() {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("empty claim batch"))
	}
	if len(batch.Coolers) != len(batch.LoanIDs) {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("coolers and loan ids length mismatch"))
	}

	data, err := clearinghouseABI.Pack("claimDefaulted", batch.Coolers, batch.LoanIDs)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to encode claimDefaulted"))
	}
	return data, nil
}

// ContractAddress returns the clearinghouse address.
func (c *Clearinghouse) ContractAddress() common.Address {
	return c.address
}
