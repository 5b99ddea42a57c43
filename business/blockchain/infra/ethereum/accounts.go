package ethereum

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/cooler-keeper/internal/apperror"
)

// AccountReader reads per-account chain state from the shared read client.
type AccountReader struct {
	client *ethclient.Client
}

// NewAccountReader creates an AccountReader over the given client.
func NewAccountReader(client *ethclient.Client) *AccountReader {
	return &AccountReader{client: client}
}

// PendingNonce returns the next nonce for the account, including mempool
// transactions. Used to initialize the nonce sequencer at startup.
func (r *AccountReader) PendingNonce(ctx context.Context, account common.Address) (uint64, error) {
	nonce, err := r.client.PendingNonceAt(ctx, account)
	if err != nil {
		return 0, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch pending nonce"))
	}
	return nonce, nil
}

// Balance returns the account balance in wei.
func (r *AccountReader) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := r.client.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch balance"))
	}
	return balance, nil
}
