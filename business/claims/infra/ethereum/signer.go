// Package ethereum implements transaction signing and submission for the
// claims context using go-ethereum.
package ethereum

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fd1az/cooler-keeper/internal/apperror"
)

const (
	tracerName = "github.com/fd1az/cooler-keeper/business/claims/infra/ethereum"
	meterName  = "github.com/fd1az/cooler-keeper/business/claims/infra/ethereum"
)

// Signer holds the keeper's key and signs claim transactions for a fixed
// chain. The key never leaves this type.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
	signer  types.Signer
}

// NewSigner parses the hex-encoded private key and binds the signer to the
// given chain id.
func NewSigner(privateKeyHex string, chainID uint64) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("invalid signer private key"))
	}

	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		signer:  types.LatestSignerForChainID(new(big.Int).SetUint64(chainID)),
	}, nil
}

// Address returns the keeper account address.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignTx signs the transaction with the keeper key.
func (s *Signer) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, s.signer, s.key)
	if err != nil {
		return nil, apperror.New(apperror.CodeSigningError,
			apperror.WithCause(err),
			apperror.WithContext("failed to sign transaction"))
	}
	return signed, nil
}
