package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventType identifies a loan lifecycle event emitted by the factory.
type EventType string

const (
	EventClearRequest EventType = "clear_request"
	EventRepayLoan    EventType = "repay_loan"
	EventExtendLoan   EventType = "extend_loan"
	EventDefaultLoan  EventType = "default_loan"
)

// LoanEvent is a decoded loan lifecycle event.
type LoanEvent struct {
	Type        EventType
	Cooler      common.Address
	RequestID   *big.Int // set for clear_request only
	LoanID      *big.Int
	BlockNumber uint64
	TxHash      common.Hash
}
