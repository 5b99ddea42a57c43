// Package ethereum implements the protocol ports against the Cooler Loans
// contracts using go-ethereum.
package ethereum

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	tracerName = "github.com/fd1az/cooler-keeper/business/protocol/infra/ethereum"
	meterName  = "github.com/fd1az/cooler-keeper/business/protocol/infra/ethereum"
)

// CoolerFactoryABI covers the loan lifecycle events the keeper tracks.
const CoolerFactoryABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": false, "internalType": "address", "name": "cooler", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "reqID", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "loanID", "type": "uint256"}
		],
		"name": "ClearRequest",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": false, "internalType": "address", "name": "cooler", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "loanID", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "RepayLoan",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": false, "internalType": "address", "name": "cooler", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "loanID", "type": "uint256"},
			{"indexed": false, "internalType": "uint8", "name": "times", "type": "uint8"}
		],
		"name": "ExtendLoan",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": false, "internalType": "address", "name": "cooler", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "loanID", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "DefaultLoan",
		"type": "event"
	}
]`

// CoolerABI covers getLoan, the only escrow read the keeper needs.
const CoolerABI = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "loanID_", "type": "uint256"}
		],
		"name": "getLoan",
		"outputs": [
			{
				"components": [
					{
						"components": [
							{"internalType": "uint256", "name": "amount", "type": "uint256"},
							{"internalType": "uint256", "name": "interest", "type": "uint256"},
							{"internalType": "uint256", "name": "loanToCollateral", "type": "uint256"},
							{"internalType": "uint256", "name": "duration", "type": "uint256"},
							{"internalType": "bool", "name": "active", "type": "bool"},
							{"internalType": "address", "name": "requester", "type": "address"}
						],
						"internalType": "struct Cooler.Request",
						"name": "request",
						"type": "tuple"
					},
					{"internalType": "uint256", "name": "amount", "type": "uint256"},
					{"internalType": "uint256", "name": "unclaimed", "type": "uint256"},
					{"internalType": "uint256", "name": "collateral", "type": "uint256"},
					{"internalType": "uint256", "name": "expiry", "type": "uint256"},
					{"internalType": "address", "name": "lender", "type": "address"},
					{"internalType": "address", "name": "recipient", "type": "address"},
					{"internalType": "bool", "name": "callback", "type": "bool"}
				],
				"internalType": "struct Cooler.Loan",
				"name": "",
				"type": "tuple"
			}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// ClearinghouseABI covers claimDefaulted, the permissionless claim entry.
const ClearinghouseABI = `[
	{
		"inputs": [
			{"internalType": "address[]", "name": "coolers_", "type": "address[]"},
			{"internalType": "uint256[]", "name": "loans_", "type": "uint256[]"}
		],
		"name": "claimDefaulted",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

var (
	coolerFactoryABI = mustParseABI(CoolerFactoryABI)
	coolerABI        = mustParseABI(CoolerABI)
	clearinghouseABI = mustParseABI(ClearinghouseABI)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("invalid contract ABI: " + err.Error())
	}
	return parsed
}
