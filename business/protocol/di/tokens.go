// Package di contains dependency injection tokens for the protocol context.
package di

import (
	"github.com/fd1az/cooler-keeper/business/protocol/app"
	"github.com/fd1az/cooler-keeper/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ProtocolService = di.NewToken[*app.ProtocolService]("protocol.ProtocolService")
)

// Private dependency tokens - internal to protocol module
var (
	FactoryWatcher = di.NewToken[app.FactoryWatcher]("protocol:factoryWatcher")
	LoanReader     = di.NewToken[app.LoanReader]("protocol:loanReader")
	ClaimEncoder   = di.NewToken[app.ClaimEncoder]("protocol:claimEncoder")
)

// Helper functions for type-safe access
func GetProtocolService(c di.ServiceRegistry) *app.ProtocolService {
	return di.GetToken(c, ProtocolService)
}

func GetFactoryWatcher(c di.ServiceRegistry) app.FactoryWatcher {
	return di.GetToken(c, FactoryWatcher)
}

func GetLoanReader(c di.ServiceRegistry) app.LoanReader {
	return di.GetToken(c, LoanReader)
}

func GetClaimEncoder(c di.ServiceRegistry) app.ClaimEncoder {
	return di.GetToken(c, ClaimEncoder)
}
