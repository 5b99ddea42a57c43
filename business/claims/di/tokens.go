// Package di contains dependency injection tokens for the claims context.
package di

import (
	"github.com/fd1az/cooler-keeper/business/claims/app"
	"github.com/fd1az/cooler-keeper/internal/di"
)

// Public service tokens - exposed to other modules
var (
	OpportunityWatcher = di.NewToken[*app.OpportunityWatcher]("claims.OpportunityWatcher")
)

// Private dependency tokens - internal to claims module
var (
	Signer          = di.NewToken[app.Signer]("claims:signer")
	Submitter       = di.NewToken[app.TransactionSubmitter]("claims:submitter")
	ProfitEstimator = di.NewToken[*app.ProfitEstimator]("claims:profitEstimator")
	ExecutionGate   = di.NewToken[*app.ExecutionGate]("claims:executionGate")
	NonceSequencer  = di.NewToken[*app.NonceSequencer]("claims:nonceSequencer")
)

// Helper functions for type-safe access
func GetOpportunityWatcher(c di.ServiceRegistry) *app.OpportunityWatcher {
	return di.GetToken(c, OpportunityWatcher)
}

func GetSigner(c di.ServiceRegistry) app.Signer {
	return di.GetToken(c, Signer)
}

func GetSubmitter(c di.ServiceRegistry) app.TransactionSubmitter {
	return di.GetToken(c, Submitter)
}

func GetProfitEstimator(c di.ServiceRegistry) *app.ProfitEstimator {
	return di.GetToken(c, ProfitEstimator)
}

func GetExecutionGate(c di.ServiceRegistry) *app.ExecutionGate {
	return di.GetToken(c, ExecutionGate)
}

func GetNonceSequencer(c di.ServiceRegistry) *app.NonceSequencer {
	return di.GetToken(c, NonceSequencer)
}
