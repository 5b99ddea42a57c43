package blockchain

import (
	"context"
	"fmt"
	"time"

	"github.com/fd1az/cooler-keeper/business/blockchain/app"
	"github.com/fd1az/cooler-keeper/business/blockchain/domain"
	"github.com/fd1az/cooler-keeper/internal/health"
)

// maxBlockAge is how stale the last seen block may be before readiness
// degrades. Roughly ten mainnet block times.
const maxBlockAge = 2 * time.Minute

// HealthChecks returns the readiness checks backed by the chain connection:
// one for the subscription state, one for the age of the last block seen.
func HealthChecks(svc *app.BlockchainService) map[string]health.CheckFunc {
	return map[string]health.CheckFunc{
		"chain_connection": func(ctx context.Context) (bool, string) {
			if state := svc.ConnectionState(); state != domain.StateConnected {
				return false, "connection state " + string(state)
			}
			return true, ""
		},
		"last_block_age": func(ctx context.Context) (bool, string) {
			status := svc.ConnectionStatus()
			if status.LastBlock == 0 {
				return false, "no block received yet"
			}
			if age := time.Since(status.LastUpdate); age > maxBlockAge {
				return false, fmt.Sprintf("last block seen %s ago", age.Round(time.Second))
			}
			return true, ""
		},
	}
}
