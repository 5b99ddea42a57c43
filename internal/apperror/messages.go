package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Blockchain/Ethereum errors
	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumSubscribeFailed:  "Failed to subscribe to Ethereum events",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeBlockNotFound:            "Block not found",
	CodeTransientRead:            "Transient read failure, will retry",

	// Gas / valuation errors
	CodeGasEstimationFailed:    "Gas estimation failed",
	CodeEstimationUnavailable:  "Gas price estimate unavailable",
	CodePriceFetchFailed:       "Token price fetch failed",
	CodeRewardCalculationError: "Reward calculation failed",

	// Submission errors
	CodeSigningError:       "Transaction signing failed",
	CodeBroadcastError:     "Transaction broadcast rejected",
	CodeTxUnderpriced:      "Transaction underpriced",
	CodeTxReverted:         "Transaction reverted on chain",
	CodeTxDropped:          "Transaction dropped without inclusion",
	CodeSubmissionInFlight: "A submission is already in flight for this window",
	CodeWindowNotEligible:  "Reward window is not eligible",
	CodeNonceConflict:      "Nonce already outstanding",

	// Protocol surface errors
	CodeContractCallFailed: "Smart contract call failed",
	CodeLogDecodeFailed:    "Event log decode failed",
	CodeLoanNotFound:       "Loan not found in registry",

	// Cache errors
	CodeCacheMiss:    "Cache miss",
	CodeCacheExpired: "Cache entry expired",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
