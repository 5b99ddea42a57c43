package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Keeper-specific error codes
const (
	// Blockchain/Ethereum errors
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumSubscribeFailed  Code = "ETHEREUM_SUBSCRIBE_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeBlockNotFound            Code = "BLOCK_NOT_FOUND"
	CodeTransientRead            Code = "TRANSIENT_READ_ERROR"

	// Gas / valuation errors
	CodeGasEstimationFailed    Code = "GAS_ESTIMATION_FAILED"
	CodeEstimationUnavailable  Code = "ESTIMATION_UNAVAILABLE"
	CodePriceFetchFailed       Code = "PRICE_FETCH_FAILED"
	CodeRewardCalculationError Code = "REWARD_CALCULATION_ERROR"

	// Submission errors
	CodeSigningError       Code = "SIGNING_ERROR"
	CodeBroadcastError     Code = "BROADCAST_ERROR"
	CodeTxUnderpriced      Code = "TX_UNDERPRICED"
	CodeTxReverted         Code = "TX_REVERTED"
	CodeTxDropped          Code = "TX_DROPPED"
	CodeSubmissionInFlight Code = "SUBMISSION_IN_FLIGHT"
	CodeWindowNotEligible  Code = "WINDOW_NOT_ELIGIBLE"
	CodeNonceConflict      Code = "NONCE_CONFLICT"

	// Protocol surface errors
	CodeContractCallFailed Code = "CONTRACT_CALL_FAILED"
	CodeLogDecodeFailed    Code = "LOG_DECODE_FAILED"
	CodeLoanNotFound       Code = "LOAN_NOT_FOUND"

	// Cache errors
	CodeCacheMiss    Code = "CACHE_MISS"
	CodeCacheExpired Code = "CACHE_EXPIRED"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
