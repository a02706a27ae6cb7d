package types

import (
	"errors"

	errorsmod "cosmossdk.io/errors"
)

// ModuleName is the error codespace for the settlement engine.
const ModuleName = "settlement"

// Settlement engine sentinel errors. Codes are stable; never renumber.
var (
	// Validation errors
	ErrInvalidInput       = errorsmod.Register(ModuleName, 2, "invalid input")
	ErrInvalidConfidence  = errorsmod.Register(ModuleName, 3, "reading confidence must be positive")
	ErrDeviationTooLarge  = errorsmod.Register(ModuleName, 4, "reading deviates too far from previous value")
	ErrBadSignature       = errorsmod.Register(ModuleName, 5, "reading signature verification failed")
	ErrNonceReplay        = errorsmod.Register(ModuleName, 6, "reading nonce not strictly increasing")
	ErrPremiumTooLow      = errorsmod.Register(ModuleName, 7, "premium amount below minimum")
	ErrCoverageExceedsMax = errorsmod.Register(ModuleName, 8, "coverage amount exceeds maximum")
	ErrZeroPayout         = errorsmod.Register(ModuleName, 9, "computed payout does not exceed deductible")

	// Authorization errors
	ErrUnauthorized = errorsmod.Register(ModuleName, 10, "caller lacks required authority")

	// State errors
	ErrInvalidState         = errorsmod.Register(ModuleName, 11, "operation invalid for current state")
	ErrOracleExists         = errorsmod.Register(ModuleName, 12, "oracle already registered")
	ErrOracleNotFound       = errorsmod.Register(ModuleName, 13, "oracle not found")
	ErrRegistryFull         = errorsmod.Register(ModuleName, 14, "oracle registry at capacity")
	ErrUnsupportedType      = errorsmod.Register(ModuleName, 15, "oracle type not supported by this registry")
	ErrCircuitBreakerActive = errorsmod.Register(ModuleName, 16, "oracle circuit breaker is active")
	ErrPolicyNotFound       = errorsmod.Register(ModuleName, 17, "policy not found")
	ErrPolicyNotActive      = errorsmod.Register(ModuleName, 18, "policy not active")
	ErrPolicyExpired        = errorsmod.Register(ModuleName, 19, "policy expired")
	ErrPolicyStoreFull      = errorsmod.Register(ModuleName, 20, "policy store at capacity")
	ErrWaitingPeriod        = errorsmod.Register(ModuleName, 21, "policy waiting period not elapsed")
	ErrTriggerNotMet        = errorsmod.Register(ModuleName, 22, "trigger condition not met")
	ErrPayoutNotFound       = errorsmod.Register(ModuleName, 23, "pending payout not found")
	ErrPayoutExpired        = errorsmod.Register(ModuleName, 24, "pending payout expired")
	ErrQueueFull            = errorsmod.Register(ModuleName, 25, "payout queue at capacity")
	ErrPaused               = errorsmod.Register(ModuleName, 26, "engine is paused")
	ErrNotInitialized       = errorsmod.Register(ModuleName, 27, "treasury not initialized")

	// Staleness errors
	ErrStaleReading   = errorsmod.Register(ModuleName, 30, "reading timestamp too old")
	ErrStaleConsensus = errorsmod.Register(ModuleName, 31, "consensus data too old")

	// Consensus errors
	ErrInsufficientOracles = errorsmod.Register(ModuleName, 32, "insufficient healthy oracle data for consensus")

	// Solvency errors
	ErrInsufficientTreasury   = errorsmod.Register(ModuleName, 33, "insufficient treasury balance")
	ErrReserveRatioViolation  = errorsmod.Register(ModuleName, 34, "withdrawal exceeds available liquidity")
	ErrSolvencyCheckFailed    = errorsmod.Register(ModuleName, 35, "treasury cannot cover additional exposure")
	ErrInvalidReserveRatio    = errorsmod.Register(ModuleName, 36, "reserve ratio outside permitted bounds")
	ErrTransferFailed         = errorsmod.Register(ModuleName, 37, "value transfer failed")

	// Overflow errors
	ErrOverflow = errorsmod.Register(ModuleName, 40, "arithmetic bound exceeded")
)

// ErrorClass is the coarse taxonomy bucket an error belongs to.
type ErrorClass string

const (
	ClassValidation    ErrorClass = "validation"
	ClassAuthorization ErrorClass = "authorization"
	ClassState         ErrorClass = "state"
	ClassStaleness     ErrorClass = "staleness"
	ClassConsensus     ErrorClass = "consensus"
	ClassSolvency      ErrorClass = "solvency"
	ClassOverflow      ErrorClass = "overflow"
	ClassInternal      ErrorClass = "internal"
)

var errorClasses = map[*errorsmod.Error]ErrorClass{
	ErrInvalidInput:       ClassValidation,
	ErrInvalidConfidence:  ClassValidation,
	ErrDeviationTooLarge:  ClassValidation,
	ErrBadSignature:       ClassValidation,
	ErrNonceReplay:        ClassValidation,
	ErrPremiumTooLow:      ClassValidation,
	ErrCoverageExceedsMax: ClassValidation,
	ErrZeroPayout:         ClassValidation,

	ErrUnauthorized: ClassAuthorization,

	ErrInvalidState:         ClassState,
	ErrOracleExists:         ClassState,
	ErrOracleNotFound:       ClassState,
	ErrRegistryFull:         ClassState,
	ErrUnsupportedType:      ClassState,
	ErrCircuitBreakerActive: ClassState,
	ErrPolicyNotFound:       ClassState,
	ErrPolicyNotActive:      ClassState,
	ErrPolicyExpired:        ClassState,
	ErrPolicyStoreFull:      ClassState,
	ErrWaitingPeriod:        ClassState,
	ErrTriggerNotMet:        ClassState,
	ErrPayoutNotFound:       ClassState,
	ErrPayoutExpired:        ClassState,
	ErrQueueFull:            ClassState,
	ErrPaused:               ClassState,
	ErrNotInitialized:       ClassState,

	ErrStaleReading:   ClassStaleness,
	ErrStaleConsensus: ClassStaleness,

	ErrInsufficientOracles: ClassConsensus,

	ErrInsufficientTreasury:  ClassSolvency,
	ErrReserveRatioViolation: ClassSolvency,
	ErrSolvencyCheckFailed:   ClassSolvency,
	ErrInvalidReserveRatio:   ClassSolvency,
	ErrTransferFailed:        ClassSolvency,

	ErrOverflow: ClassOverflow,
}

// ClassOf maps an error to its taxonomy class, unwrapping as needed.
func ClassOf(err error) ErrorClass {
	for sentinel, class := range errorClasses {
		if errors.Is(err, sentinel) {
			return class
		}
	}
	return ClassInternal
}
