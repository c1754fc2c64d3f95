// Package errors provides structured, coded error handling for the game engines.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Secret Hitler game errors
	CodeGameInProgress     Code = "GAME_IN_PROGRESS"
	CodeGameNotStarted     Code = "GAME_NOT_STARTED"
	CodeGameEnded          Code = "GAME_ENDED"
	CodeNotEnoughPlayers   Code = "NOT_ENOUGH_PLAYERS"
	CodePlayerLimitReached Code = "PLAYER_LIMIT_REACHED"
	CodeInvalidPolicyType  Code = "INVALID_POLICY_TYPE"
	CodeNotPresidentTurn   Code = "NOT_PRESIDENT_TURN"
	CodeNotChancellorTurn  Code = "NOT_CHANCELLOR_TURN"
	CodeVetoNotAllowed     Code = "VETO_NOT_ALLOWED"
	CodeNoPowerPending     Code = "NO_POWER_PENDING"

	// Game tracker errors
	CodeGameAlreadyRunning Code = "GAME_ALREADY_RUNNING"
	CodeGameNotRunning     Code = "GAME_NOT_RUNNING"

	// Character sheet errors
	CodeGenerationConflict Code = "GENERATION_CONFLICT"
	CodeSheetInvalidFormat Code = "SHEET_INVALID_FORMAT"

	// Vampire session errors
	CodeCreationOnly         Code = "CHARACTER_CREATION_ONLY"
	CodePlayOnly             Code = "PLAY_PHASE_ONLY"
	CodePlayerExists         Code = "PLAYER_EXISTS"
	CodePlayerNotFound       Code = "PLAYER_NOT_FOUND"
	CodeInvalidInteger       Code = "INVALID_INTEGER"
	CodeUnknownAttribute     Code = "UNKNOWN_ATTRIBUTE"
	CodeUnknownDamageType    Code = "UNKNOWN_DAMAGE_TYPE"
	CodeDuplicateEntry       Code = "DUPLICATE_ENTRY"
	CodeEntryNotFound        Code = "ENTRY_NOT_FOUND"
	CodeGenerationNotSet     Code = "GENERATION_NOT_SET"
	CodeGenerationAlreadySet Code = "GENERATION_ALREADY_SET"
	CodeInvalidGeneration    Code = "INVALID_GENERATION"
	CodeXPPurchaseForbidden  Code = "XP_PURCHASE_FORBIDDEN"
	CodeInsufficientXP       Code = "INSUFFICIENT_XP"
	CodeInsufficientResource Code = "INSUFFICIENT_RESOURCE"
	CodeResourceAtMax        Code = "RESOURCE_AT_MAX"
	CodeLevelCapReached      Code = "LEVEL_CAP_REACHED"
	CodePointBudgetExceeded  Code = "POINT_BUDGET_EXCEEDED"
	CodeNothingToUndo        Code = "NOTHING_TO_UNDO"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes for the collaborator
// boundary.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeInvalidPolicyType,
		CodeInvalidInteger,
		CodeUnknownAttribute,
		CodeUnknownDamageType,
		CodeInvalidGeneration,
		CodeDuplicateEntry,
		CodeSheetInvalidFormat,
		CodeGenerationConflict:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow the operation
	case CodeGameInProgress,
		CodeGameNotStarted,
		CodeGameEnded,
		CodeNotEnoughPlayers,
		CodeNotPresidentTurn,
		CodeNotChancellorTurn,
		CodeVetoNotAllowed,
		CodeNoPowerPending,
		CodeGameAlreadyRunning,
		CodeCreationOnly,
		CodePlayOnly,
		CodePlayerExists,
		CodeGenerationNotSet,
		CodeGenerationAlreadySet,
		CodeXPPurchaseForbidden,
		CodeInsufficientXP,
		CodeInsufficientResource,
		CodeResourceAtMax,
		CodeNothingToUndo:
		return codes.FailedPrecondition

	// ResourceExhausted - capacity limits
	case CodePlayerLimitReached,
		CodeLevelCapReached,
		CodePointBudgetExceeded:
		return codes.ResourceExhausted

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeGameNotRunning,
		CodePlayerNotFound,
		CodeEntryNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
