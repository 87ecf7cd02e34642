package service

import (
	"errors"
	"fmt"
)

// Stable error codes surfaced across the module boundary. The UI keys
// specific messages off these, so they must not change.
const (
	// Validation
	CodeInvalidAmount     = "INVALID_AMOUNT"
	CodeBelowMinimum      = "BELOW_MINIMUM"
	CodeInvalidDifficulty = "INVALID_DIFFICULTY"

	// State conflict
	CodeAlreadySettled   = "ALREADY_SETTLED"
	CodeAlreadyJoined    = "ALREADY_JOINED"
	CodeAlreadyCompleted = "ALREADY_COMPLETED"
	CodeAlreadySubmitted = "ALREADY_SUBMITTED"
	CodeNotPending       = "NOT_PENDING"
	CodeNotOpen          = "NOT_OPEN"
	CodeNotActive        = "NOT_ACTIVE"

	// Resource
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeTournamentFull    = "TOURNAMENT_FULL"
	CodeNotParticipant    = "NOT_PARTICIPANT"
	CodeNotFound          = "NOT_FOUND"

	// Security denial
	CodeUserBlocked           = "USER_BLOCKED"
	CodeDailyLimitReached     = "DAILY_LIMIT_REACHED"
	CodeHourlyLimitReached    = "HOURLY_LIMIT_REACHED"
	CodeSessionSpacing        = "SESSION_SPACING"
	CodeSuspiciousActivity    = "SUSPICIOUS_ACTIVITY"
	CodeHighWinRate           = "HIGH_WIN_RATE"
	CodeDifficultyRestriction = "DIFFICULTY_RESTRICTION"
	CodeLevelRestriction      = "LEVEL_RESTRICTION"
	CodeRapidAnswers          = "RAPID_ANSWERS"

	// Infrastructure
	CodeInternalError = "INTERNAL_ERROR"
)

// Error is a domain error with a stable code. Every public operation returns
// either nil or an error whose chain contains exactly one of these; anything
// else crossing the module boundary is an unexpected storage fault.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError creates a coded domain error.
func NewError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorCode extracts the domain code from an error chain, or "" if the error
// is not a domain error.
func ErrorCode(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsCode reports whether err carries the given domain code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// AsError returns the domain error in err's chain, or nil.
func AsError(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return nil
}
