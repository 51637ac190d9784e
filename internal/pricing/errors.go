package pricing

import (
	"errors"
	"fmt"
)

// Kind classifies a scoring failure and decides what the caller sees:
// InvalidInput rejects the request outright, Computation produces the
// degraded fallback result, Configuration is fatal at construction.
type Kind int

const (
	KindInvalidInput Kind = iota
	KindComputation
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindComputation:
		return "computation"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error is a structured scoring error with a stable code.
type Error struct {
	Kind    Kind   `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s (field: %s)", e.Kind, e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Code, e.Message)
}

// Error codes
const (
	ErrCodeBadStayDate       = "BAD_STAY_DATE"
	ErrCodeBadQuoteTime      = "BAD_QUOTE_TIME"
	ErrCodeNegativeLeadTime  = "NEGATIVE_LEAD_TIME"
	ErrCodeBadLengthOfStay   = "BAD_LENGTH_OF_STAY"
	ErrCodeBadSeason         = "BAD_SEASON"
	ErrCodeBadDayOfWeek      = "BAD_DAY_OF_WEEK"
	ErrCodeOccupancyDivZero  = "OCCUPANCY_DIV_ZERO"
	ErrCodeNonFinitePrice    = "NON_FINITE_PRICE"
	ErrCodePanic             = "PANIC"
	ErrCodeMissingBasePrice  = "MISSING_BASE_PRICE"
	ErrCodeBadFactorTable    = "BAD_FACTOR_TABLE"
)

func newInvalidInput(code, field, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

func newComputationError(code, format string, args ...any) *Error {
	return &Error{Kind: KindComputation, Code: code, Message: fmt.Sprintf(format, args...)}
}

func newConfigurationError(code, format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsInvalidInput reports whether err is a request rejection.
func IsInvalidInput(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindInvalidInput
}

// AsError extracts the structured error, wrapping foreign errors as
// computation failures so the fallback path always has a cause.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newComputationError("UNEXPECTED", "%v", err)
}
