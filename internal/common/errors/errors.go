package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Webhook transport / verification failures. Never retried by us; the
	// provider may retry on its own schedule.
	ErrCodeSignatureInvalid ErrorCode = "SIGNATURE_INVALID"
	ErrCodePayloadMalformed ErrorCode = "PAYLOAD_MALFORMED"

	// Transition failures. The event is not acknowledged, so the provider
	// redelivers it; the condition may resolve in the meantime.
	ErrCodeCustomerUnresolved        ErrorCode = "CUSTOMER_UNRESOLVED"
	ErrCodeConcurrentUpdateExhausted ErrorCode = "CONCURRENT_UPDATE_EXHAUSTED"
	ErrCodeSerializationTimeout      ErrorCode = "SERIALIZATION_TIMEOUT"

	// Programming-contract violation on the aggregate counters. Fatal to the
	// triggering request; the failed apply is never committed.
	ErrCodeAggregateInvariantViolation ErrorCode = "AGGREGATE_INVARIANT_VIOLATION"

	ErrCodeMembershipNotFound ErrorCode = "MEMBERSHIP_NOT_FOUND"
	ErrCodeContentNotFound    ErrorCode = "CONTENT_NOT_FOUND"
	ErrCodeModelNotFound      ErrorCode = "MODEL_NOT_FOUND"
	ErrCodePremiumRequired    ErrorCode = "PREMIUM_REQUIRED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// AsStandardError unwraps err into a *StandardError if possible.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsCode reports whether err is a StandardError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

// IsRetryable reports whether err should be surfaced as retryable to the
// event provider. Unknown error shapes are treated as retryable, since a
// transient infrastructure failure must not cause a lost event.
func IsRetryable(err error) bool {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr.Retryable
	}
	return true
}

// NewSignatureInvalidError creates a non-retryable verification error.
func NewSignatureInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSignatureInvalid,
		Message:   "Webhook signature verification failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPayloadMalformedError creates a non-retryable parse error for a payload
// that already passed signature verification.
func NewPayloadMalformedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePayloadMalformed,
		Message:   "Webhook payload could not be parsed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCustomerUnresolvedError creates a retryable transition error for an
// event whose customer reference has no local user. Usually a
// provisioning-order race: the webhook arrived before the linkage was stored.
func NewCustomerUnresolvedError(customerID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCustomerUnresolved,
		Message:   "No local user linked to billing customer",
		Details:   fmt.Sprintf("customerId: %s", customerID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewConcurrentUpdateExhaustedError creates a retryable transition error for
// a compare-and-swap loop that ran out of attempts.
func NewConcurrentUpdateExhaustedError(userID string, attempts int) *StandardError {
	return &StandardError{
		Code:      ErrCodeConcurrentUpdateExhausted,
		Message:   "Membership update lost too many concurrent races",
		Details:   fmt.Sprintf("userId: %s, attempts: %d", userID, attempts),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSerializationTimeoutError creates a retryable error for an event that
// could not acquire its customer's processing slot within the bounded wait.
func NewSerializationTimeoutError(customerID string, wait time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeSerializationTimeout,
		Message:   "Timed out waiting for customer event slot",
		Details:   fmt.Sprintf("customerId: %s, wait: %s", customerID, wait),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAggregateInvariantViolationError creates a non-retryable error for a
// counter delta that would break contentCount >= premiumContentCount >= 0.
// It signals a caller bug, not transient state.
func NewAggregateInvariantViolationError(modelID string, totalDelta, premiumDelta int) *StandardError {
	return &StandardError{
		Code:      ErrCodeAggregateInvariantViolation,
		Message:   "Counter delta would violate aggregate invariant",
		Details:   fmt.Sprintf("modelId: %s, totalDelta: %d, premiumDelta: %d", modelID, totalDelta, premiumDelta),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMembershipNotFoundError creates a non-retryable lookup error.
func NewMembershipNotFoundError(userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMembershipNotFound,
		Message:   "Membership record not found",
		Details:   fmt.Sprintf("userId: %s", userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewContentNotFoundError creates a non-retryable lookup error.
func NewContentNotFoundError(contentID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeContentNotFound,
		Message:   "Content item not found",
		Details:   fmt.Sprintf("contentId: %s", contentID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelNotFoundError creates a non-retryable lookup error.
func NewModelNotFoundError(modelID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelNotFound,
		Message:   "Model not found",
		Details:   fmt.Sprintf("modelId: %s", modelID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPremiumRequiredError creates the generic upgrade-required error shown
// to non-entitled callers. It carries no internal detail.
func NewPremiumRequiredError() *StandardError {
	return &StandardError{
		Code:      ErrCodePremiumRequired,
		Message:   "Premium membership required to view this content",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
