package ragchat

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request failed validation.
	ErrValidation = errors.New("validation error")

	// ErrConversationExists indicates Create was called with an ID already in use.
	ErrConversationExists = errors.New("conversation already exists")

	// ErrUnknownConversation indicates an operation on a conversation that
	// was never created.
	ErrUnknownConversation = errors.New("unknown conversation")

	// ErrPendingTurnConflict indicates an operation that requires no turn in
	// flight was attempted while one is. Callers should wait or cancel.
	ErrPendingTurnConflict = errors.New("turn already pending")

	// ErrNoPendingTurn indicates a pending-turn mutation with no turn in
	// flight. This is a logic bug in the orchestration layer, not a
	// recoverable runtime condition.
	ErrNoPendingTurn = errors.New("no pending turn")

	// ErrNotReady indicates a turn on a gated conversation was attempted
	// before the document gate became ready.
	ErrNotReady = errors.New("document not ready")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")

	// ErrInvalidCredential indicates the remote service rejected the
	// credential before streaming began. Must not be retried automatically.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrTurnNotFound indicates Cancel was called with an unknown turn ID.
	ErrTurnNotFound = errors.New("turn not found")
)

// FailReason classifies why a turn reached the Failed terminal state.
type FailReason string

const (
	ReasonTransport         FailReason = "transport_failure"
	ReasonTimeout           FailReason = "timeout"
	ReasonCancelled         FailReason = "cancelled"
	ReasonInvalidCredential FailReason = "invalid_credential"
)

// TurnError is the terminal error of a failed turn. It carries a reason
// code and wraps the underlying cause, if any.
type TurnError struct {
	Reason FailReason
	Err    error
}

// Error implements the error interface.
func (e *TurnError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("turn failed: %s", e.Reason)
	}
	return fmt.Sprintf("turn failed: %s: %v", e.Reason, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TurnError) Unwrap() error { return e.Err }
