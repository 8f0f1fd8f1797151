package errors

import (
	"errors"
)

// Sentinel errors for different categories
var (
	// ErrConfirmationRequired - a destructive action is parked awaiting explicit user approval
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrConfirmationPending - a confirmation is already outstanding for this session
	ErrConfirmationPending = errors.New("confirmation already pending")

	// ErrTurnInFlight - a conversation turn is already being processed for this session
	ErrTurnInFlight = errors.New("turn already in flight")

	// ErrNotFound - a plan entity referenced by id does not exist
	ErrNotFound = errors.New("not found")

	// ErrUnknownAction - the reasoning service proposed an action type this core does not dispatch
	ErrUnknownAction = errors.New("unknown action type")

	// ErrInvalidInput - malformed action payload or request
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidModelOutput - model returned malformed structured output
	ErrInvalidModelOutput = errors.New("invalid model output")

	// ErrTransient - transient error (network, rate limit); safe to retry
	ErrTransient = errors.New("transient error")

	// ErrInternal - internal error
	ErrInternal = errors.New("internal error")
)
