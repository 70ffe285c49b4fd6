package engine

import (
	"errors"
	"fmt"

	"github.com/sieve-chat/sieve/automod/event"
)

var (
	ErrValidation       = errors.New("invalid request")
	ErrPermissionDenied = errors.New("permission denied")
	ErrActionFailed     = errors.New("platform action failed")
	ErrPersistence      = errors.New("setting not saved")
)

// Malformed command input. Message is shown to the invoking member as-is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type PermissionError struct {
	Actor    event.UserID
	Required event.Capability
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s: %s lacks %s", ErrPermissionDenied, e.Actor, e.Required)
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// Wraps a failure reported by the chat platform while performing an action.
type ActionError struct {
	// One of the platform verbs: "delete", "kick", "ban", "timeout", "purge", "notify"
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrActionFailed, e.Action, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func (e *ActionError) Is(target error) bool {
	return target == ErrActionFailed
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Renders an error from the command pipeline as the text shown to the invoking member.
func UserMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	if errors.Is(err, ErrPermissionDenied) {
		return "You do not have permission to use this command!"
	}
	var ae *ActionError
	if errors.As(err, &ae) {
		switch ae.Action {
		case "purge":
			return "I was unable to purge messages."
		case "kick", "ban", "timeout":
			return fmt.Sprintf("I was unable to %s the user.", ae.Action)
		default:
			return "I was unable to complete that action."
		}
	}
	if errors.Is(err, ErrPersistence) {
		return "There was an error saving the setting."
	}
	return "Something went wrong while running that command."
}
