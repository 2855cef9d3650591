package engine

import (
	"errors"
	"fmt"
)

var (
	ErrNotYourTurn     = errors.New("not your turn")
	ErrInvalidPhase    = errors.New("invalid phase")
	ErrIllegalArgument = errors.New("illegal command argument")
	ErrUnknownCommand  = errors.New("unknown command")

	ErrClosed          = errors.New("session closed")
	ErrStaleSnapshot   = errors.New("snapshot version does not match game version")
	ErrSnapshotMissing = errors.New("snapshot not found")
)

// CommandError rejects one command. It never ends the session.
type CommandError struct {
	Kind    error
	Message string
	Command string
}

func (e *CommandError) Error() string {
	if e.Command == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

func (e *CommandError) Unwrap() error {
	return e.Kind
}

// Illegal is what command handlers return when a precondition fails.
func Illegal(format string, args ...any) *CommandError {
	return &CommandError{Kind: ErrIllegalArgument, Message: fmt.Sprintf(format, args...)}
}

func asCommandError(err error, command string) *CommandError {
	var ce *CommandError
	if !errors.As(err, &ce) {
		ce = &CommandError{Kind: ErrIllegalArgument, Message: err.Error()}
	}
	if ce.Command == "" {
		ce.Command = command
	}
	return ce
}
