package state

import "errors"

// Messages shown to the user. Every failure of an operation collapses to one of these.
const (
	MsgFetchFailed  = "Failed to load jobs."
	MsgNotFound     = "The requested job could not be found."
	MsgDetailFailed = "An error occurred while loading the job."
	MsgDeleteFailed = "Failed to delete the job."
	MsgCreateFailed = "A problem occurred while registering the job."
)

var (
	ErrClosed           = errors.New("store closed")
	ErrDeleteInProgress = errors.New("delete already in progress")
	ErrNotConfirming    = errors.New("delete was not confirmed")
)

// UserError carries the message for display alongside its cause.
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + " (" + e.Err.Error() + ")"
}

func (e *UserError) Unwrap() error { return e.Err }

// Message returns the user-facing text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Message
	}
	switch {
	case errors.Is(err, ErrDeleteInProgress):
		return "This job is already being deleted."
	case errors.Is(err, ErrNotConfirming):
		return "Please confirm the deletion again."
	}
	return err.Error()
}
