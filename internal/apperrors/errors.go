// Package apperrors holds the error taxonomy shared by the live engine,
// the transport and the REST layer.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument  = fmt.Errorf("invalid argument")
	ErrInvalidMessage   = fmt.Errorf("invalid message")
	ErrUnknownRoom      = fmt.Errorf("unknown room")
	ErrAlreadyInSession = fmt.Errorf("already in pk session")
	ErrNotInSession     = fmt.Errorf("no pk session in the required state")
	ErrNotHost          = fmt.Errorf("only the room host can do this")
	ErrNotJoined        = fmt.Errorf("participant has not joined the room")
	ErrRoomClosed       = fmt.Errorf("room is closed")
	ErrTransportLost    = fmt.Errorf("transport lost")
	ErrUnknownGift      = fmt.Errorf("unknown gift")
	ErrNotFound         = fmt.Errorf("not found")
	ErrForbidden        = fmt.Errorf("forbidden")
	ErrUnauthorized     = fmt.Errorf("unauthorized")
)

// Code is the reason code sent to clients in "error" events.
type Code string

const (
	CodeInvalidArgument  Code = "invalid_argument"
	CodeInvalidMessage   Code = "invalid_message"
	CodeUnknownRoom      Code = "unknown_room"
	CodeAlreadyInSession Code = "already_in_session"
	CodeNotInSession     Code = "not_in_session"
	CodeNotHost          Code = "not_host"
	CodeNotJoined        Code = "not_joined"
	CodeRoomClosed       Code = "room_closed"
	CodeTransportLost    Code = "transport_lost"
	CodeUnknownGift      Code = "unknown_gift"
	CodeNotFound         Code = "not_found"
	CodeForbidden        Code = "forbidden"
	CodeUnauthorized     Code = "unauthorized"
	CodeInternal         Code = "internal"
)

var codes = []struct {
	err  error
	code Code
}{
	{ErrInvalidArgument, CodeInvalidArgument},
	{ErrInvalidMessage, CodeInvalidMessage},
	{ErrUnknownRoom, CodeUnknownRoom},
	{ErrAlreadyInSession, CodeAlreadyInSession},
	{ErrNotInSession, CodeNotInSession},
	{ErrNotHost, CodeNotHost},
	{ErrNotJoined, CodeNotJoined},
	{ErrRoomClosed, CodeRoomClosed},
	{ErrTransportLost, CodeTransportLost},
	{ErrUnknownGift, CodeUnknownGift},
	{ErrNotFound, CodeNotFound},
	{ErrForbidden, CodeForbidden},
	{ErrUnauthorized, CodeUnauthorized},
}

// CodeOf classifies err. Unclassified errors map to CodeInternal.
func CodeOf(err error) Code {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// Invalid wraps ErrInvalidMessage with a reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidMessage, fmt.Sprintf(format, args...))
}
