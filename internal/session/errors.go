package session

import (
	"errors"
	"fmt"

	"placeclient/internal/canvas"
	"placeclient/internal/palette"
	"placeclient/internal/protocol"
)

// ErrClosed is returned by Do once the session loop has exited.
var ErrClosed = errors.New("session closed")

// ErrNoSnapshot is returned when canvas data is requested before the
// snapshot frame arrived.
var ErrNoSnapshot = errors.New("no snapshot received yet")

// TransportError wraps the failure that ended a connection.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// GateViolation describes a command that was not sent because one of its
// preconditions did not hold. It is logged, never returned.
type GateViolation struct {
	Command string
	Gate    string
}

func (e GateViolation) Error() string {
	return fmt.Sprintf("%s held back by %s gate", e.Command, e.Gate)
}

const (
	GateState    = "state"
	GateZoom     = "zoom"
	GateCooldown = "cooldown"
	GateInvalid  = "invalid"
	GateRate     = "rate"
)

// dropReason classifies why an incoming frame was not applied.
func dropReason(err error) string {
	var ie *palette.IndexError
	switch {
	case errors.Is(err, protocol.ErrUnknownCommand), errors.Is(err, protocol.ErrMalformed):
		return "parse"
	case errors.Is(err, canvas.ErrOutOfBounds),
		errors.Is(err, canvas.ErrInvalidColor),
		errors.Is(err, canvas.ErrInvalidRect),
		errors.Is(err, canvas.ErrInvalidSnapshotSize),
		errors.Is(err, canvas.ErrRosterTooLong),
		errors.As(err, &ie):
		return "semantic"
	}
	return "other"
}
