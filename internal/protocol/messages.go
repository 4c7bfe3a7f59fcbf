// Package protocol implements the line based canvas wire grammar.
//
// Server to client text frames parse into one of the Message types below;
// client to server commands are Command values rendered with Encode.
package protocol

// Message is a decoded server to client text frame.
type Message interface{ isMessage() }

type PlaceEvent struct {
	User  string
	X, Y  int
	Color int
}

type ClearEvent struct {
	X1, Y1, X2, Y2 int
}

// UsersEvent carries the editor of every cell, aligned to x + width*y. Empty
// entries mean the cell has no recorded editor.
type UsersEvent struct {
	IDs []string
}

// CooldownEvent carries the epoch millisecond at which placing is allowed
// again.
type CooldownEvent struct {
	UntilMillis int64
}

type AuthSuccessEvent struct{}

type BannedEvent struct{}

// Unrecognized is a frame that matched no command or had malformed fields.
type Unrecognized struct {
	Line string
	Err  error
}

func (PlaceEvent) isMessage()       {}
func (ClearEvent) isMessage()       {}
func (UsersEvent) isMessage()       {}
func (CooldownEvent) isMessage()    {}
func (AuthSuccessEvent) isMessage() {}
func (BannedEvent) isMessage()      {}
func (Unrecognized) isMessage()     {}

// Kind names a message for logs and metrics.
func Kind(m Message) string {
	switch m.(type) {
	case PlaceEvent:
		return "place"
	case ClearEvent:
		return "clear"
	case UsersEvent:
		return "users"
	case CooldownEvent:
		return "cooldown"
	case AuthSuccessEvent:
		return "auth_success"
	case BannedEvent:
		return "banned"
	default:
		return "unrecognized"
	}
}
