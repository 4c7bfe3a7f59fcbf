package session

import "fmt"

type State int

const (
	Connecting State = iota
	Open
	Authenticating
	Authenticated
	Banned
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Banned:
		return "banned"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}
