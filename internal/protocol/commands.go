package protocol

import (
	"fmt"
	"strings"
)

// Command is a client to server command line.
type Command interface {
	// Name is the command keyword.
	Name() string
	Encode() string
}

type AuthCommand struct{ Token string }

type PlaceCommand struct{ X, Y, Color int }

type ClearCommand struct{ X1, Y1, X2, Y2 int }

type BanCommand struct{ User string }

type SetCooldownCommand struct{ Seconds uint }

type PingCommand struct{}

func (AuthCommand) Name() string        { return "AUTH" }
func (PlaceCommand) Name() string       { return keyPlace }
func (ClearCommand) Name() string       { return keyClear }
func (BanCommand) Name() string         { return "BAN" }
func (SetCooldownCommand) Name() string { return "SETCOOLDOWN" }
func (PingCommand) Name() string        { return "PING" }

func (c AuthCommand) Encode() string { return "AUTH " + c.Token }

func (c PlaceCommand) Encode() string {
	return fmt.Sprintf("PLACE %d %d %d", c.X, c.Y, c.Color)
}

func (c ClearCommand) Encode() string {
	return fmt.Sprintf("CLEAR %d %d %d %d", c.X1, c.Y1, c.X2, c.Y2)
}

func (c BanCommand) Encode() string { return "BAN " + c.User }

func (c SetCooldownCommand) Encode() string {
	return fmt.Sprintf("SETCOOLDOWN %d", c.Seconds)
}

func (PingCommand) Encode() string { return "PING" }

// Validate rejects commands that cannot be expressed in the grammar. It does
// not check canvas bounds; the server owns those.
func Validate(c Command) error {
	switch c := c.(type) {
	case AuthCommand:
		if !singleToken(c.Token) {
			return fmt.Errorf("%w: AUTH token must be one non-empty token", ErrMalformed)
		}
	case PlaceCommand:
		if c.X < 0 || c.Y < 0 || c.Color < 0 {
			return fmt.Errorf("%w: PLACE %d %d %d has negative fields", ErrMalformed, c.X, c.Y, c.Color)
		}
	case ClearCommand:
		if c.X1 < 0 || c.Y1 < 0 || c.X2 < 0 || c.Y2 < 0 {
			return fmt.Errorf("%w: CLEAR has negative corners", ErrMalformed)
		}
		if c.X2 < c.X1 || c.Y2 < c.Y1 {
			return fmt.Errorf("%w: CLEAR rectangle is inverted", ErrMalformed)
		}
	case BanCommand:
		if !singleToken(c.User) {
			return fmt.Errorf("%w: BAN user must be one non-empty token", ErrMalformed)
		}
	}
	return nil
}

func singleToken(s string) bool {
	return s != "" && !strings.ContainsAny(s, " \t\r\n")
}
