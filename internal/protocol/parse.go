package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	keyPlace    = "PLACE"
	keyClear    = "CLEAR"
	keyUsers    = "USERS"
	keyCooldown = "COOLDOWN"

	lineAuthSuccess = "AUTHENTICATION SUCCESS"
	lineBanned      = "BANNED"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrMalformed      = errors.New("malformed command")
)

// ParseError describes a field that failed to parse.
type ParseError struct {
	Command string
	Field   string
	Value   string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: bad %s %q: %v", e.Command, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrMalformed, e.Err} }

// Parse decodes one text frame. It never fails: frames that match nothing
// come back as Unrecognized.
func Parse(line string) Message {
	switch line {
	case lineAuthSuccess:
		return AuthSuccessEvent{}
	case lineBanned:
		return BannedEvent{}
	}

	keyword, rest, _ := strings.Cut(line, " ")
	var (
		m   Message
		err error
	)
	switch keyword {
	case keyPlace:
		m, err = parsePlace(rest)
	case keyClear:
		m, err = parseClear(rest)
	case keyUsers:
		m = parseUsers(rest)
	case keyCooldown:
		m, err = parseCooldown(rest)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, keyword)
	}
	if err != nil {
		return Unrecognized{Line: line, Err: err}
	}
	return m
}

func fields(command, rest string, n int) ([]string, error) {
	f := strings.Fields(rest)
	if len(f) != n {
		return nil, fmt.Errorf("%w: %s wants %d fields, got %d", ErrMalformed, command, n, len(f))
	}
	return f, nil
}

func parseUint(command, field, value string) (int, error) {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, &ParseError{Command: command, Field: field, Value: value, Err: err}
	}
	return int(n), nil
}

func parseUints(command string, names []string, values []string) ([]int, error) {
	out := make([]int, len(values))
	for i, v := range values {
		n, err := parseUint(command, names[i], v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func parsePlace(rest string) (Message, error) {
	f, err := fields(keyPlace, rest, 4)
	if err != nil {
		return nil, err
	}
	if !validIdentifier(f[0]) {
		return nil, &ParseError{Command: keyPlace, Field: "user", Value: f[0], Err: errors.New("not an identifier")}
	}
	n, err := parseUints(keyPlace, []string{"x", "y", "color"}, f[1:])
	if err != nil {
		return nil, err
	}
	return PlaceEvent{User: f[0], X: n[0], Y: n[1], Color: n[2]}, nil
}

func parseClear(rest string) (Message, error) {
	f, err := fields(keyClear, rest, 4)
	if err != nil {
		return nil, err
	}
	n, err := parseUints(keyClear, []string{"x1", "y1", "x2", "y2"}, f)
	if err != nil {
		return nil, err
	}
	return ClearEvent{X1: n[0], Y1: n[1], X2: n[2], Y2: n[3]}, nil
}

// parseUsers splits on single spaces so that empty entries keep their
// position in the roster.
func parseUsers(rest string) Message {
	if rest == "" {
		return UsersEvent{IDs: []string{}}
	}
	return UsersEvent{IDs: strings.Split(rest, " ")}
}

func parseCooldown(rest string) (Message, error) {
	f, err := fields(keyCooldown, rest, 1)
	if err != nil {
		return nil, err
	}
	ms, err := strconv.ParseUint(f[0], 10, 63)
	if err != nil {
		return nil, &ParseError{Command: keyCooldown, Field: "until", Value: f[0], Err: err}
	}
	return CooldownEvent{UntilMillis: int64(ms)}, nil
}

// validIdentifier accepts word characters only, as user names do.
func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
