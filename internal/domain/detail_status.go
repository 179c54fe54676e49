package domain

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

type DetailState int

const (
	DetailUnparsed DetailState = iota
	DetailRequested
	DetailResolved
)

func (s DetailState) String() string {
	switch s {
	case DetailUnparsed:
		return "unparsed"
	case DetailRequested:
		return "requested"
	case DetailResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

const requestedMarker = "requested"

// DetailStatus tracks whether the remote side has parsed a match. On the wire
// it is the "version" field: null, the literal "requested", or the parser
// version once resolved.
type DetailStatus struct {
	state DetailState
	value string
}

func Unparsed() DetailStatus {
	return DetailStatus{state: DetailUnparsed}
}

func Requested() DetailStatus {
	return DetailStatus{state: DetailRequested}
}

func Resolved(version string) DetailStatus {
	return DetailStatus{state: DetailResolved, value: version}
}

func (d DetailStatus) State() DetailState {
	return d.state
}

func (d DetailStatus) IsResolved() bool {
	return d.state == DetailResolved
}

// Value is the parser version; empty unless resolved.
func (d DetailStatus) Value() string {
	return d.value
}

// Advance returns the more informative of d and next. A resolved status is
// never replaced.
func (d DetailStatus) Advance(next DetailStatus) DetailStatus {
	if d.state == DetailResolved {
		return d
	}
	if next.state > d.state {
		return next
	}
	return d
}

func (d DetailStatus) String() string {
	if d.state == DetailResolved {
		return "resolved(" + d.value + ")"
	}
	return d.state.String()
}

func (d DetailStatus) MarshalJSON() ([]byte, error) {
	switch d.state {
	case DetailUnparsed:
		return []byte("null"), nil
	case DetailRequested:
		return json.Marshal(requestedMarker)
	case DetailResolved:
		return json.Marshal(d.value)
	default:
		return nil, fmt.Errorf("detail status: unknown state %d", d.state)
	}
}

func (d *DetailStatus) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*d = Unparsed()
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("detail status: %w", err)
		}
		switch s {
		case "":
			*d = Unparsed()
		case requestedMarker:
			*d = Requested()
		default:
			*d = Resolved(s)
		}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("detail status: unsupported value %s", trimmed)
	}
	*d = Resolved(n.String())
	return nil
}
