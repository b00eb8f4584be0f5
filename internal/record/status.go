package record

import (
	"encoding"
	"encoding/json"
	"fmt"
)

// PathStatus is the rotation status of one learning path. Exactly one of a
// user's three paths is Active at any time; the other two are Preparing.
type PathStatus int

const (
	StatusActive    PathStatus = iota + 1 // Currently being drawn from.
	StatusPreparing                       // Queue being pre-computed.
)

var (
	statusNames = [...]string{
		StatusActive:    "active",
		StatusPreparing: "preparing",
	}
	statusByName = map[string]PathStatus{
		"active":    StatusActive,
		"preparing": StatusPreparing,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = PathStatus(0)
	_ json.Marshaler           = PathStatus(0)
	_ json.Unmarshaler         = (*PathStatus)(nil)
	_ encoding.TextMarshaler   = PathStatus(0)
	_ encoding.TextUnmarshaler = (*PathStatus)(nil)
)

// IsValid reports whether s is a known status.
func (s PathStatus) IsValid() bool {
	return s == StatusActive || s == StatusPreparing
}

// String returns "active" or "preparing". For invalid values it returns
// "PathStatus(n)".
func (s PathStatus) String() string {
	if s.IsValid() {
		return statusNames[s]
	}
	return fmt.Sprintf("PathStatus(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s PathStatus) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, int(s))
	}
	return []byte(statusNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *PathStatus) UnmarshalText(text []byte) error {
	v, ok := statusByName[string(text)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, text)
	}
	*s = v
	return nil
}

// MarshalJSON implements json.Marshaler. Statuses serialize as JSON strings.
func (s PathStatus) MarshalJSON() ([]byte, error) {
	text, err := s.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string.
func (s *PathStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, data)
	}
	return s.UnmarshalText([]byte(str))
}
