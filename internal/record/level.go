package record

import (
	"encoding"
	"encoding/json"
	"fmt"
)

// BoundaryLevel is one of the five ordinal mastery stages tracked per
// (user, fact) pair. The scale is fixed: level 5 is terminal mastery for
// tracking purposes (there is no level 6).
type BoundaryLevel int

const (
	LevelCategory    BoundaryLevel = iota + 1 // Answer must be of the right type.
	LevelMagnitude                            // Answer in plausible numeric range.
	LevelOperation                            // Distinguishing the operation itself.
	LevelRelatedFact                          // Adjacent facts in the same operation.
	LevelNearMiss                             // Very close numeric alternatives.
)

// LevelCount is the number of boundary levels. The scale is fixed, not
// configurable per content.
const LevelCount = 5

var (
	levelNames = [...]string{
		LevelCategory:    "Category",
		LevelMagnitude:   "Magnitude",
		LevelOperation:   "Operation",
		LevelRelatedFact: "RelatedFact",
		LevelNearMiss:    "NearMiss",
	}
	levelByName = map[string]BoundaryLevel{
		"Category":    LevelCategory,
		"Magnitude":   LevelMagnitude,
		"Operation":   LevelOperation,
		"RelatedFact": LevelRelatedFact,
		"NearMiss":    LevelNearMiss,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = BoundaryLevel(0)
	_ json.Marshaler           = BoundaryLevel(0)
	_ json.Unmarshaler         = (*BoundaryLevel)(nil)
	_ encoding.TextMarshaler   = BoundaryLevel(0)
	_ encoding.TextUnmarshaler = (*BoundaryLevel)(nil)
)

// IsValid reports whether l is within the five-level scale.
func (l BoundaryLevel) IsValid() bool {
	return l >= LevelCategory && l <= LevelNearMiss
}

// String returns the name of the level ("Category" through "NearMiss").
// For invalid values it returns "BoundaryLevel(n)".
func (l BoundaryLevel) String() string {
	if l.IsValid() {
		return levelNames[l]
	}
	return fmt.Sprintf("BoundaryLevel(%d)", int(l))
}

// MarshalText implements encoding.TextMarshaler.
func (l BoundaryLevel) MarshalText() ([]byte, error) {
	if !l.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, int(l))
	}
	return []byte(levelNames[l]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *BoundaryLevel) UnmarshalText(text []byte) error {
	v, ok := levelByName[string(text)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidLevel, text)
	}
	*l = v
	return nil
}

// MarshalJSON implements json.Marshaler. Levels serialize as JSON strings.
func (l BoundaryLevel) MarshalJSON() ([]byte, error) {
	text, err := l.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string.
func (l *BoundaryLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidLevel, data)
	}
	return l.UnmarshalText([]byte(s))
}
