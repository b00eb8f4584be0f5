package sequencer

import (
	"errors"
	"fmt"

	"github.com/helixlearn/helix/internal/helix"
	"github.com/helixlearn/helix/internal/mastery"
	"github.com/helixlearn/helix/internal/record"
	"github.com/helixlearn/helix/internal/reposition"
)

// ErrFactUnknown is returned when an operation names a fact the repository
// does not have.
var ErrFactUnknown = errors.New("sequencer: unknown fact")

// ErrStitchUnknown is returned when an operation names a stitch outside the
// content set the user was initialized with.
var ErrStitchUnknown = errors.New("sequencer: unknown stitch")

// Code categorizes facade errors for hosts that map them onto exit codes
// or API statuses.
type Code string

const (
	// CodeNotFound: the user, path, stitch, or fact does not exist.
	CodeNotFound Code = "NOT_FOUND"

	// CodeInvalidInput: the caller passed malformed performance data or
	// out-of-range parameters.
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeAlreadyInitialized: InitializeUser was called twice for a user.
	CodeAlreadyInitialized Code = "ALREADY_INITIALIZED"

	// CodeInvariantViolation: internal state failed a structural check.
	// Indicates a defect or corrupted persisted state, never caller error.
	CodeInvariantViolation Code = "INVARIANT_VIOLATION"
)

// Error is the facade's structured error. It wraps the component sentinel
// that triggered it, so errors.Is still matches the underlying cause.
type Error struct {
	Code   Code
	Op     string // facade operation, e.g. "RecordAnswer"
	UserID string
	Err    error
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("sequencer: %s [%s] user=%s: %v", e.Op, e.Code, e.UserID, e.Err)
}

// Unwrap supports errors.Is / errors.As on the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

// IsInvalidInput reports whether err carries CodeInvalidInput.
func IsInvalidInput(err error) bool { return hasCode(err, CodeInvalidInput) }

// IsAlreadyInitialized reports whether err carries CodeAlreadyInitialized.
func IsAlreadyInitialized(err error) bool { return hasCode(err, CodeAlreadyInitialized) }

// IsInvariantViolation reports whether err carries CodeInvariantViolation.
func IsInvariantViolation(err error) bool { return hasCode(err, CodeInvariantViolation) }

func hasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// wrap classifies a component error into a facade Error. Unrecognized
// errors are treated as invariant violations: every expected failure mode
// has a sentinel, so an unknown error means a defect.
func wrap(op, userID string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Code: classify(err), Op: op, UserID: userID, Err: err}
}

func classify(err error) Code {
	switch {
	case errors.Is(err, mastery.ErrNoMasteryData),
		errors.Is(err, reposition.ErrQueueNotFound),
		errors.Is(err, reposition.ErrStitchNotFound),
		errors.Is(err, helix.ErrNoHelixState),
		errors.Is(err, helix.ErrUnknownPath),
		errors.Is(err, ErrFactUnknown),
		errors.Is(err, ErrStitchUnknown):
		return CodeNotFound
	case errors.Is(err, mastery.ErrAlreadyInitialized),
		errors.Is(err, reposition.ErrAlreadyInitialized),
		errors.Is(err, helix.ErrAlreadyInitialized):
		return CodeAlreadyInitialized
	case errors.Is(err, record.ErrInvalidPerformance),
		errors.Is(err, record.ErrInvalidLevel),
		errors.Is(err, record.ErrInvalidStatus),
		errors.Is(err, helix.ErrInvalidDifficulty),
		errors.Is(err, mastery.ErrInvalidConfig),
		errors.Is(err, reposition.ErrInvalidConfig),
		errors.Is(err, reposition.ErrEmptyQueue),
		errors.Is(err, reposition.ErrDuplicateStitch):
		return CodeInvalidInput
	default:
		return CodeInvariantViolation
	}
}
