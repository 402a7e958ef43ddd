package collection

import (
	"errors"
	"fmt"
)

// Causes of a StructuralError.
var (
	ErrCycle             = errors.New("cyclic folder reference")
	ErrSharedItem        = errors.New("item referenced by more than one parent")
	ErrDanglingReference = errors.New("reference to unknown item")
	ErrUnknownType       = errors.New("unknown type discriminator")
	ErrMissingAuthField  = errors.New("missing required auth field")
	ErrNotAFolder        = errors.New("path walks through a non-folder item")
)

// ErrItemNotFound is returned by lookups for ids or name paths that do not exist.
var ErrItemNotFound = errors.New("item not found")

// StructuralError reports input that violates the document invariants.
// It is fatal for the affected item: nothing is partially resolved.
type StructuralError struct {
	Item   ItemID
	Reason string
	Err    error
}

func (e *StructuralError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	if e.Item != "" {
		return fmt.Sprintf("structural error in item %q: %s", e.Item, msg)
	}
	return "structural error: " + msg
}

func (e *StructuralError) Unwrap() error { return e.Err }

func structural(id ItemID, reason string, err error) *StructuralError {
	return &StructuralError{Item: id, Reason: reason, Err: err}
}

// IsStructural reports whether err carries a StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}
