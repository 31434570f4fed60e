package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrAlertNotFound   = errors.New("alert not found")
	ErrAlreadyResolved = errors.New("alert already resolved")
	// ErrDuplicateAlert is raised by storage when a second active alert would
	// be created for a product. Callers treat it as a no-op.
	ErrDuplicateAlert = errors.New("active alert already exists for product")
	ErrInvalidStock   = errors.New("stock cannot be negative")
	ErrInvalidTarget  = errors.New("invalid event target")
	ErrUnknownTag     = errors.New("unknown event tag")
	ErrForbidden      = errors.New("access forbidden")
	// ErrUnauthorizedTarget is reserved for callers that try to address an
	// event outside their own scope.
	ErrUnauthorizedTarget = errors.New("target not permitted for caller")
)

// MalformedEventError reports a frame or payload that could not be decoded.
type MalformedEventError struct {
	Tag    Tag
	Reason string
	Err    error
}

func (e *MalformedEventError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("malformed %s event: %s", e.Tag, e.Reason)
	}
	return "malformed event: " + e.Reason
}

func (e *MalformedEventError) Unwrap() error { return e.Err }

// IsMalformed reports whether err is, or wraps, a MalformedEventError.
func IsMalformed(err error) bool {
	var me *MalformedEventError
	return errors.As(err, &me)
}
