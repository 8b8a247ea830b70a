package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Request errors, one per classified outcome
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrLocked             = fmt.Errorf("resource locked by background processing")
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrTransient          = fmt.Errorf("transient server error")
	ErrNotFound           = fmt.Errorf("resource not found")
	ErrRequestRejected    = fmt.Errorf("request rejected")
	ErrRetriesExhausted   = fmt.Errorf("retries exhausted")
	ErrSchemaDrift        = fmt.Errorf("unexpected response schema")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Planning and batch errors
	ErrSetMismatch          = fmt.Errorf("current and desired item sets differ")
	ErrDuplicateItem        = fmt.Errorf("duplicate item")
	ErrUnsupportedExtension = fmt.Errorf("unsupported file extension")
	ErrUnknownStrategy      = fmt.Errorf("unknown pairing strategy")
	ErrAborted              = fmt.Errorf("batch aborted")
	ErrNotConfirmed         = fmt.Errorf("operation not confirmed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// IsFatal reports whether err must terminate the whole run rather than a single item.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrMissingCredentials) ||
		errors.Is(err, ErrSchemaDrift) ||
		errors.Is(err, ErrSetMismatch)
}
