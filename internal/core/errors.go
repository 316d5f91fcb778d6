package core

import (
	"errors"
	"fmt"
)

// ErrSignatureMismatch is returned by ConfirmPayment when the provider
// signature does not verify. The job is moved to payment-failed before
// this error is returned.
var ErrSignatureMismatch = errors.New("payment signature mismatch")

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job not found: %s", e.JobID)
}

type InvalidStateError struct {
	JobID string
	State string
	Op    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s job %s in state %q", e.Op, e.JobID, e.State)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsInvalidState(err error) bool {
	var is *InvalidStateError
	return errors.As(err, &is)
}
