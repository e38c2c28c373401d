package sync

import (
	"errors"
	"fmt"

	"github.com/huykn/mutation-cache/types"
)

// ErrStoreUnavailable is returned by Apply when a store operation fails.
var ErrStoreUnavailable = errors.New("cache store unavailable")

// StepError reports the step of an Apply call that failed. Steps before it
// were applied and are not rolled back; steps after it were not attempted.
type StepError struct {
	ApplyID string
	Step    types.Action
	Err     error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("apply %s: %s step: %v: %v", e.ApplyID, e.Step, ErrStoreUnavailable, e.Err)
}

// Unwrap exposes both ErrStoreUnavailable and the store's own error.
func (e *StepError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}
