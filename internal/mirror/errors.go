// File path: internal/mirror/errors.go
package mirror

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument marks a validation failure. No store has been touched
// when it is returned.
var ErrInvalidArgument = errors.New("mirror: invalid argument")

// ReplicaWriteError is returned when the replica write fails and it was the
// only attempted persistence for the operation. It is fatal: a replica
// failure signals an infrastructure outage, not a transient condition.
type ReplicaWriteError struct {
	Err error
}

func (e *ReplicaWriteError) Error() string {
	return fmt.Sprintf("mirror: replica write failed: %v", e.Err)
}

func (e *ReplicaWriteError) Unwrap() error {
	return e.Err
}

func invalidArgument(field string) error {
	return fmt.Errorf("%w: %s required", ErrInvalidArgument, field)
}
