package driver

import (
	"errors"
	"fmt"
	"time"
)

// ErrSessionReleased is returned by Session methods that need a live
// session after Release has run.
var ErrSessionReleased = errors.New("browser session already released")

// ProvisioningError reports that no usable session could be opened for a
// target: the grid endpoint was malformed or unreachable, the credentials
// were rejected, or the local browser could not be started.
type ProvisioningError struct {
	Target Target
	Mode   Mode
	Err    error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning %s session for %s: %v", e.Mode, e.Target, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that an explicit wait expired before its condition
// held.
type TimeoutError struct {
	Condition string
	Timeout   time.Duration
	Err       error
}

func (e *TimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("timed out after %v waiting for %s: %v", e.Timeout, e.Condition, e.Err)
	}
	return fmt.Sprintf("timed out after %v waiting for %s", e.Timeout, e.Condition)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// IsProvisioning reports whether err is, or wraps, a ProvisioningError.
func IsProvisioning(err error) bool {
	var pe *ProvisioningError
	return errors.As(err, &pe)
}

// IsTimeout reports whether err is, or wraps, a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
