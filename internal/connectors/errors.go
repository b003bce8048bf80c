package connectors

import (
	"errors"
	"fmt"
	"time"
)

// ThrottleError means the backend refused the order before executing it,
// so it is safe to resend after RetryAfter.
type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}

func (e *ThrottleError) Unwrap() error { return e.Cause }

// IsThrottle reports whether err carries a ThrottleError.
func IsThrottle(err error) bool {
	var tErr *ThrottleError
	return errors.As(err, &tErr)
}

var ErrUnsupportedOrder = errors.New("order not supported by backend")
