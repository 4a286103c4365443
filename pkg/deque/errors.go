package deque

import (
	"errors"
	"fmt"
)

// ErrConfiguration reports invalid constructor arguments. It is fatal for
// the call: fix the arguments before retrying.
var ErrConfiguration = errors.New("deque: invalid configuration")

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
