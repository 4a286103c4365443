package deque

import (
	"time"

	logpkg "github.com/rzbill/deque/pkg/log"
)

// DefaultProcessSuffix is appended to the queue name when no processing
// list name is given.
const DefaultProcessSuffix = "_process"

type options struct {
	processName    string
	processNameSet bool
	timeout        time.Duration
	logger         logpkg.Logger
}

// Option configures a Deque.
type Option func(*options)

// WithProcessName names the processing list. An empty name is rejected by New.
func WithProcessName(name string) Option {
	return func(o *options) {
		o.processName = name
		o.processNameSet = true
	}
}

// WithTimeout sets how long a blocking Pop waits. Zero waits indefinitely.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithLogger attaches a logger; the default discards output.
func WithLogger(l logpkg.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
