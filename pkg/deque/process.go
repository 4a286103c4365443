package deque

import (
	"context"
	"time"

	logpkg "github.com/rzbill/deque/pkg/log"
)

// Handler processes one payload. Returning nil commits the payload;
// returning an error leaves it in the processing list for Refill or a
// manual commit. Transient failures should return an error so the payload
// can be retried; permanent failures should either commit explicitly or be
// left for inspection.
type Handler func(ctx context.Context, payload []byte) error

// ProcessStats summarises one Process call.
type ProcessStats struct {
	Popped    int
	Committed int
	Failed    int
}

type processOptions struct {
	nonBlock      bool
	timeout       time.Duration
	timeoutSet    bool
	stopOnFailure bool
}

// ProcessOption configures Process.
type ProcessOption func(*processOptions)

// NonBlocking makes Process pop without waiting and return once the main
// list is drained.
func NonBlocking() ProcessOption {
	return func(o *processOptions) { o.nonBlock = true }
}

// WithProcessTimeout replaces the Deque's blocking timeout. The new value
// stays in effect after Process returns.
func WithProcessTimeout(d time.Duration) ProcessOption {
	return func(o *processOptions) {
		o.timeout = d
		o.timeoutSet = true
	}
}

// StopOnFailure ends the loop after the first handler error. By default
// Process keeps going and the failed payload waits in the processing list.
func StopOnFailure() ProcessOption {
	return func(o *processOptions) { o.stopOnFailure = true }
}

// Process pops payloads and hands each one to h, committing those h
// accepts. It returns when a pop comes back empty (in blocking mode that
// means the timeout elapsed), when the main list is empty in non-blocking
// mode, when ctx is done, or on a store error.
func (d *Deque) Process(ctx context.Context, h Handler, opts ...ProcessOption) (ProcessStats, error) {
	var stats ProcessStats
	o := processOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.timeoutSet {
		if err := d.SetTimeout(o.timeout); err != nil {
			return stats, err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		msg, ok, err := d.pop(ctx, o.nonBlock)
		if err != nil {
			return stats, err
		}
		if !ok {
			return stats, nil
		}
		stats.Popped++

		if herr := h(ctx, msg); herr != nil {
			stats.Failed++
			d.logger.Debug("handler failed; payload left in processing list", logpkg.Err(herr))
			if o.stopOnFailure {
				return stats, nil
			}
		} else {
			if _, err := d.Commit(ctx, msg); err != nil {
				return stats, err
			}
			stats.Committed++
		}

		if o.nonBlock {
			empty, err := d.Empty(ctx)
			if err != nil {
				return stats, err
			}
			if empty {
				return stats, nil
			}
		}
	}
}
