package pebblestore

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// notifier hands out per-list wake channels. A channel is closed, and
// forgotten, the next time an item lands in its list.
type notifier struct {
	chans *xsync.MapOf[string, chan struct{}]
}

func newNotifier() *notifier {
	return &notifier{chans: xsync.NewMapOf[string, chan struct{}]()}
}

// wait returns the channel that the next insert into list will close.
// Callers must take it before checking the list, or a wakeup can be missed.
func (n *notifier) wait(list string) <-chan struct{} {
	ch, _ := n.chans.LoadOrCompute(list, func() chan struct{} {
		return make(chan struct{})
	})
	return ch
}

func (n *notifier) notify(list string) {
	if ch, ok := n.chans.LoadAndDelete(list); ok {
		close(ch)
	}
}
