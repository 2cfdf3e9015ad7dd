package notify

// Metrics receives broker counters. Implementations must be safe for
// concurrent use and must not block.
type Metrics interface {
	SubscriptionOpened()
	SubscriptionClosed()
	Published(delivered int)
	Dropped()
}

type nopMetrics struct{}

func (nopMetrics) SubscriptionOpened() {}
func (nopMetrics) SubscriptionClosed() {}
func (nopMetrics) Published(int)       {}
func (nopMetrics) Dropped()            {}
