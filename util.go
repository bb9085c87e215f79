package mcumgr

import (
	"context"
	"time"
)

// contextWithTimeout derives a child context bounded by both the parent's
// deadline/cancellation and the given timeout, whichever is sooner.
func contextWithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}
