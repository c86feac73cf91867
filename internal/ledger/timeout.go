package ledger

import (
	"context"
	"time"
)

// DefaultStorageTimeout bounds each storage round trip when no timeout is configured.
const DefaultStorageTimeout = 5 * time.Second

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultStorageTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
