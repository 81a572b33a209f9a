// ABOUTME: Background refill loop for feeder mode
// ABOUTME: Keeps the ring buffer topped up so the callback only copies
package sink

import (
	"context"
	"time"
)

// runFeeder tops up the renderer every interval until ctx is done
func runFeeder(ctx context.Context, r *Renderer, target int, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Fill(target)
		}
	}
}
