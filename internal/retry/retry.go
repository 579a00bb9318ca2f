package retry

import (
	"fmt"
	"time"
)

// Do runs op up to attempts times, sleeping a fixed delay between failed
// attempts. It returns nil on the first success, otherwise the last error
// wrapped with the attempt count.
func Do(attempts int, delay time.Duration, op func() error) error {
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 && delay > 0 {
			time.Sleep(delay)
		}

		if lastErr = op(); lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
