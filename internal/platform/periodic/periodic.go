package periodic

import (
	"context"
	"fmt"
	"time"

	apperrors "worktrack/internal/platform/errors"
)

// Run calls fn immediately and then on every interval until ctx is done or fn
// returns an error. The ticker is always stopped before Run returns. A
// non-positive interval is rejected before fn runs.
func Run(ctx context.Context, interval time.Duration, fn func(context.Context) error) error {
	if interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %s", apperrors.ErrInvalidInput, interval)
	}
	if err := fn(ctx); err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if ctx.Err() != nil {
				return nil
			}
			if err := fn(ctx); err != nil {
				return err
			}
		}
	}
}
