package topo

import (
	"context"
	"time"

	"github.com/percona/linkseq/errors"
	"github.com/percona/linkseq/log"
)

// RunWithRetry calls fn up to maxAttempts times while it fails with a transient error,
// waiting delay between attempts. It returns the last error.
func RunWithRetry(
	ctx context.Context,
	fn func(context.Context) error,
	delay time.Duration,
	maxAttempts int,
) error {
	var err error

	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || !IsTransient(err) || attempt >= maxAttempts {
			return err
		}

		log.Warnf(ctx, "transient error (attempt %d of %d): %v", attempt, maxAttempts, err)

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(delay):
		}
	}
}
