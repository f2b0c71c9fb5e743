package submit

import (
	"context"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"time"
)

// DefaultBackoff is the pause between two attempts of a failed scheduler command.
const DefaultBackoff = time.Second

// Submitter launches job scripts and lists the jobs still active.
type Submitter interface {
	Submit(ctx context.Context, scriptPath string) error
	ActiveJobIDs(ctx context.Context) (map[string]struct{}, error)
}

// retry calls f until it succeeds, waiting backoff between attempts. Only a cancelled context stops it.
func retry(ctx context.Context, backoff time.Duration, logger *zap.SugaredLogger, what string, f func() error) error {
	for attempt := 1; ; attempt++ {
		err := f()
		if err == nil {
			return nil
		}
		logger.Warnw("problem with "+what+", retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "gave up on %s after %d attempts, last error: %v", what, attempt, err)
		case <-time.After(backoff):
		}
	}
}
