package worker

import (
	"context"
	"errors"

	internal_errors "github.com/itchan-dev/itboard/shared/errors"
)

// MaxAttempts bounds commit attempts per submission, first try included.
// Retries are immediate; there is no backoff between attempts.
const MaxAttempts = 5

// ErrConflictsExhausted is returned by withRetry when every attempt conflicted.
var ErrConflictsExhausted = errors.New("write conflict retries exhausted")

// IsWriteConflict is the default conflict predicate.
func IsWriteConflict(err error) bool {
	return errors.Is(err, internal_errors.ErrWriteConflict)
}

// withRetry calls fn until it succeeds, fails with a non-conflict error, or
// attempts run out. It returns the number of attempts made. fn must leave no
// visible writes behind when it fails.
func withRetry(ctx context.Context, attempts int, isConflict func(error) bool, fn func(attempt int) error) (int, error) {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt - 1, ctxErr
		}
		err = fn(attempt)
		if err == nil {
			return attempt, nil
		}
		if !isConflict(err) {
			return attempt, err
		}
	}
	return attempts, errors.Join(ErrConflictsExhausted, err)
}
