// Package retry provides backoff strategies and a Submitter that retries task
// submission while an executor is overloaded.
//
// Backoff strategies:
//   - FixedBackoff: the same delay every time
//   - ExponentialBackoff: delay multiplied per attempt, capped
//   - LinearBackoff: delay grown by a fixed increment, capped
//
// FullJitter and EqualJitter can be attached to any of them with
// WithBackoffJitter.
//
// Only submission is retried. A task that was accepted and then failed is
// never submitted again.
//
// Usage:
//
//	sub, err := retry.NewSubmitter(pool, &retry.SubmitterConfig{
//		MaxAttempts: 5,
//		Backoff:     retry.NewExponentialBackoff(time.Millisecond),
//	})
//	if err != nil {
//		return err
//	}
//	if err := sub.Submit(ctx, task); retry.IsExhausted(err) {
//		// the pool stayed full
//	}
package retry
