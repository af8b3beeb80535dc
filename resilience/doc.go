// Package resilience guards side effects that talk to the host platform,
// such as launching the offline language pack installer.
//
//   - Breaker stops calling an operation after repeated failures and
//     retries it after a cooldown.
//   - Retry repeats an operation with exponential backoff.
//
// The two compose: a breaker around a retried call counts one failure per
// exhausted retry sequence.
//
//	err := breaker.Execute(ctx, func(ctx context.Context) error {
//	    return resilience.Retry(ctx, retryCfg, launch)
//	})
package resilience
