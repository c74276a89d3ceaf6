// Package resource implements admission control for the HTTP intake.
//
// A Controller bounds three things per process:
//
//   - Rate: a token bucket on admitted requests (fail-fast)
//   - Concurrency: the number of requests being fingerprinted at once
//     (blocking until the request context ends)
//   - Memory: the total size of upload bodies held in memory (fail-fast)
//
// Admit reserves all three and returns a release func:
//
//	rc := resource.NewController(resource.Config{
//	    MaxInFlight:       8,
//	    RequestsPerSecond: 50,
//	    MemoryLimitBytes:  256 << 20,
//	})
//	release, err := rc.Admit(ctx, int64(len(body)))
//	if err != nil {
//	    return err
//	}
//	defer release()
//
// A nil *Controller admits everything.
package resource
