// Package health runs named health checks and aggregates their results.
//
// It is transport-agnostic: the conveyor application serves liveness and
// readiness probes as ordinary routes that call [Run], so probe requests
// traverse the middleware pipeline like any other request.
//
// # Usage
//
//	report := health.Run(ctx, health.Checks{
//	    "redis": redis.Healthcheck(client),
//	}, health.WithTimeout(3*time.Second))
//
//	if !report.Healthy() {
//	    log.Error("not ready", "error", report.Err())
//	}
//
// Checks run in parallel. A check that has not returned by the timeout is
// reported as [ErrCheckTimeout]; the others are unaffected.
//
// JSON shape of a [Report]:
//
//	{
//	  "status": "unhealthy",
//	  "checks": {
//	    "redis": {"status": "unhealthy", "error": "connection refused"}
//	  }
//	}
//
// # Errors
//
//   - [ErrCheckFailed] - one or more checks failed
//   - [ErrCheckTimeout] - a check exceeded the timeout
package health
