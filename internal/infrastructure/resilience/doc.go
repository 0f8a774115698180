/*
Package resilience provides the circuit breaker that guards backend calls.

# Overview

Command and query requests to the processing backend run through a Breaker.
When the backend keeps failing at the transport level, the breaker opens and
further calls fail fast with ErrCircuitOpen instead of stacking up timeouts.
Business rejections (a 4xx answer, success:false) are not transport failures;
callers exclude them through Settings.IsFailure.

# Usage

	breaker := resilience.New("backend", resilience.Settings{
		MaxRequests: 3,
		Timeout:     10 * time.Second,
		IsFailure:   api.IsTransportFailure,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("breaker state", zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	resp, err := resilience.Do(breaker, func() (*resty.Response, error) {
		return req.Get("/api/files")
	})

# Pattern

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
