// Package api is the request/response client for the processing backend.
//
// Every call goes through a rate limiter and a circuit breaker before resty
// issues it over a pooled retryablehttp transport. Only GET and DELETE are
// retried; control commands are sent exactly once so a retry can never
// double-apply them. Non-2xx replies carry a FastAPI {"detail": ...} body and
// surface as *Error.
//
// Example Usage:
//
//	client := api.New(api.Options{BaseURL: "http://127.0.0.1:8765"})
//	resp, err := client.Control(ctx, fileID, types.CommandPause)
package api
