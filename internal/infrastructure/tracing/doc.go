/*
Package tracing correlates observer requests with the backend calls they cause.

# Overview

Every observer API request carries a request ID. The HTTP middleware adopts
an incoming X-Request-ID header or mints a fresh ULID-based one, stores it in
the request context and echoes it back. The backend client reads the same ID
from the context, so one operator action shows up under one identifier in the
coordinator log and in the backend log.

# Usage

	router.Use(tracing.HTTPMiddleware(logger))

	// later, anywhere the request context flows
	rid := tracing.RequestID(ctx)

Calls made outside an observer request (startup resolution, reconnects) get a
fresh ID per call.

# Header

  - X-Request-ID: identifier of the operator action
*/
package tracing
