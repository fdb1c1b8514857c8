/*
Package server provides the HTTP request pipeline for the Shelterflex backend.

# Middleware Components

## Request ID (requestid.go)

RequestIDMiddleware reuses a well-formed incoming X-Request-ID or generates a
UUID. The id is stored in the request context (see GetRequestID) and echoed
in the X-Request-ID response header.

## Logging (logging.go)

LoggingMiddleware writes one "request completed" line per request with
request_id, method, path, status and duration. Handlers can attach fields
with AddLogField and AddError. Paths passed as skip are never logged.

## Recovery and errors (errors.go)

ErrorHandler is the single place that turns an error into a response. It
classifies the error into a domain failure, logs unclassified errors, counts
codes and writes the JSON envelope. Recoverer routes panics through it. Once
a response has started, later errors are logged and dropped.

## Timeout (timeout.go)

TimeoutMiddleware attaches a deadline to the request context.

## Body parsing (bodyparser.go)

BodyParser reads JSON bodies up to a byte limit and rejects malformed ones
before any handler runs. The raw bytes are available through Body.

## CORS (cors.go)

CORS allows the configured origins and answers preflight requests.

## Metrics (metrics.go)

MetricsMiddleware reports method, route pattern, status and latency.

# Middleware Chain Order

New installs the chain in this order:
 1. RequestIDMiddleware
 2. LoggingMiddleware (when enabled)
 3. Recoverer
 4. TimeoutMiddleware
 5. BodyParser
 6. CORS
 7. OTel instrumentation
 8. MetricsMiddleware (when enabled)
 9. GetHead (HEAD requests use the GET route)

Unmatched routes and unsupported methods both answer 404 "Route not found".
*/
package server
