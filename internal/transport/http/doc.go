// Package http contains the HTTP handlers: license activation and status,
// the merchant catalog editing surface, the public share/decode endpoints
// and the administrative issuing API. Handlers bind and validate with
// chi/render, respond with structured errors from internal/errors and log
// through slog with request-scoped trace ids.
package http
