// Package pkglog sets up the process-wide slog JSON logger and stamps every
// record with the request's correlation ID when the context carries one.
package pkglog
