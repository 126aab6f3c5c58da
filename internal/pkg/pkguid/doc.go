// Package pkguid generates identifiers.
//
// Upload ids are random UUIDs, correlation ids are time-ordered UUIDv7 values,
// and lifecycle events and temp files use Snowflake numbers. Callers depend on
// StringID or NumberID so tests can supply deterministic sequences.
package pkguid
