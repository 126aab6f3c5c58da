// Package pkgrouter is the HTTP edge of the service: httprouter routing, the
// JSON success and error envelopes, and the middleware every route shares
// (panic recovery, correlation IDs, request logging, metrics and rate
// limiting).
package pkgrouter
