// Package pkgerror carries the typed errors that handlers turn into the JSON
// error envelope.
//
// An Error holds a user-facing message, a Type and a Code. The Code decides the
// HTTP status, and optional details (such as the failing part number) are
// merged into the envelope's error object.
package pkgerror
