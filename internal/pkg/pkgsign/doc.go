// Package pkgsign issues and checks short-lived HMAC signatures and random
// tokens.
//
// Signatures bind a list of fields (for example an upload id and a part number)
// to an expiry time, so a URL handed to a client stops working once it expires
// or when any bound field is altered.
package pkgsign
