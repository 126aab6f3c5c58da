// Package pkgroutine runs background work, such as the upload sweeper, on a
// bounded set of goroutines that shutdown can wait for.
package pkgroutine
