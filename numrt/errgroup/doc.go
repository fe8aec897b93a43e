// Package errgroup runs goroutines that share a cancellation context, turning
// panics into errors and optionally bounding how many run at once.
package errgroup
