// Package log defines the logging interface and typed logging fields used by
// every numrt package.
//
// Adapters (such as the zap package) implement Logger so the bootstrap path and
// the diagnostic reporter keep logging calls consistent across backends.
package log
