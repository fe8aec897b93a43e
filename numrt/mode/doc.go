// Package mode resolves, once per process, whether runtime assertions are
// enforced.
//
// The decision is taken from the MODE environment variable when the process
// starts, so one binary can run as a checked debug build or a stripped release
// build depending on how it is launched:
//
//	export MODE=Debug     assertions on
//	export MODE=Asserts   assertions on
//	export MODE=Profile   assertions off
//	export MODE=Release   assertions off (default)
//
// Any other value, or no value at all, turns assertions off. Matching is
// case-insensitive but otherwise exact.
package mode
