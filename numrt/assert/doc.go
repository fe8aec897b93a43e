// Package assert reports invariant violations and terminates the process.
//
// Whether checks are enforced is decided once, at process start, by the mode
// package. With enforcement off every check costs one boolean test: auxiliary
// values are neither rendered nor, when passed through Lazy, evaluated. With
// enforcement on, a failing check writes a deterministic multi-line report to
// stderr, records telemetry, flushes the output streams and exits with
// ExitCode. There is no error to handle and no way to resume: these checks
// exist for programmer bugs, not for input validation.
//
// # Forms
//
//	r := assert.New(mode.Init())
//
//	r.That(cells > 0, "cells > 0", assert.Value("cells", cells))
//	assert.Equals(r, level, want, "level == want")
//	assert.NumericalEquals(r, h, hExpected, assert.Absolute(1e-12), "h == hExpected")
//	assert.VectorNumericalEquals(r, x, y, nil, "x == y", assert.Value("vertex", v))
//	r.Fail("unreachable refinement state", assert.Value("state", s))
//
// Fail ignores the mode and always terminates.
//
// # Report format
//
//	assertion in file /src/grid/cell.go, line 42 failed: x == y
//	lhs: 1.00000000000000000000e+00
//	rhs: 2.00000000000000000000e+00
//	parameter component: 1
//	parameter vertex: 7
//	refinement must keep vertex positions
//
// Floating-point values are printed in scientific notation with a fixed
// precision (20 digits unless WithPrecision says otherwise) so reports diff
// cleanly across runs.
package assert
