// Package numrt wires the runtime-configurable diagnostics and the ordered
// environment bootstrap into one launch sequence for numerical engines.
//
// Typical usage from main:
//
//	os.Exit(numrt.NewLauncher(
//	    numrt.WithLogger(logger),
//	    numrt.WithEnvironment(env),
//	).Run(ctx, os.Args, engine))
//
// The subpackages can also be used on their own: mode resolves the MODE signal,
// assert reports invariant violations, and bootstrap sequences the distributed
// and shared-memory stages.
package numrt
