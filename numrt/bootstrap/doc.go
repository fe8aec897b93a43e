// Package bootstrap brings the execution environment up before the numerical
// engine runs and tears it down afterwards.
//
// Start-up has two stages in a fixed order. The distributed stage initialises
// the message-passing runtime and then its work distributor. The shared-memory
// stage optionally clears resource claims left by a previous run, waits for
// every distributed peer at a barrier, and then checks that the worker runtime
// is ready. Each stage returns an Outcome; a non-zero Outcome means the engine
// must not run. Nothing is retried.
//
// Which stages exist is decided at build time with the tags distributed,
// sharedmem and claims (see BuildFeatures). A stage that is not built in
// returns Success without touching any collaborator.
//
//	env := bootstrap.New(
//		bootstrap.WithDistributed(node, parallel.NewNodePool(node, logger)),
//		bootstrap.WithSharedMemory(core),
//		bootstrap.WithLogger(logger),
//	)
//	if out := env.Init(ctx, &args); out != bootstrap.Success {
//		env.Shutdown()
//		return out
//	}
//	defer env.Shutdown()
//
// Shutdown has no error channel and is safe to call without a prior Init.
package bootstrap
