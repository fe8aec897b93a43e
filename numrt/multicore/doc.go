// Package multicore is a shared-memory runtime backed by goroutines.
//
// A Core is configured once with a worker count and then runs ParallelFor
// loops over index ranges. It satisfies the bootstrap shared-memory
// collaborator: IsInitialised reports whether Configure succeeded.
package multicore
