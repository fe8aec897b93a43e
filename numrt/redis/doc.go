// Package redis implements cluster-wide resource claims and a collective
// barrier on top of Redis.
//
// ClaimController reserves named resources (cores, GPUs) with redsync mutexes
// and remembers, per node, what it reserved so the next run can clean up after
// a crash. Barrier is a reusable generation-counting barrier that peers poll
// with jittered backoff.
package redis
