// Package backoff computes jittered exponential delays and retries polling
// loops with them. The redis barrier uses it to wait for peers without
// hammering the server.
package backoff
