// Package parallel provides a single-process distributed runtime and its
// work distributor.
//
// Node plays the role of a message-passing layer for runs that are not
// launched under a real fabric: it is rank 0 of a world of size 1 unless the
// launcher passes --numrt-rank and --numrt-size. NodePool splits index ranges
// across ranks. Both satisfy the bootstrap collaborator interfaces.
package parallel
