package parallel

import (
	"context"
	"errors"
	"sync"

	"github.com/LerianStudio/lib-numrt/numrt/log"
)

// ErrPoolNotRunning is returned by Range when the pool is not initialised.
var ErrPoolNotRunning = errors.New("parallel: work pool not running")

// Topology is the part of a distributed runtime the pool needs.
type Topology interface {
	Rank() int
	Size() int
}

// NodePool distributes contiguous index ranges across ranks.
type NodePool struct {
	mu      sync.Mutex
	topo    Topology
	logger  log.Logger
	running bool
}

// NewNodePool returns a pool over topo.
func NewNodePool(topo Topology, logger log.Logger) *NodePool {
	return &NodePool{topo: topo, logger: log.OrNop(logger)}
}

// Init starts accepting work.
func (p *NodePool) Init() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.running = true

	p.logger.Log(context.Background(), log.LevelDebug, "work pool started", log.Int("ranks", p.topo.Size()))
}

// Shutdown stops accepting work. Safe without Init.
func (p *NodePool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.running = false

	p.logger.Log(context.Background(), log.LevelDebug, "work pool stopped")
}

// Running reports whether Init ran and Shutdown has not.
func (p *NodePool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.running
}

// Range returns the half-open slice [start, end) of n items owned by this
// rank. The first n%size ranks get one extra item.
func (p *NodePool) Range(n int) (start, end int, err error) {
	if !p.Running() {
		return 0, 0, ErrPoolNotRunning
	}

	return Partition(n, p.topo.Rank(), p.topo.Size())
}

// Partition splits n items into size near-equal contiguous blocks and returns
// the block owned by rank.
func Partition(n, rank, size int) (start, end int, err error) {
	if n < 0 || size < 1 || rank < 0 || rank >= size {
		return 0, 0, ErrInvalidTopology
	}

	base, extra := n/size, n%size

	start = rank*base + min(rank, extra)
	end = start + base

	if rank < extra {
		end++
	}

	return start, end, nil
}
