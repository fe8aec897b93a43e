package parallel

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/LerianStudio/lib-numrt/numrt/log"
)

// ArgPrefix marks command-line arguments consumed by Node.Init.
const ArgPrefix = "--numrt-"

var (
	// ErrInvalidTopology is returned when rank or size arguments are out of range.
	ErrInvalidTopology = errors.New("parallel: invalid rank/size")
	// ErrUnknownArgument is returned for an unrecognised --numrt- argument.
	ErrUnknownArgument = errors.New("parallel: unknown argument")
)

// Node is a distributed runtime for a process that owns its whole world.
type Node struct {
	mu          sync.Mutex
	logger      log.Logger
	rank        int
	size        int
	initialised bool
	shutdown    bool
}

// NewNode returns an uninitialised node.
func NewNode(logger log.Logger) *Node {
	return &Node{logger: log.OrNop(logger), size: 1}
}

// Init consumes the --numrt-* arguments from args and marks the node ready.
// It returns false when the arguments describe an impossible topology or when
// the node was already shut down. Calling Init twice is a no-op.
func (n *Node) Init(args *[]string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.shutdown {
		n.logger.Log(context.Background(), log.LevelError, "node init after shutdown")
		return false
	}

	if n.initialised {
		return true
	}

	rank, size, rest, err := parseArgs(args)
	if err != nil {
		n.logger.Log(context.Background(), log.LevelError, "node init failed", log.Err(err))
		return false
	}

	if args != nil {
		*args = rest
	}

	n.rank, n.size, n.initialised = rank, size, true

	n.logger.Log(context.Background(), log.LevelInfo, "node initialised",
		log.Int("rank", rank), log.Int("size", size))

	return true
}

func parseArgs(args *[]string) (rank, size int, rest []string, err error) {
	size = 1

	if args == nil {
		return rank, size, nil, nil
	}

	for _, arg := range *args {
		if !strings.HasPrefix(arg, ArgPrefix) {
			rest = append(rest, arg)
			continue
		}

		key, value, _ := strings.Cut(strings.TrimPrefix(arg, ArgPrefix), "=")

		switch key {
		case "rank":
			rank, err = strconv.Atoi(value)
		case "size":
			size, err = strconv.Atoi(value)
		default:
			return 0, 0, nil, fmt.Errorf("%w: %s", ErrUnknownArgument, arg)
		}

		if err != nil {
			return 0, 0, nil, fmt.Errorf("%w: %s: %w", ErrInvalidTopology, arg, err)
		}
	}

	if size < 1 || rank < 0 || rank >= size {
		return 0, 0, nil, fmt.Errorf("%w: rank=%d size=%d", ErrInvalidTopology, rank, size)
	}

	return rank, size, rest, nil
}

// Shutdown releases the node. It is safe without Init and safe to repeat.
func (n *Node) Shutdown() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.shutdown {
		return
	}

	n.shutdown = true

	if n.initialised {
		n.logger.Log(context.Background(), log.LevelInfo, "node shut down", log.Int("rank", n.rank))
	}

	n.initialised = false
}

// Rank returns this process's rank.
func (n *Node) Rank() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.rank
}

// Size returns the number of ranks.
func (n *Node) Size() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.size
}

// IsInitialised reports whether Init succeeded and Shutdown has not run.
func (n *Node) IsInitialised() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.initialised
}

// Barrier returns immediately: a node has no local peers to wait for.
func (n *Node) Barrier(ctx context.Context) error {
	return ctx.Err()
}
