package bootstrap

import "errors"

// Outcome is the result code of a bootstrap stage.
type Outcome int

const (
	// Success means the stage is ready or not built in.
	Success Outcome = 0
	// DistributedFailed means the distributed runtime did not initialise.
	DistributedFailed Outcome = -2
	// SharedMemoryFailed means the shared-memory runtime is not ready.
	SharedMemoryFailed Outcome = -3
)

var (
	// ErrDistributedInit is the error form of DistributedFailed.
	ErrDistributedInit = errors.New("bootstrap: distributed runtime initialisation failed")
	// ErrSharedMemoryInit is the error form of SharedMemoryFailed.
	ErrSharedMemoryInit = errors.New("bootstrap: shared-memory runtime initialisation failed")
	// ErrUnknownOutcome is returned by Err for codes outside the closed set.
	ErrUnknownOutcome = errors.New("bootstrap: unknown outcome")
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case DistributedFailed:
		return "distributed_failed"
	case SharedMemoryFailed:
		return "shared_memory_failed"
	default:
		return "unknown"
	}
}

// Err returns nil for Success and a sentinel error otherwise.
func (o Outcome) Err() error {
	switch o {
	case Success:
		return nil
	case DistributedFailed:
		return ErrDistributedInit
	case SharedMemoryFailed:
		return ErrSharedMemoryInit
	default:
		return ErrUnknownOutcome
	}
}
