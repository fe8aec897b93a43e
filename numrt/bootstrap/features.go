package bootstrap

import "strings"

// Features says which bootstrap stages exist.
type Features struct {
	Distributed      bool
	SharedMemory     bool
	ResourceClaiming bool
}

// BuildFeatures returns the stages compiled in with the distributed,
// sharedmem and claims build tags.
func BuildFeatures() Features {
	return Features{
		Distributed:      distributedBuild,
		SharedMemory:     sharedMemoryBuild,
		ResourceClaiming: claimsBuild,
	}
}

// AllFeatures enables every stage regardless of build tags.
func AllFeatures() Features {
	return Features{Distributed: true, SharedMemory: true, ResourceClaiming: true}
}

func (f Features) String() string {
	var parts []string

	if f.Distributed {
		parts = append(parts, "distributed")
	}

	if f.SharedMemory {
		parts = append(parts, "sharedmem")
	}

	if f.ResourceClaiming {
		parts = append(parts, "claims")
	}

	if len(parts) == 0 {
		return "none"
	}

	return strings.Join(parts, ",")
}
