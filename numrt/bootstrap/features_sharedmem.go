//go:build sharedmem

package bootstrap

const sharedMemoryBuild = true
