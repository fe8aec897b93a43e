//go:build !sharedmem

package bootstrap

const sharedMemoryBuild = false
