//go:build !distributed

package bootstrap

const distributedBuild = false
