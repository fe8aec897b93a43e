//go:build distributed

package bootstrap

const distributedBuild = true
