//go:build claims

package bootstrap

const claimsBuild = true
