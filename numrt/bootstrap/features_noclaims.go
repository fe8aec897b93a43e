//go:build !claims

package bootstrap

const claimsBuild = false
