// Package version exposes build information for the bridge binary.
//
// Version, commit and build time are stamped at link time:
//
//	go build -ldflags "-X github.com/kbukum/speechbridge/version.Version=1.2.0 \
//	    -X github.com/kbukum/speechbridge/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Anything not stamped falls back to the VCS settings the Go toolchain
// records in the binary.
package version
