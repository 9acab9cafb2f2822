//go:build integration

// Package integration provides integration tests for the tau library.
//
// These tests require Docker: archives written by tau are checked with the
// reference xz tool inside a container started by testcontainers.
// Run with: go test -tags=integration ./integration/...
package integration
