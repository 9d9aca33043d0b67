package app

import (
	"os"
	"sync/atomic"
)

// testModeEnv short-circuits the mains. CI runs the binaries with this set so
// package tests can exercise main wiring without Postgres or Redis running.
const testModeEnv = "OIKOS_TEST_MODE"

var testMode atomic.Pointer[bool]

// InTestMode reports whether the process should skip runtime side effects.
// The environment is read once; RefreshTestMode re-reads it after the test
// harness mutates the environment.
func InTestMode() bool {
	if v := testMode.Load(); v != nil {
		return *v
	}
	v := os.Getenv(testModeEnv) == "1"
	testMode.Store(&v)
	return v
}

// RefreshTestMode re-reads the flag from the environment.
func RefreshTestMode() {
	v := os.Getenv(testModeEnv) == "1"
	testMode.Store(&v)
}
