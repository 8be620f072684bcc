package app

import (
	"os"
	"sync"
	"sync/atomic"
)

// TestModeEnv is set by the testing package so binaries skip dialling the business API,
// Redis and the queue.
const TestModeEnv = "ODYSSEY_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

// InTestMode reports whether serve and the worker should return before side effects.
func InTestMode() bool {
	testModeOnce.Do(func() {
		testModeFlag.Store(os.Getenv(TestModeEnv) == "1")
	})
	return testModeFlag.Load()
}
