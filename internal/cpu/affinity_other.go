//go:build !linux

package cpu

import (
	"runtime"
)

// CurrentCore is not available outside Linux.
func CurrentCore() int { return -1 }

// SetupWorkerAffinity locks the goroutine to an OS thread.
// CPU pinning is not available on this platform and pin is ignored.
func SetupWorkerAffinity(workerID int, pin bool) (func(), error) {
	runtime.LockOSThread()

	return func() {
		runtime.UnlockOSThread()
	}, nil
}
