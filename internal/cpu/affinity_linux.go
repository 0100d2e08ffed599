//go:build linux

package cpu

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCore pins the current OS thread to a CPU core. Out-of-range ids wrap
// around runtime.NumCPU(). Must be called after runtime.LockOSThread().
func pinToCore(cpuID int) (int, error) {
	numCPU := runtime.NumCPU()
	if cpuID < 0 || cpuID >= numCPU {
		cpuID = ((cpuID % numCPU) + numCPU) % numCPU
	}

	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpuID)

	if err := unix.SchedSetaffinity(0, &mask); err != nil { // 0 = current thread
		return 0, err
	}
	return cpuID, nil
}

// CurrentCore returns the CPU the calling thread is allowed on when it is
// pinned to exactly one core, or -1.
func CurrentCore() int {
	var mask unix.CPUSet
	if err := unix.SchedGetaffinity(0, &mask); err != nil || mask.Count() != 1 {
		return -1
	}
	for i := 0; i < runtime.NumCPU(); i++ {
		if mask.IsSet(i) {
			return i
		}
	}
	return -1
}

// SetupWorkerAffinity locks the calling goroutine to its OS thread and, when
// pin is set, pins that thread to core workerID mod NumCPU. The returned
// cleanup must be deferred by the same goroutine.
func SetupWorkerAffinity(workerID int, pin bool) (func(), error) {
	runtime.LockOSThread()
	if pin {
		if _, err := pinToCore(workerID); err != nil {
			runtime.UnlockOSThread()
			return func() {}, err
		}
	}

	return func() {
		runtime.UnlockOSThread()
	}, nil
}
