// Package stress drives concurrent randomized I/O against a single shared
// file to put pressure on a storage stack.
//
// A Runner creates the target file at its configured size, opens it once
// (or once per worker), and spawns one worker per configured thread. Every
// worker issues bursts of reads or writes of random size at random offsets
// until its own deadline expires, then optionally touches the tail of the
// file. Transfers go through positional pread/pwrite calls or through a
// shared read-write memory mapping, optionally with O_DIRECT.
//
// # Basic Usage
//
//	cfg := stress.DefaultConfig("/mnt/scratch/target")
//	cfg.Threads = 16
//	cfg.Duration = 30 * time.Second
//
//	runner, err := stress.NewRunner(cfg)
//	if err != nil {
//	    return err
//	}
//	report, err := runner.Run(ctx)
//
// # Contention
//
// Workers share the descriptor and the mapping without any locking. Reads
// and writes to overlapping ranges race on purpose; the package never
// promises content consistency while a run is in progress.
//
// # Hooks
//
// Progress reporting and metrics plug in through runner options:
//
//	runner, err := stress.NewRunner(cfg,
//	    stress.WithBeforeBurst(func(b stress.BurstInfo) { ... }),
//	    stress.WithAfterBurst(func(r stress.BurstResult) { ... }),
//	    stress.WithOnTail(func(t stress.TailInfo) { ... }),
//	)
//
// Hooks run on the worker goroutine that produced the event and must be
// safe for concurrent use.
//
// # Errors
//
// Nothing is retried. The first failed open, size initialization, mapping,
// or short transfer cancels the run and is returned as an *OpError or a
// *TransferError.
package stress
