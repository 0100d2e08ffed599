package stress

import (
	"context"
	"fmt"
	"time"

	"github.com/ncw/directio"
	"golang.org/x/time/rate"

	"github.com/utkarsh5026/multirw/internal/cpu"
)

// worker is the exclusive state of one I/O stream. Only the goroutine
// running it touches its fields until run returns.
type worker struct {
	id     int
	cfg    *Config
	hooks  *runnerConfig
	shared *Target

	target  *Target
	gen     *Generator
	limiter *rate.Limiter
	rbuf    []byte
	wbuf    []byte
	stats   WorkerStats
}

func newWorker(id int, cfg *Config, hooks *runnerConfig, shared *Target) *worker {
	var align uint64
	if cfg.Align {
		align = AlignSize
	}

	w := &worker{
		id:     id,
		cfg:    cfg,
		hooks:  hooks,
		shared: shared,
		gen:    NewGenerator(workerSeed(cfg.Seed, id), align),
		stats:  WorkerStats{ID: id},
	}
	if cfg.RateLimit > 0 {
		w.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	return w
}

// run walks the worker through open, allocate, timed loop, tail touch and
// cleanup. Any error aborts the worker immediately.
func (w *worker) run(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { w.stats.Elapsed = time.Since(start) }()

	release, err := cpu.SetupWorkerAffinity(w.id, w.cfg.PinCPU)
	defer release()
	if err != nil {
		return fmt.Errorf("pin worker %d: %w", w.id, err)
	}

	if w.cfg.PerThreadFD {
		t, oerr := OpenTarget(w.cfg)
		if oerr != nil {
			return oerr
		}
		defer func() {
			if cerr := t.Close(); err == nil && cerr != nil {
				err = &OpError{Op: OpClose, Path: w.cfg.Path, Err: cerr}
			}
		}()
		w.target = t
	} else {
		w.target = w.shared
	}

	w.rbuf, w.wbuf = w.allocBuffers()
	defer func() { w.rbuf, w.wbuf = nil, nil }()

	fill := w.gen.FillByte()
	for i := range w.wbuf {
		w.wbuf[i] = fill
	}

	loopStart := time.Now()
	for burst := uint64(0); time.Since(loopStart) < w.cfg.Duration; burst++ {
		if err := w.doBurst(ctx, burst); err != nil {
			return err
		}
	}

	if w.cfg.TouchFinalChunk {
		return w.touchTail(ctx)
	}
	return nil
}

// allocBuffers returns the read and write buffers, aligned for O_DIRECT
// when the cache is bypassed.
func (w *worker) allocBuffers() ([]byte, []byte) {
	size := int(w.cfg.MaxIOSize)
	if w.cfg.CacheBypass {
		return directio.AlignedBlock(size), directio.AlignedBlock(size)
	}
	return make([]byte, size), make([]byte, size)
}

// doBurst issues BurstCount transfers of a single mode.
func (w *worker) doBurst(ctx context.Context, burst uint64) error {
	mode := w.gen.BurstMode(w.cfg.Mode)
	w.hooks.fireBefore(BurstInfo{Worker: w.id, Burst: burst, Mode: mode, Count: w.cfg.BurstCount})

	started := time.Now()
	var bytes uint64
	done := ctx.Done()
	for range w.cfg.BurstCount {
		select {
		case <-done:
			return ctx.Err()
		default:
		}
		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		t := w.gen.Next(mode, w.cfg.MaxIOSize, w.cfg.FileSize)
		if err := w.target.transfer(mode, w.rbuf, w.wbuf, t.Size, t.Offset); err != nil {
			return err
		}
		w.stats.record(t)
		bytes += uint64(t.Size)
		if len(w.hooks.onTransfer) > 0 {
			w.hooks.fireTransfer(TransferInfo{Worker: w.id, Burst: burst, Transfer: t})
		}
	}

	w.stats.Bursts++
	w.hooks.fireAfter(BurstResult{
		Worker:   w.id,
		Burst:    burst,
		Mode:     mode,
		Count:    w.cfg.BurstCount,
		Bytes:    bytes,
		Duration: time.Since(started),
	})
	return nil
}

// touchTail performs one transfer ending on the last byte of the file.
func (w *worker) touchTail(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t := w.gen.Tail(w.cfg.tailMode(), w.cfg.MaxIOSize, w.cfg.FileSize)
	if err := w.target.transfer(t.Mode, w.rbuf, w.wbuf, t.Size, t.Offset); err != nil {
		return err
	}
	w.stats.record(t)
	w.stats.Tail = &t
	w.hooks.fireTail(TailInfo{Worker: w.id, Transfer: t})
	return nil
}
