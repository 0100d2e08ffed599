package stress

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunner_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxIOSize = uint32(cfg.FileSize)

	_, err := NewRunner(cfg)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if _, statErr := os.Stat(cfg.Path); !os.IsNotExist(statErr) {
		t.Error("the target file must not be touched when the config is rejected")
	}
}

func TestRunner_Scenario(t *testing.T) {
	cfg := testConfig(t)
	cfg.Duration = time.Second

	runner, err := NewRunner(cfg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	start := time.Now()
	report, err := runner.Run(context.Background())
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if elapsed < time.Second {
		t.Errorf("run returned after %v, before its duration", elapsed)
	}
	if elapsed > 5*time.Second {
		t.Errorf("run took too long: %v", elapsed)
	}
	if len(report.Workers) != 4 {
		t.Fatalf("expected 4 worker reports, got %d", len(report.Workers))
	}
	for i, w := range report.Workers {
		if w.ID != i {
			t.Errorf("worker %d reported id %d", i, w.ID)
		}
		if w.Bursts == 0 {
			t.Errorf("worker %d ran no bursts", i)
		}
		if w.Tail == nil {
			t.Errorf("worker %d skipped the tail touch", i)
		}
		if got := w.Transfers(); got != w.Bursts*uint64(cfg.BurstCount)+1 {
			t.Errorf("worker %d: expected %d transfers, got %d", i, w.Bursts*uint64(cfg.BurstCount)+1, got)
		}
	}
	if got := fileSize(t, cfg.Path); got != int64(cfg.FileSize) {
		t.Errorf("file size changed to %d", got)
	}
}

func TestRunner_Modes(t *testing.T) {
	type variant struct {
		name   string
		mutate func(*Config)
	}
	variants := []variant{
		{"read/shared", func(c *Config) { c.Mode = ModeRead }},
		{"write/shared", func(c *Config) { c.Mode = ModeWrite }},
		{"rw/per-thread", func(c *Config) { c.PerThreadFD = true }},
		{"rw/mmap", func(c *Config) { c.Mapped = true }},
		{"write/mmap/per-thread", func(c *Config) { c.Mode = ModeWrite; c.Mapped = true; c.PerThreadFD = true }},
		{"read/mmap", func(c *Config) { c.Mode = ModeRead; c.Mapped = true }},
		{"aligned", func(c *Config) { c.Align = true }},
		{"no tail", func(c *Config) { c.TouchFinalChunk = false }},
		{"bypass/aligned", func(c *Config) { c.CacheBypass = true; c.Align = true; c.MaxIOSize = 16 << 10 }},
		{"bypass/aligned/write/per-thread", func(c *Config) {
			c.CacheBypass = true
			c.Align = true
			c.MaxIOSize = 16 << 10
			c.Mode = ModeWrite
			c.PerThreadFD = true
		}},
	}

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Duration = 50 * time.Millisecond
			v.mutate(&cfg)
			if cfg.CacheBypass {
				requireDirectIO(t, filepath.Dir(cfg.Path))
			}

			runner, err := NewRunner(cfg)
			if err != nil {
				t.Fatal(err)
			}
			report, err := runner.Run(context.Background())
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}

			total := report.Totals()
			switch cfg.Mode {
			case ModeRead:
				if total.Writes != 0 {
					t.Errorf("read run issued %d writes", total.Writes)
				}
			case ModeWrite:
				if total.Reads != 0 {
					t.Errorf("write run issued %d reads", total.Reads)
				}
			}
			for _, w := range report.Workers {
				if (w.Tail != nil) != cfg.TouchFinalChunk {
					t.Errorf("worker %d: tail=%v with TouchFinalChunk=%v", w.ID, w.Tail != nil, cfg.TouchFinalChunk)
				}
			}
		})
	}
}

func TestRunner_BurstsAreHomogeneous(t *testing.T) {
	cfg := testConfig(t)
	cfg.Duration = 50 * time.Millisecond

	var mu sync.Mutex
	modes := map[[2]uint64]IOMode{}
	var before, after atomic.Int64

	runner, err := NewRunner(cfg,
		WithBeforeBurst(func(b BurstInfo) {
			before.Add(1)
			mu.Lock()
			modes[[2]uint64{uint64(b.Worker), b.Burst}] = b.Mode
			mu.Unlock()
		}),
		WithAfterBurst(func(r BurstResult) {
			after.Add(1)
			mu.Lock()
			defer mu.Unlock()
			if m, ok := modes[[2]uint64{uint64(r.Worker), r.Burst}]; !ok || m != r.Mode {
				t.Errorf("burst %d of worker %d changed mode", r.Burst, r.Worker)
			}
			if r.Count != cfg.BurstCount {
				t.Errorf("expected %d transfers per burst, got %d", cfg.BurstCount, r.Count)
			}
		}),
	)
	if err != nil {
		t.Fatal(err)
	}

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if before.Load() != after.Load() {
		t.Errorf("before hooks %d != after hooks %d", before.Load(), after.Load())
	}
	if got := report.Totals().Bursts; got != uint64(after.Load()) {
		t.Errorf("report counts %d bursts, hooks saw %d", got, after.Load())
	}
}

func TestRunner_TailCoverage(t *testing.T) {
	for _, mapped := range []bool{false, true} {
		cfg := testConfig(t)
		cfg.Duration = 0
		cfg.Mode = ModeWrite
		cfg.Mapped = mapped

		var covered atomic.Int32
		runner, err := NewRunner(cfg, WithOnTail(func(info TailInfo) {
			last := int64(cfg.FileSize) - 1
			if info.Transfer.Offset <= last && last < info.Transfer.End() {
				covered.Add(1)
			}
		}))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := runner.Run(context.Background()); err != nil {
			t.Fatalf("mapped=%v: run failed: %v", mapped, err)
		}
		if covered.Load() != int32(cfg.Threads) {
			t.Errorf("mapped=%v: expected %d tail touches over the last byte, got %d", mapped, cfg.Threads, covered.Load())
		}
		if got := fileSize(t, cfg.Path); got != int64(cfg.FileSize) {
			t.Errorf("mapped=%v: tail write changed the file size to %d", mapped, got)
		}
	}
}

func TestRunner_CacheBypassAlignedTail(t *testing.T) {
	for _, mode := range []IOMode{ModeRead, ModeWrite} {
		t.Run(mode.String(), func(t *testing.T) {
			cfg := testConfig(t)
			requireDirectIO(t, filepath.Dir(cfg.Path))
			cfg.CacheBypass = true
			cfg.Align = true
			cfg.Mode = mode
			cfg.MaxIOSize = 8192
			cfg.Duration = 20 * time.Millisecond

			var tails atomic.Int32
			runner, err := NewRunner(cfg, WithOnTail(func(info TailInfo) {
				tr := info.Transfer
				if tr.Offset%AlignSize != 0 || tr.Size%AlignSize != 0 {
					t.Errorf("worker %d: unaligned tail %+v", info.Worker, tr)
				}
				if tr.End() != int64(cfg.FileSize) {
					t.Errorf("worker %d: tail %+v does not reach the last byte", info.Worker, tr)
				}
				tails.Add(1)
			}))
			if err != nil {
				t.Fatal(err)
			}
			if _, err := runner.Run(context.Background()); err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if tails.Load() != int32(cfg.Threads) {
				t.Errorf("expected %d tail touches, got %d", cfg.Threads, tails.Load())
			}
		})
	}
}

func TestRunner_Deterministic(t *testing.T) {
	collect := func() map[int][]Transfer {
		cfg := testConfig(t)
		cfg.Duration = 30 * time.Millisecond

		var mu sync.Mutex
		seen := map[int][]Transfer{}
		runner, err := NewRunner(cfg, WithOnTransfer(func(info TransferInfo) {
			mu.Lock()
			seen[info.Worker] = append(seen[info.Worker], info.Transfer)
			mu.Unlock()
		}))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := runner.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
		return seen
	}

	a, b := collect(), collect()
	if len(a) != len(b) {
		t.Fatalf("runs saw %d and %d workers", len(a), len(b))
	}
	for id, transfers := range a {
		other := b[id]
		n := min(len(transfers), len(other))
		if n == 0 {
			t.Fatalf("worker %d issued no transfers", id)
		}
		for i := 0; i < n; i++ {
			if transfers[i] != other[i] {
				t.Fatalf("worker %d transfer %d: %+v vs %+v", id, i, transfers[i], other[i])
			}
		}
	}
}

func TestRunner_CancelledContext(t *testing.T) {
	cfg := testConfig(t)
	cfg.Duration = time.Hour

	runner, err := NewRunner(cfg)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = runner.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("workers did not stop after cancellation")
	}
}

func TestRunner_RateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Threads = 2
	cfg.BurstCount = 5
	cfg.Duration = 200 * time.Millisecond
	cfg.RateLimit = 50
	cfg.RateBurst = 1
	cfg.TouchFinalChunk = false

	runner, err := NewRunner(cfg)
	if err != nil {
		t.Fatal(err)
	}
	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// 50 transfers/sec per worker over ~200ms, plus the burst that crosses
	// the deadline, stays well below 100 per worker.
	for _, w := range report.Workers {
		if w.Transfers() > 100 {
			t.Errorf("worker %d issued %d transfers despite the rate limit", w.ID, w.Transfers())
		}
	}
}

func TestRunner_FailureIsFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Duration = time.Second
	cfg.Threads = 2
	cfg.Mode = ModeRead

	runner, err := NewRunner(cfg, WithBeforeBurst(func(b BurstInfo) {
		// Reads from an emptied file come back short.
		_ = os.Truncate(cfg.Path, 0)
	}))
	if err != nil {
		t.Fatal(err)
	}

	_, err = runner.Run(context.Background())
	var terr *TransferError
	if !errors.As(err, &terr) {
		t.Fatalf("expected a TransferError, got %v", err)
	}
}
