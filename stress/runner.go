package stress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Runner owns one stress run: it sizes the file, sets up the shared target,
// spawns the workers and releases everything once they are all done.
type Runner struct {
	cfg   Config
	hooks runnerConfig
}

// NewRunner validates cfg and applies the given options.
func NewRunner(cfg Config, opts ...RunnerOption) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{cfg: cfg}
	for _, opt := range opts {
		opt(&r.hooks)
	}
	return r, nil
}

// Config returns a copy of the validated configuration.
func (r *Runner) Config() Config { return r.cfg }

// Run executes the stress run and blocks until every worker terminated.
// The first worker failure cancels the others and is returned; the shared
// target is released only after all workers returned.
func (r *Runner) Run(ctx context.Context) (report *Report, err error) {
	cfg := &r.cfg

	if err := InitializeSize(cfg.Path, cfg.FileSize, cfg.CacheBypass); err != nil {
		return nil, err
	}

	var shared *Target
	if !cfg.PerThreadFD {
		shared, err = OpenTarget(cfg)
		if err != nil {
			return nil, err
		}
		defer func() {
			if cerr := shared.Close(); cerr != nil {
				err = errors.Join(err, &OpError{Op: OpClose, Path: cfg.Path, Err: cerr})
			}
		}()
	}

	workers := make([]*worker, cfg.Threads)
	for i := range workers {
		workers[i] = newWorker(i, cfg, &r.hooks, shared)
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error {
			if err := w.run(gctx); err != nil {
				return fmt.Errorf("worker %d: %w", w.id, err)
			}
			return nil
		})
	}
	waitErr := g.Wait()

	report = &Report{
		Seed:    cfg.Seed,
		Threads: cfg.Threads,
		Mode:    cfg.Mode.String(),
		Mapped:  cfg.Mapped,
		Elapsed: time.Since(start),
		Workers: make([]WorkerStats, len(workers)),
	}
	for i, w := range workers {
		report.Workers[i] = w.stats
	}

	if waitErr != nil {
		return report, waitErr
	}
	return report, nil
}
