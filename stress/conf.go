package stress

import "time"

// RunnerOption is a functional option for configuring a Runner.
type RunnerOption func(*runnerConfig)

type runnerConfig struct {
	beforeBurst []func(BurstInfo)
	afterBurst  []func(BurstResult)
	onTail      []func(TailInfo)
	onTransfer  []func(TransferInfo)
}

// BurstInfo describes a burst about to start.
type BurstInfo struct {
	Worker int
	Burst  uint64
	Mode   IOMode
	Count  uint32
}

// BurstResult describes a finished burst.
type BurstResult struct {
	Worker   int
	Burst    uint64
	Mode     IOMode
	Count    uint32
	Bytes    uint64
	Duration time.Duration
}

// TransferInfo describes a completed timed-loop transfer.
type TransferInfo struct {
	Worker   int
	Burst    uint64
	Transfer Transfer
}

// TailInfo describes a completed final-chunk transfer.
type TailInfo struct {
	Worker   int
	Transfer Transfer
}

// WithBeforeBurst registers fn to run on the worker goroutine right before
// each burst. It may be given several times; hooks run in order.
func WithBeforeBurst(fn func(BurstInfo)) RunnerOption {
	return func(cfg *runnerConfig) {
		if fn != nil {
			cfg.beforeBurst = append(cfg.beforeBurst, fn)
		}
	}
}

// WithAfterBurst registers fn to run on the worker goroutine after each
// burst completed without error.
func WithAfterBurst(fn func(BurstResult)) RunnerOption {
	return func(cfg *runnerConfig) {
		if fn != nil {
			cfg.afterBurst = append(cfg.afterBurst, fn)
		}
	}
}

// WithOnTail registers fn to run after a worker's final-chunk transfer.
func WithOnTail(fn func(TailInfo)) RunnerOption {
	return func(cfg *runnerConfig) {
		if fn != nil {
			cfg.onTail = append(cfg.onTail, fn)
		}
	}
}

// WithOnTransfer registers fn to run after every timed-loop transfer. It
// sits on the hot path; keep it cheap.
func WithOnTransfer(fn func(TransferInfo)) RunnerOption {
	return func(cfg *runnerConfig) {
		if fn != nil {
			cfg.onTransfer = append(cfg.onTransfer, fn)
		}
	}
}

func (c *runnerConfig) fireBefore(info BurstInfo) {
	for _, fn := range c.beforeBurst {
		fn(info)
	}
}

func (c *runnerConfig) fireAfter(res BurstResult) {
	for _, fn := range c.afterBurst {
		fn(res)
	}
}

func (c *runnerConfig) fireTail(info TailInfo) {
	for _, fn := range c.onTail {
		fn(info)
	}
}

func (c *runnerConfig) fireTransfer(info TransferInfo) {
	for _, fn := range c.onTransfer {
		fn(info)
	}
}
