// Package report renders a stress run on the console: the startup banner,
// verbose per-burst lines, an optional progress bar and the final summary.
package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/utkarsh5026/multirw/stress"
)

var (
	Bold   = color.New(color.Bold)
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Blue   = color.New(color.FgBlue)
)

// Console writes human-oriented run output. Its hooks are called from
// every worker goroutine, so all writes go through one mutex.
type Console struct {
	mu        sync.Mutex
	w         io.Writer
	verbosity uint8
}

// NewConsole returns a console writing to w.
func NewConsole(w io.Writer, verbosity uint8) *Console {
	return &Console{w: w, verbosity: verbosity}
}

func (c *Console) printf(col *color.Color, format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if col == nil {
		_, _ = fmt.Fprintf(c.w, format, a...)
		return
	}
	_, _ = col.Fprintf(c.w, format, a...)
}

// Banner prints the startup line and, when verbose, the configuration.
func (c *Console) Banner(cfg stress.Config) {
	c.printf(Bold, "MultiRW [seed: %d] %d threads to file '%s' during %ds\n",
		cfg.Seed, cfg.Threads, cfg.Path, int64(cfg.Duration.Seconds()))

	if c.verbosity == 0 {
		return
	}
	c.printf(nil, "[file size: %s (%d), mmap: %t, iotype: %s, io size max: %s,\n"+
		"io burst: %s, read last bytes: %t, use a FD per thread: %t, bypass cache: %t]\n\n",
		humanize.IBytes(cfg.FileSize), cfg.FileSize, cfg.Mapped, cfg.Mode,
		humanize.IBytes(uint64(cfg.MaxIOSize)), humanize.Comma(int64(cfg.BurstCount)),
		cfg.TouchFinalChunk, cfg.PerThreadFD, cfg.CacheBypass)
}

// Burst prints the line announcing a burst.
func (c *Console) Burst(b stress.BurstInfo) {
	col := Blue
	if b.Mode == stress.ModeWrite {
		col = Yellow
	}
	c.printf(col, "Thread #%d \t- %s burst (%d IOs with random size & offset)\n",
		b.Worker, b.Mode, b.Count)
}

// Tail prints the line announcing a final-chunk transfer.
func (c *Console) Tail(info stress.TailInfo) {
	verb := "Reading"
	if info.Transfer.Mode == stress.ModeWrite {
		verb = "Writing"
	}
	c.printf(Green, "Thread #%d \t- %s last %d bytes.\n", info.Worker, verb, info.Transfer.Size)
}

// Options returns the runner hooks for verbose output, or nil when the
// console is quiet.
func (c *Console) Options() []stress.RunnerOption {
	if c.verbosity == 0 {
		return nil
	}
	return []stress.RunnerOption{
		stress.WithBeforeBurst(c.Burst),
		stress.WithOnTail(c.Tail),
	}
}
