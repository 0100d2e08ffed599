package report

import (
	"context"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

const progressTick = 100 * time.Millisecond

// MakeProgressBar returns a bar counting the run duration in ticks.
func MakeProgressBar(w io.Writer, d time.Duration) *progressbar.ProgressBar {
	return progressbar.NewOptions64(int64(d/progressTick),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Stressing"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionThrottle(progressTick),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionClearOnFinish(),
	)
}

// TrackDuration advances a progress bar on w until d elapsed or ctx is
// done. The returned function stops the bar and waits for it to finish.
func TrackDuration(ctx context.Context, w io.Writer, d time.Duration) (stop func()) {
	bar := MakeProgressBar(w, d)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(progressTick)
		defer ticker.Stop()

		start := time.Now()
		for {
			select {
			case <-ctx.Done():
				_ = bar.Finish()
				return
			case <-ticker.C:
				n := int64(time.Since(start) / progressTick)
				if n >= bar.GetMax64() {
					_ = bar.Finish()
					return
				}
				_ = bar.Set64(n)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
