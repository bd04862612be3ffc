package cli

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// barReporter draws RECORD verification progress on stderr
type barReporter struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newBarReporter(w io.Writer) *barReporter {
	return &barReporter{w: w}
}

func (r *barReporter) Begin(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.w),
		progressbar.OptionSetDescription("verifying"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *barReporter) Advance(distribution string) {
	if r.bar == nil {
		return
	}
	r.bar.Describe(distribution)
	_ = r.bar.Add(1)
}

func (r *barReporter) Done() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}
