package cmd

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// progress is the subset of the progress bar the run loop drives.
type progress interface {
	Add(num int) error
	Finish() error
}

type noopProgress struct{}

func (noopProgress) Add(int) error { return nil }
func (noopProgress) Finish() error { return nil }

// isTerminal reports whether w is a terminal.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// newProgress returns a bar on w when enabled, there is work to show and w is
// a terminal. Otherwise it returns a no-op.
func newProgress(w io.Writer, total int, enabled bool) progress {
	if !enabled || total == 0 || !isTerminal(w) {
		return noopProgress{}
	}

	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Converting"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
