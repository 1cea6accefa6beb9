package importer

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

type outcome int

const (
	outcomeStored outcome = iota
	outcomeSkipped
	outcomeFailed
)

// tally counts what happened to each line and, when given a writer, shows the
// running counts on a progress bar.
type tally struct {
	mu     sync.Mutex
	counts Result
	bar    *progressbar.ProgressBar
	w      io.Writer
}

func newTally(w io.Writer, total int) *tally {
	t := &tally{w: w}
	if w == nil {
		return t
	}
	t.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(t.description()),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
	return t
}

func (t *tally) record(o outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch o {
	case outcomeStored:
		t.counts.Stored++
	case outcomeSkipped:
		t.counts.Skipped++
	case outcomeFailed:
		t.counts.Failed++
	}

	if t.bar != nil {
		t.bar.Describe(t.description())
		_ = t.bar.Add(1)
	}
}

// description must be called with mu held.
func (t *tally) description() string {
	return fmt.Sprintf("Importing messages (%d stored, %d skipped, %d failed)",
		t.counts.Stored, t.counts.Skipped, t.counts.Failed)
}

func (t *tally) result() Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts
}

func (t *tally) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bar == nil {
		return
	}
	_ = t.bar.Finish()
	fmt.Fprint(t.w, "\r\033[K")
}
