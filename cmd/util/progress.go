package util

import (
	"fmt"
	"io"
	"time"
)

// ClearProgress is the ANSI escape sequence for erasing the current line of
// the terminal. It can be passed to StopWithPrint to remove the progress
// output once the operation has finished.
const ClearProgress = "\r\033[2K"

// ProgressPrinter periodically prints dots so that users can tell a
// long-running operation is still making progress.
type ProgressPrinter struct {
	out     io.Writer
	message string
	stop    chan struct{}
	stopped chan struct{}
}

// NewProgressPrinter creates a printer that writes `message` to `out`,
// followed by a dot every second until it's stopped.
func NewProgressPrinter(out io.Writer, message string) *ProgressPrinter {
	return &ProgressPrinter{
		out:     out,
		message: message,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Run starts the printer. It's meant to be run in a goroutine, and blocks
// until Stop or StopWithPrint is called.
func (pp *ProgressPrinter) Run() {
	defer close(pp.stopped)
	fmt.Fprint(pp.out, pp.message)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fmt.Fprint(pp.out, ".")
		case <-pp.stop:
			return
		}
	}
}

// Stop terminates the printer and moves the cursor to the next line.
func (pp *ProgressPrinter) Stop() {
	pp.StopWithPrint("\n")
}

// StopWithPrint terminates the printer and writes the given string in place
// of the trailing newline.
func (pp *ProgressPrinter) StopWithPrint(toPrint string) {
	close(pp.stop)
	<-pp.stopped
	fmt.Fprint(pp.out, toPrint)
}
