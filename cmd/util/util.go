package util

import (
	"fmt"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/openaerialmap/oam-mirror/pkg/errors"
)

// HandleFatalError prints the user-facing representation of the given error
// and exits with a non-zero status. The full error chain is still logged at
// debug level for troubleshooting.
func HandleFatalError(err error) {
	log.Debugf("Exiting due to fatal error: %v", err)
	fmt.Fprintln(os.Stderr, errors.GetPrintableMessage(err))
	os.Exit(1)
}

// HandlePanic recovers from panics in the main goroutine so that we can
// print something more helpful than a bare stack trace. It should be
// deferred at the top of main.
func HandlePanic() {
	r := recover()
	if r == nil {
		return
	}

	fmt.Fprintf(os.Stderr, "oam-mirror crashed: %v\n\n%s", r, debug.Stack())
	os.Exit(1)
}
