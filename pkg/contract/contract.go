// Package contract holds the fail-fast primitives used at the edges of the
// program. They never return control to the caller in production: the
// diagnostic is logged at fatal level and the process exits with status 1.
package contract

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/saworbit/ioprimer/internal/logging"
	"github.com/saworbit/ioprimer/internal/metrics"
)

// Abort reasons, used as the metrics label.
const (
	ReasonPrecondition = "precondition"
	ReasonIO           = "io"
)

// Require aborts the process with msg when condition is false.
func Require(condition bool, msg string) {
	if !condition {
		abort(ReasonPrecondition, msg)
	}
}

// Fail unconditionally abandons the process.
func Fail(reason, msg string) {
	abort(reason, msg)
}

// Failf is Fail with a formatted message.
func Failf(reason, format string, args ...interface{}) {
	abort(reason, fmt.Sprintf(format, args...))
}

func abort(reason, msg string) {
	metrics.ObserveAbort(reason)
	logging.Log.WithField("reason", reason).Fatal(color.New(color.FgRed, color.Bold).Sprint(msg))
}
