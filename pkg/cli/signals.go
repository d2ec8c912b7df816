package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownSignals are the signals that stop a running command.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// SetupSignalHandler returns a context derived from parent that is canceled
// on SIGINT or SIGTERM. A second signal is not intercepted, so it terminates
// the process immediately. Call stop to release the signal handler.
func SetupSignalHandler(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(parent, ShutdownSignals...)
}
