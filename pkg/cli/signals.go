package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// shutdownSignals are the signals treated as a request to stop: Ctrl-C
// and the signal service managers send on stop.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// ShutdownContext returns a context canceled on SIGINT or SIGTERM. The
// returned stop function releases the signal registration; after cancel,
// a second signal kills the process with the default behavior, so a hung
// shutdown can still be interrupted.
func ShutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, shutdownSignals...)
}

// WaitForShutdown returns a channel that receives the first shutdown
// signal. Used by commands that want to log which signal arrived before
// stopping.
func WaitForShutdown() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, shutdownSignals...)
	return sigChan
}
