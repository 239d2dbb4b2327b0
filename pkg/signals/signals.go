package signals

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dennishilgert/fnexec/pkg/logger"
)

var (
	log = logger.NewLogger("fnexec.signals")

	shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

	once     sync.Once
	shutdown context.Context
)

// Context returns a context that is cancelled on SIGINT or SIGTERM. Running
// invocations get killed with it. A second signal exits immediately.
func Context() context.Context {
	once.Do(func() {
		var cancel context.CancelFunc
		shutdown, cancel = context.WithCancel(context.Background())

		sigCh := make(chan os.Signal, 2)
		signal.Notify(sigCh, shutdownSignals...)

		go func() {
			sig := <-sigCh
			log.Infof("received signal %s, shutting down", sig)
			cancel()
			sig = <-sigCh
			log.Fatalf("received signal %s during shutdown, exiting immediately", sig)
		}()
	})
	return shutdown
}
