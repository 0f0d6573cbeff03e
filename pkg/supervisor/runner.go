package supervisor

import (
	"context"
	"os"
	"os/signal"
)

// RunWithSignals runs the supervisor and turns shutdown signals into a cleanup request
func RunWithSignals(ctx context.Context, sup *Supervisor, args []string) (Outcome, error) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, shutdownSignals...)
	defer signal.Stop(sig)

	stopped := make(chan struct{})
	defer close(stopped)

	go func() {
		for {
			select {
			case receivedSignal := <-sig:
				sup.logger.Infof("Supervisor received signal: %v", receivedSignal)
				sup.RequestCleanup("signal " + receivedSignal.String())
			case <-stopped:
				return
			}
		}
	}()

	return sup.Run(ctx, args)
}
