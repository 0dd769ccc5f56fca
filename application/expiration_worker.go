package application

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// SweepMetrics records reaper activity; satisfied by the observability
// metrics provider
type SweepMetrics interface {
	RecordExpirationSweep(duration time.Duration, processed, failed int)
}

// ExpirationWorker periodically expires overdue pending exchange requests so
// escrowed coins never stay locked behind a request nobody resolved
type ExpirationWorker struct {
	app      *ExchangeApp
	interval time.Duration
	metrics  SweepMetrics
}

// NewExpirationWorker creates a new expiration worker. metrics may be nil.
func NewExpirationWorker(app *ExchangeApp, interval time.Duration, metrics SweepMetrics) *ExpirationWorker {
	return &ExpirationWorker{
		app:      app,
		interval: interval,
		metrics:  metrics,
	}
}

// Start begins the expiration worker and returns a stop function
func (w *ExpirationWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.WithField("interval", w.interval).Info("Expiration worker started")

		// Sweep once at startup to clear anything that went overdue while
		// the service was down
		w.runSweep(ctx)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Expiration worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Expiration worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				w.runSweep(ctx)
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

func (w *ExpirationWorker) runSweep(ctx context.Context) {
	start := time.Now()

	result, err := w.app.RunExpirationSweep(ctx)
	if err != nil {
		log.Errorf("Expiration sweep failed: %v", err)
		return
	}

	if w.metrics != nil {
		w.metrics.RecordExpirationSweep(time.Since(start), result.ProcessedCount, result.FailedCount)
	}
}
