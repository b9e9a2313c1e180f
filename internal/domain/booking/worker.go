package booking

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Completer is the part of Service the completion worker drives.
type Completer interface {
	CompleteElapsed(ctx context.Context, now time.Time) (int64, error)
}

// Worker periodically marks elapsed confirmed bookings as completed
type Worker struct {
	completer Completer
	interval  time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewWorker creates a new completion worker
func NewWorker(completer Completer, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Worker{
		completer: completer,
		interval:  interval,
		now:       time.Now,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start begins the background worker. Only the first call has effect.
func (w *Worker) Start() {
	w.startOnce.Do(func() {
		log.Info().Dur("interval", w.interval).Msg("Starting booking completion worker...")
		go w.loop()
	})
}

// Stop stops the worker and waits for an in-flight run to finish.
// A worker that was never started, or is stopped first, will not start afterwards.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		log.Info().Msg("Stopping booking completion worker...")
		close(w.stopCh)
	})
	// claim the start slot so a never-started worker has no loop to wait for
	w.startOnce.Do(func() { close(w.done) })
	<-w.done
}

func (w *Worker) loop() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately on startup
	w.RunOnce()

	for {
		select {
		case <-ticker.C:
			w.RunOnce()
		case <-w.stopCh:
			return
		}
	}
}

// RunOnce completes elapsed bookings a single time.
func (w *Worker) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := w.completer.CompleteElapsed(ctx, w.now()); err != nil {
		log.Error().Err(err).Msg("Failed to complete elapsed bookings")
	}
}
