package worker

import (
	"context"
	"time"

	"github.com/logmirror/slacksheet/pkg/usecase"
	"github.com/logmirror/slacksheet/pkg/utils/logging"
)

// FlushWorker drains the pending update queue on an interval so updates
// are not stranded when webhook traffic stops below the flush threshold.
//
// Architecture assumptions:
// - Single server instance (the queue is process-local)
type FlushWorker struct {
	queue    *usecase.PendingQueue
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewFlushWorker(queue *usecase.PendingQueue, interval time.Duration) *FlushWorker {
	return &FlushWorker{
		queue:    queue,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background flush loop. Does not block.
func (w *FlushWorker) Start(ctx context.Context) {
	logging.Default().Info("flush worker starting", "interval", w.interval.String())
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for completion
func (w *FlushWorker) Stop() {
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("flush worker stopped")
}

func (w *FlushWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if w.queue.Len() == 0 {
				continue
			}
			if err := w.queue.FlushAll(ctx); err != nil {
				// Keep the loop alive; the error is already logged with
				// its spreadsheet context
				logging.Default().Error("periodic flush failed", "error", err.Error())
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("flush worker context cancelled")
			return
		}
	}
}
