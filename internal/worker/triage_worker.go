package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ticketops/triage-service/internal/pipeline"
	"github.com/ticketops/triage-service/internal/queue"
)

const dequeueTimeout = 5 * time.Second

// TriageWorker consumes triage events and drives the pipeline. One
// goroutine processes events sequentially; concurrency across tickets
// comes from running multiple workers.
type TriageWorker struct {
	queue        *queue.TriageQueue
	orchestrator *pipeline.Orchestrator
	logger       *zap.Logger
}

// NewTriageWorker constructs the worker.
func NewTriageWorker(q *queue.TriageQueue, orchestrator *pipeline.Orchestrator, logger *zap.Logger) *TriageWorker {
	return &TriageWorker{queue: q, orchestrator: orchestrator, logger: logger}
}

// Run consumes events until the context is cancelled.
func (w *TriageWorker) Run(ctx context.Context) {
	w.logger.Info("triage worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("triage worker stopped")
			return
		default:
		}

		event, err := w.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("triage worker stopped")
				return
			}
			w.logger.Warn("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if event == nil {
			continue
		}

		success := w.orchestrator.RunWithRetry(ctx, event.TicketID)
		w.logger.Info("triage run finished",
			zap.String("ticket_id", event.TicketID),
			zap.String("event_id", event.ID),
			zap.Bool("success", success))
	}
}
