package worker

import (
	"context"

	"go.uber.org/zap"

	audit "trustid/pkg/platform/audit"
)

// Worker consumes audit events from a channel and hands them to a sink. A sink
// error is logged and the worker moves on; audit delivery never stops the
// producer.
type Worker struct {
	sink   audit.Sink
	inbox  <-chan audit.Event
	logger *zap.Logger
}

func NewWorker(sink audit.Sink, inbox <-chan audit.Event, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run drains the inbox until it is closed or ctx is cancelled. Returns nil once
// the inbox is closed and fully drained.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.sink.Append(ctx, event); err != nil {
				w.logger.Warn("audit sink append failed",
					zap.String("action", event.Action),
					zap.String("case_id", event.CaseID),
					zap.Error(err),
				)
			}
		}
	}
}
