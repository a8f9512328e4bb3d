package worker

import (
	"context"
	"log/slog"

	audit "amlcore/pkg/platform/audit"
)

// Worker consumes ledger events from a channel and persists them. Each
// outcome is reported through onResult (nil on success). Failures never stop
// the loop: the ledger is a best-effort side channel.
type Worker struct {
	store    audit.Store
	inbox    <-chan audit.Event
	logger   *slog.Logger
	onResult func(error)
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger, onResult func(error)) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger, onResult: onResult}
}

// Run persists events until the inbox is closed. Events still buffered when
// the inbox closes are drained first. Each append uses ctx, so cancelling it
// does not stop the drain but does abort in-flight writes.
func (w *Worker) Run(ctx context.Context) {
	for event := range w.inbox {
		err := w.store.Append(ctx, event)
		if err != nil {
			w.logger.WarnContext(ctx, "ledger append failed",
				"action", event.Action,
				"subject", event.Subject,
				"error", err,
			)
		}
		if w.onResult != nil {
			w.onResult(err)
		}
	}
}
