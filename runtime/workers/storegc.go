package workers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"chat-gateway/contract"
)

var _ contract.Worker = (*StoreGCWorker)(nil)

// StoreGCWorker periodically rewrites badger value-log files so the
// append-only message log does not grow without bound on disk.
type StoreGCWorker struct {
	db       *badger.DB
	log      *slog.Logger
	interval time.Duration
}

func NewStoreGCWorker(db *badger.DB, log *slog.Logger, interval time.Duration) *StoreGCWorker {
	return &StoreGCWorker{db: db, log: log, interval: interval}
}

func (w *StoreGCWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping store GC worker")
			return nil
		case <-ticker.C:
			// One pass per tick; ErrNoRewrite only means there was
			// nothing to reclaim.
			err := w.db.RunValueLogGC(0.5)
			if err != nil && !stderrors.Is(err, badger.ErrNoRewrite) {
				w.log.Warn("Value log GC failed", "err", err)
			}
		}
	}
}
