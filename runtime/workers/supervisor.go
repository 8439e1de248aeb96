// Package workers holds the gateway's supervised background workers:
// store compaction and telemetry. Per-connection goroutines live in the
// transport package; only long-running, restartable work belongs here.
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-gateway/contract"
	"chat-gateway/errors"
)

// Supervisor runs each worker in its own goroutine, recovers panics,
// restarts crashed workers after a delay, and stops everything when the
// parent context is canceled. A failure in one worker never takes down
// the supervisor or its siblings.
type Supervisor struct {
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	log     *slog.Logger
	restart time.Duration
	workers []contract.Worker
}

func NewSupervisor(log *slog.Logger, restart time.Duration) *Supervisor {
	return &Supervisor{log: log, restart: restart}
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Run starts every registered worker under a context derived from ctx
// and returns immediately. If the parent cancels, the workers stop; if
// Stop is called, only the workers stop.
func (s *Supervisor) Run(ctx context.Context) {
	supervised, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for _, worker := range s.workers {
		s.start(supervised, worker)
	}
}

func (s *Supervisor) start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	name := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()

		for {
			if ctx.Err() != nil {
				s.log.Info(fmt.Sprintf("Stopping : %s", name))
				return
			}

			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
					}
				}()
				return worker.Run(ctx)
			}()

			if err == nil {
				// Terminated properly, never restart.
				s.log.Info(fmt.Sprintf("Worker finished : %s", name))
				return
			}
			if ctx.Err() != nil {
				s.log.Info("Worker stopped (context canceled)", "name", name)
				return
			}

			s.log.Warn("Worker crashed, restarting", "name", name, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.restart):
			}
		}
	}()
}

// Stop cancels the supervised context and waits for every worker
// goroutine to finish.
func (s *Supervisor) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
