package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

var testLog = logs.GetLoggerFromLevel(slog.LevelDebug)

type countingWorker struct {
	runs atomic.Int32
	fail bool
}

func (w *countingWorker) Run(ctx context.Context) error {
	w.runs.Add(1)
	if w.fail {
		return fmt.Errorf("boom")
	}
	<-ctx.Done()
	return nil
}

type panickyWorker struct {
	runs atomic.Int32
}

func (w *panickyWorker) Run(context.Context) error {
	w.runs.Add(1)
	panic("worker exploded")
}

func TestSupervisor_RestartsCrashedWorker(t *testing.T) {
	req := require.New(t)
	sup := NewSupervisor(testLog, 10*time.Millisecond)
	worker := &countingWorker{fail: true}
	sup.Add(worker)

	sup.Run(context.Background())
	defer sup.Stop()

	// The worker keeps being restarted after each failure
	req.Eventually(func() bool {
		return worker.runs.Load() >= 3
	}, time.Second, 10*time.Millisecond)
}

func TestSupervisor_RecoversPanics(t *testing.T) {
	req := require.New(t)
	sup := NewSupervisor(testLog, 10*time.Millisecond)
	worker := &panickyWorker{}
	sup.Add(worker)

	sup.Run(context.Background())
	defer sup.Stop()

	// A panicking worker is recovered and restarted, never fatal
	req.Eventually(func() bool {
		return worker.runs.Load() >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestSupervisor_StopWaitsForWorkers(t *testing.T) {
	req := require.New(t)
	sup := NewSupervisor(testLog, 10*time.Millisecond)
	worker := &countingWorker{}
	sup.Add(worker)

	sup.Run(context.Background())
	req.Eventually(func() bool {
		return worker.runs.Load() == 1
	}, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		sup.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
	// A clean exit is terminal: no restart after Stop
	req.Equal(int32(1), worker.runs.Load())
}

func TestSupervisor_ParentContextCancelStopsWorkers(t *testing.T) {
	req := require.New(t)
	sup := NewSupervisor(testLog, 10*time.Millisecond)
	worker := &countingWorker{}
	sup.Add(worker)

	ctx, cancel := context.WithCancel(context.Background())
	sup.Run(ctx)
	req.Eventually(func() bool {
		return worker.runs.Load() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	sup.Stop()
	req.Equal(int32(1), worker.runs.Load())
}
