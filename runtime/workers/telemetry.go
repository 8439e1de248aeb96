package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"chat-gateway/contract"
	"chat-gateway/observability"
)

var _ contract.Worker = (*TelemetryWorker)(nil)

// TelemetryWorker samples the gateway's own process every interval and
// feeds the stats holder behind /healthz.
type TelemetryWorker struct {
	log      *slog.Logger
	stats    *observability.Stats
	interval time.Duration
}

func NewTelemetryWorker(log *slog.Logger, stats *observability.Stats, interval time.Duration) *TelemetryWorker {
	return &TelemetryWorker{log: log, stats: stats, interval: interval}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping telemetry worker")
			return nil
		case <-ticker.C:
			mem, err := p.MemoryInfo()
			if err != nil {
				w.log.Debug("Failed to collect self memory stats", "err", err)
				continue
			}
			cpu, err := p.CPUPercent()
			if err != nil {
				w.log.Debug("Failed to collect self cpu stats", "err", err)
				continue
			}
			w.stats.SetProcess(mem.RSS, cpu)
			w.log.Debug("Gateway self stats",
				"rss_mb", mem.RSS/1024/1024, "cpu_percent", cpu)
		}
	}
}
