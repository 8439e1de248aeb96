// Package observability aggregates gateway counters for /healthz and
// periodic logs. Counters are lock-free atomics; the process figures
// come from the telemetry worker.
package observability

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"chat-gateway/domain"
)

// Snapshot is the /healthz payload.
type Snapshot struct {
	Sessions          int64   `json:"sessions"`
	MessagesAppended  uint64  `json:"messages_appended"`
	DroppedDeliveries uint64  `json:"dropped_deliveries"`
	RSSBytes          uint64  `json:"rss_bytes"`
	CPUPercent        float64 `json:"cpu_percent"`
	AllocMemMB        uint64  `json:"alloc_mem_mb"`
	NumGC             uint32  `json:"num_gc"`
	UptimeSeconds     int64   `json:"uptime_seconds"`
}

type Stats struct {
	startedAt time.Time

	sessions atomic.Int64
	messages atomic.Uint64
	dropped  atomic.Uint64

	mu         sync.RWMutex
	rssBytes   uint64
	cpuPercent float64
}

func NewStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

func (s *Stats) SessionOpened() { s.sessions.Add(1) }
func (s *Stats) SessionClosed() { s.sessions.Add(-1) }

// DeliveryDropped counts fan-out deliveries lost to a full or dead
// recipient.
func (s *Stats) DeliveryDropped() { s.dropped.Add(1) }

// Consume implements the bus message tap: one count per durable append.
func (s *Stats) Consume(_ domain.Message) { s.messages.Add(1) }

// SetProcess records the latest self-process sample.
func (s *Stats) SetProcess(rssBytes uint64, cpuPercent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rssBytes = rssBytes
	s.cpuPercent = cpuPercent
}

func (s *Stats) Snapshot() Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	s.mu.RLock()
	rss, cpu := s.rssBytes, s.cpuPercent
	s.mu.RUnlock()

	return Snapshot{
		Sessions:          s.sessions.Load(),
		MessagesAppended:  s.messages.Load(),
		DroppedDeliveries: s.dropped.Load(),
		RSSBytes:          rss,
		CPUPercent:        cpu,
		AllocMemMB:        mem.Alloc / 1024 / 1024,
		NumGC:             mem.NumGC,
		UptimeSeconds:     int64(time.Since(s.startedAt).Seconds()),
	}
}
