package observability

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chat-gateway/domain"
)

func TestStats_Snapshot(t *testing.T) {
	req := require.New(t)
	stats := NewStats()

	stats.SessionOpened()
	stats.SessionOpened()
	stats.SessionClosed()
	stats.Consume(domain.Message{ID: 1})
	stats.Consume(domain.Message{ID: 2})
	stats.DeliveryDropped()
	stats.SetProcess(64<<20, 12.5)

	snap := stats.Snapshot()
	req.Equal(int64(1), snap.Sessions)
	req.Equal(uint64(2), snap.MessagesAppended)
	req.Equal(uint64(1), snap.DroppedDeliveries)
	req.Equal(uint64(64<<20), snap.RSSBytes)
	req.Equal(12.5, snap.CPUPercent)
	req.GreaterOrEqual(snap.UptimeSeconds, int64(0))
}
