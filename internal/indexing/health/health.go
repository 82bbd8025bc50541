// Package health provides system health monitoring and status reporting.
package health

import (
	"time"

	"github.com/vietddude/tronwatch/internal/core/domain"
	"github.com/vietddude/tronwatch/internal/indexing/observer"
	"github.com/vietddude/tronwatch/internal/infra/rpc"
)

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Lag thresholds in blocks.
const (
	DegradedLag = 20
	CriticalLag = 200
)

// Report contains the full system health report.
type Report struct {
	Status     SystemStatus                `json:"status"`
	Reasons    []string                    `json:"reasons,omitempty"`
	Phase      string                      `json:"phase"`
	Cursor     uint64                      `json:"cursor"`
	Head       uint64                      `json:"head"`
	Lag        uint64                      `json:"lag"`
	Backfill   int                         `json:"backfill"`
	Parity     *uint64                     `json:"parity,omitempty"`
	LastError  *domain.SyncError           `json:"lastError,omitempty"`
	Throughput *Throughput                 `json:"throughput,omitempty"`
	Observers  []observer.Stats            `json:"observers,omitempty"`
	Providers  map[string]rpc.HealthStatus `json:"providers,omitempty"`
	CheckedAt  time.Time                   `json:"checkedAt"`
}

// Throughput is the recent block rate of this instance.
type Throughput struct {
	BlocksPerSecond float64    `json:"blocksPerSecond"`
	AvgBlockMs      int64      `json:"avgBlockMs"`
	LastPhaseChange *time.Time `json:"lastPhaseChange,omitempty"`
}

// StatusForLag maps cursor lag to a status.
func StatusForLag(lag uint64) SystemStatus {
	switch {
	case lag < DegradedLag:
		return StatusHealthy
	case lag < CriticalLag:
		return StatusDegraded
	default:
		return StatusCritical
	}
}

func worse(a, b SystemStatus) SystemStatus {
	rank := map[SystemStatus]int{StatusHealthy: 0, StatusDegraded: 1, StatusCritical: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
