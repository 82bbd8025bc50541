package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vietddude/tronwatch/internal/core/cursor"
	"github.com/vietddude/tronwatch/internal/core/domain"
	"github.com/vietddude/tronwatch/internal/indexing/observer"
	"github.com/vietddude/tronwatch/internal/infra/rpc"
)

// StateSource loads the current sync state.
type StateSource interface {
	Get(ctx context.Context) (*domain.SyncState, error)
}

// ObserverStats reports the dispatch queues.
type ObserverStats interface {
	Stats() []observer.Stats
}

// ProviderHealth reports the fetch providers.
type ProviderHealth interface {
	Health() map[string]rpc.HealthStatus
}

const (
	checkInterval = 5 * time.Second
	// recentError is how long a recorded block failure degrades the status.
	recentError = 5 * time.Minute
	// observerErrorRate above which a subscriber degrades the status.
	observerErrorRate = 0.5
)

// ThroughputSource reports the cursor's recent block rate.
type ThroughputSource interface {
	GetMetrics() cursor.Metrics
}

// Monitor aggregates health status from various system components.
type Monitor struct {
	state     StateSource
	observers ObserverStats
	providers ProviderHealth
	rate      ThroughputSource
	now       func() time.Time

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport Report
}

// NewMonitor creates a new health monitor. observers and providers may be nil.
func NewMonitor(state StateSource, observers ObserverStats, providers ProviderHealth) *Monitor {
	return &Monitor{
		state:     state,
		observers: observers,
		providers: providers,
		now:       time.Now,
	}
}

// WithThroughput adds the block rate of src to every report.
func (m *Monitor) WithThroughput(src ThroughputSource) *Monitor {
	m.rate = src
	return m
}

// Check builds a report. Results are reused for a few seconds so health checks do not
// hit the database on every request.
func (m *Monitor) Check(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if !m.lastCheck.IsZero() && now.Sub(m.lastCheck) < checkInterval {
		return m.lastReport
	}

	report := Report{Status: StatusHealthy, CheckedAt: now.UTC()}
	m.checkState(ctx, &report, now)
	m.checkObservers(&report)
	m.checkProviders(&report)
	if m.rate != nil {
		cm := m.rate.GetMetrics()
		report.Throughput = &Throughput{
			BlocksPerSecond: cm.BlocksPerSecond,
			AvgBlockMs:      cm.AverageBlockTime.Milliseconds(),
			LastPhaseChange: cm.LastPhaseChange,
		}
	}

	m.lastCheck = now
	m.lastReport = report
	return report
}

func (m *Monitor) checkState(ctx context.Context, r *Report, now time.Time) {
	state, err := m.state.Get(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		r.Phase = string(cursor.PhaseInit)
		r.degrade(StatusDegraded, "sync state not initialized")
		return
	}
	if err != nil {
		r.degrade(StatusCritical, fmt.Sprintf("sync state unavailable: %v", err))
		return
	}

	r.Phase = string(cursor.PhaseOf(state, cursor.DefaultLiveLag))
	r.Cursor = state.CursorBlock
	r.Head = state.LastNetworkHeight
	r.Lag = state.Lag()
	r.Backfill = len(state.Backfill)
	r.Parity = state.ParityTarget
	r.LastError = state.LastError

	if s := StatusForLag(r.Lag); s != StatusHealthy {
		r.degrade(s, fmt.Sprintf("cursor %d blocks behind head", r.Lag))
	}
	if state.LastError != nil && now.Sub(state.LastError.At) < recentError {
		r.degrade(StatusDegraded, fmt.Sprintf("block %d failed: %s", state.LastError.Block, state.LastError.Message))
	}
}

func (m *Monitor) checkObservers(r *Report) {
	if m.observers == nil {
		return
	}
	r.Observers = m.observers.Stats()
	for _, s := range r.Observers {
		if s.BatchesProcessed > 0 && s.ErrorRate > observerErrorRate {
			r.degrade(StatusDegraded, fmt.Sprintf("observer %s error rate %.2f", s.Observer, s.ErrorRate))
		}
	}
}

func (m *Monitor) checkProviders(r *Report) {
	if m.providers == nil {
		return
	}
	r.Providers = m.providers.Health()
	if len(r.Providers) == 0 {
		return
	}
	for _, h := range r.Providers {
		if h.Available {
			return
		}
	}
	r.degrade(StatusCritical, "no fetch provider available")
}

func (r *Report) degrade(s SystemStatus, reason string) {
	r.Status = worse(r.Status, s)
	r.Reasons = append(r.Reasons, reason)
}
