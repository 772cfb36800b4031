package observability

import (
	"allchat/domain/event"
	"allchat/runtime"
	"runtime/debug"
	"time"

	"github.com/samber/lo"
)

type GaugeSource interface {
	Gauges() runtime.Gauges
}

// MonitoringStats aggregates what the debug server exposes.
type MonitoringStats struct {
	Sessions   int                 `json:"sessions"`
	Waiting    int                 `json:"waiting"`
	Groups     int                 `json:"groups"`
	Counters   map[string]uint64   `json:"counters"`
	Process    *event.ProcessStats `json:"process,omitempty"`
	Version    string              `json:"version,omitempty"`
	UptimeSecs int64               `json:"uptime_secs"`
}

// Monitor combines live gauges with telemetry counters and the last process sample.
type Monitor struct {
	gauges    GaugeSource
	counter   *event.Counter
	process   *event.ProcessStatsHandler
	startedAt time.Time
	now       func() time.Time
}

func NewMonitor(gauges GaugeSource, counter *event.Counter, process *event.ProcessStatsHandler) *Monitor {
	return &Monitor{
		gauges:    gauges,
		counter:   counter,
		process:   process,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

func (m *Monitor) Stats() MonitoringStats {
	stats := MonitoringStats{
		Counters:   map[string]uint64{},
		UptimeSecs: int64(m.now().Sub(m.startedAt).Seconds()),
	}
	if m.gauges != nil {
		g := m.gauges.Gauges()
		stats.Sessions, stats.Waiting, stats.Groups = g.Sessions, g.Waiting, g.Groups
	}
	if m.counter != nil {
		stats.Counters = lo.MapKeys(m.counter.Snapshot(), func(_ uint64, t event.Type) string {
			return string(t)
		})
	}
	if m.process != nil {
		if sample, ok := m.process.Latest(); ok {
			stats.Process = &sample
		}
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		stats.Version = info.Main.Version
	}
	return stats
}

// Snapshot flattens Stats for the debug server.
func (m *Monitor) Snapshot() map[string]any {
	stats := m.Stats()
	snapshot := map[string]any{
		"sessions":    stats.Sessions,
		"waiting":     stats.Waiting,
		"groups":      stats.Groups,
		"counters":    stats.Counters,
		"uptime_secs": stats.UptimeSecs,
	}
	if stats.Process != nil {
		snapshot["process"] = stats.Process
	}
	if stats.Version != "" {
		snapshot["version"] = stats.Version
	}
	return snapshot
}
