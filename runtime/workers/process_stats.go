package workers

import (
	"allchat/domain"
	"allchat/domain/event"
	"context"
	"log/slog"
	"os"
	goruntime "runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

// ProcessStatsWorker samples the resource usage of the gateway process itself.
type ProcessStatsWorker struct {
	log            *slog.Logger
	telemetryChan  chan<- event.Event
	metricInterval time.Duration
	pid            domain.PID
}

func NewProcessStatsWorker(log *slog.Logger, telemetryChan chan<- event.Event, metricInterval time.Duration) *ProcessStatsWorker {
	return &ProcessStatsWorker{
		log:            log,
		telemetryChan:  telemetryChan,
		metricInterval: metricInterval,
		pid:            domain.PID(os.Getpid()),
	}
}

func (w *ProcessStatsWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(w.pid))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats, err := w.sample(p)
			if err != nil {
				w.log.Debug("Unable to sample process", "pid", w.pid, "error", err)
				continue
			}
			if !event.Emit(w.telemetryChan, event.New(event.ProcessStatsType, stats)) {
				w.log.Debug("Observability telemetry event lost")
			}
		}
	}
}

func (w *ProcessStatsWorker) sample(p *process.Process) (event.ProcessStats, error) {
	status, err := p.Status()
	if err != nil {
		return event.ProcessStats{}, err
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		return event.ProcessStats{}, err
	}
	ram, err := p.MemoryPercent()
	if err != nil {
		return event.ProcessStats{}, err
	}
	stats := event.ProcessStats{
		PID:        w.pid,
		Status:     domain.ToStatus(status),
		Cpu:        cpu,
		Ram:        ram,
		Goroutines: goruntime.NumGoroutine(),
	}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		stats.RSS = mem.RSS
	}
	return stats, nil
}
