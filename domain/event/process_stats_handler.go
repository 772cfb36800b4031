package event

import (
	"allchat/errors"
	"fmt"
	"log/slog"
	"sync"
)

// ProcessStatsHandler logs the gateway's own resource usage and keeps the last sample.
type ProcessStatsHandler struct {
	log    *slog.Logger
	mu     sync.RWMutex
	latest *ProcessStats
}

func NewProcessStatsHandler(log *slog.Logger) *ProcessStatsHandler {
	return &ProcessStatsHandler{log: log}
}

func (h *ProcessStatsHandler) Handle(event Event) {
	switch event.Type {
	case ProcessStatsType:
		payload, ok := event.Payload.(ProcessStats)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.mu.Lock()
		h.latest = &payload
		h.mu.Unlock()
		h.log.Debug(fmt.Sprintf("[GATEWAY] | PID %d | STATUS %s | CPU %.2f%% | RAM %.2f%% | GOROUTINES %d",
			payload.PID, payload.Status, payload.Cpu, payload.Ram, payload.Goroutines))
	}
}

// Latest returns the most recent sample, if any.
func (h *ProcessStatsHandler) Latest() (ProcessStats, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return ProcessStats{}, false
	}
	return *h.latest, true
}
