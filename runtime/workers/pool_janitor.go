package workers

import (
	"allchat/contract"
	"allchat/domain"
	"allchat/domain/event"
	"context"
	"log/slog"
	"time"
)

// PoolJanitorWorker bounds the time a user may wait for a partner.
// Expired users are removed from the pool and receive match-cancelled.
type PoolJanitorWorker struct {
	log           *slog.Logger
	pool          contract.IPool
	registry      contract.IRegistry
	telemetryChan chan<- event.Event
	matchTimeout  time.Duration
	interval      time.Duration
	now           func() time.Time
}

func NewPoolJanitorWorker(log *slog.Logger, pool contract.IPool, registry contract.IRegistry,
	telemetryChan chan<- event.Event, matchTimeout, interval time.Duration) *PoolJanitorWorker {
	return &PoolJanitorWorker{
		log:           log,
		pool:          pool,
		registry:      registry,
		telemetryChan: telemetryChan,
		matchTimeout:  matchTimeout,
		interval:      interval,
		now:           time.Now,
	}
}

func (w *PoolJanitorWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep expires every user waiting longer than the match timeout.
func (w *PoolJanitorWorker) Sweep(ctx context.Context) int {
	expired := w.pool.Expire(w.now().Add(-w.matchTimeout))
	for _, userID := range expired {
		w.log.Info("Match request expired", "user_id", userID, "timeout", w.matchTimeout)
		if !event.Emit(w.telemetryChan, event.New(event.MatchExpiredType, event.MatchExpired{UserID: userID})) {
			w.log.Debug("Observability telemetry event lost")
		}
		payload, err := domain.NewMatchCancelled(userID).Encode()
		if err != nil {
			w.log.Error("Unable to encode notification", "error", err)
			continue
		}
		if err := w.registry.Send(ctx, userID, payload); err != nil {
			w.log.Debug("Expired user unreachable", "user_id", userID, "error", err)
		}
	}
	return len(expired)
}
