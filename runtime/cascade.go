package runtime

import (
	"allchat/contract"
	"allchat/domain"
	"context"
	"log/slog"
)

// Cascade tears down everything a user owns once its connection is gone.
type Cascade struct {
	log       *slog.Logger
	registry  contract.IRegistry
	pool      contract.IPool
	lifecycle *Lifecycle
}

func NewCascade(log *slog.Logger, registry contract.IRegistry, pool contract.IPool, lifecycle *Lifecycle) *Cascade {
	return &Cascade{log: log, registry: registry, pool: pool, lifecycle: lifecycle}
}

// Disconnect runs pool cancel, group leave and unregister, in that order.
// A connection already superseded by a newer one for the same user owns nothing
// and only gets its stale entry cleared.
// A requeue started by another user's leave may slip the user back into the pool
// before the unregister lands; a last cancel and leave after it removes what it added.
func (c *Cascade) Disconnect(ctx context.Context, userID domain.UserID, out contract.Outbound) {
	if !c.registry.IsCurrent(userID, out) {
		c.registry.Unregister(userID, out)
		c.log.Debug("Superseded connection closed", "user_id", userID)
		return
	}
	if c.pool.Cancel(userID) {
		c.log.Debug("Removed disconnected user from pool", "user_id", userID)
	}
	c.lifecycle.Leave(ctx, userID)
	// A newer connection registered meanwhile owns the user's state from now on.
	if !c.registry.Unregister(userID, out) || c.registry.Connected(userID) {
		c.log.Info("User disconnected", "user_id", userID)
		return
	}
	if c.pool.Cancel(userID) {
		c.log.Debug("Removed user requeued during disconnect", "user_id", userID)
	}
	if _, ok := c.lifecycle.Leave(ctx, userID); ok {
		c.log.Debug("Ended match formed during disconnect", "user_id", userID)
	}
	c.log.Info("User disconnected", "user_id", userID)
}
