package runtime

import (
	"allchat/contract"
	"allchat/domain"
	"allchat/errors"
	"context"
	stderrors "errors"
	"fmt"
)

var _ contract.IRegistry = (*Registry)(nil)

// Registry maps a user to the delivery handle of its live connection.
// Lookups and deliveries for different users never contend on one lock,
// and no lock is held while a payload is being delivered.
type Registry struct {
	sessions *shards[contract.Outbound]
}

func NewRegistry(shardCount int) *Registry {
	return &Registry{sessions: newShards[contract.Outbound](shardCount)}
}

// Register stores out as the session of userID.
// The previous session, if any, is returned so the caller can apply its reconnect policy.
func (r *Registry) Register(userID domain.UserID, out contract.Outbound) (contract.Outbound, bool) {
	return r.sessions.Swap(userID.String(), out)
}

// Unregister removes the entry only if it still points to out.
// A stale connection closing after a newer one registered leaves the newer one in place.
func (r *Registry) Unregister(userID domain.UserID, out contract.Outbound) bool {
	return r.sessions.CompareAndDelete(userID.String(), func(current contract.Outbound) bool {
		return current == out
	})
}

// Connected reports whether userID has a live session.
func (r *Registry) Connected(userID domain.UserID) bool {
	_, ok := r.sessions.Load(userID.String())
	return ok
}

func (r *Registry) IsCurrent(userID domain.UserID, out contract.Outbound) bool {
	current, ok := r.sessions.Load(userID.String())
	return ok && current == out
}

// Send delivers payload to the current session of userID.
// Any failure is reported as ErrRecipientUnreachable, callers are expected to drop and log.
func (r *Registry) Send(ctx context.Context, userID domain.UserID, payload []byte) error {
	out, ok := r.sessions.Load(userID.String())
	if !ok {
		return fmt.Errorf("%w: %s is not connected", errors.ErrRecipientUnreachable, userID)
	}
	if err := out.Deliver(ctx, payload); err != nil {
		if stderrors.Is(err, errors.ErrRecipientUnreachable) {
			return err
		}
		return fmt.Errorf("%w: %w", errors.ErrRecipientUnreachable, err)
	}
	return nil
}

func (r *Registry) Len() int {
	return r.sessions.Len()
}
