package runtime

import (
	"allchat/contract"
	"allchat/domain"
	"allchat/domain/event"
	"allchat/errors"
	"context"
	"fmt"
	"log/slog"
)

// Router interprets one inbound envelope and performs the matching action.
// Returned errors classify why a message was dropped; none of them is fatal
// to the connection.
type Router struct {
	notifier
	lifecycle *Lifecycle
	pool      contract.IPool
	directory contract.IDirectory
}

func NewRouter(log *slog.Logger, registry contract.IRegistry, pool contract.IPool,
	directory contract.IDirectory, lifecycle *Lifecycle, telemetryChan chan<- event.Event) *Router {
	return &Router{
		notifier:  notifier{log: log, registry: registry, telemetryChan: telemetryChan},
		lifecycle: lifecycle,
		pool:      pool,
		directory: directory,
	}
}

func (r *Router) Route(ctx context.Context, sender domain.UserID, raw []byte) error {
	envelope, err := domain.ParseEnvelope(raw)
	if err != nil {
		r.log.Warn("Dropping malformed envelope", "user_id", sender, "error", err)
		return err
	}

	switch t := envelope.Type; {
	case t == domain.LookingForMatch:
		return r.lookingForMatch(ctx, sender, envelope)
	case t == domain.CancelMatch:
		return r.cancelMatch(ctx, sender)
	case t.IsSignal():
		return r.signal(ctx, sender, envelope)
	case t == domain.Chat:
		return r.chat(ctx, sender, envelope)
	case t == domain.EndChat:
		return r.endChat(ctx, sender)
	default:
		r.log.Debug("Ignoring unknown message type", "user_id", sender, "type", t)
		return fmt.Errorf("%w: %q", errors.ErrUnknownType, t)
	}
}

func (r *Router) lookingForMatch(ctx context.Context, sender domain.UserID, envelope domain.Envelope) error {
	if envelope.GroupSize != nil && *envelope.GroupSize != 2 {
		r.log.Debug("Requested group size ignored, pairs only", "user_id", sender, "group_size", *envelope.GroupSize)
	}
	if err := r.lifecycle.Matchmake(ctx, sender); err != nil {
		r.log.Debug("Match request refused", "user_id", sender, "error", err)
		return err
	}
	return nil
}

// cancelMatch always answers, whether or not the user was waiting.
func (r *Router) cancelMatch(ctx context.Context, sender domain.UserID) error {
	if r.pool.Cancel(sender) {
		r.emit(event.New(event.MatchCancelledType, event.MatchCancelled{UserID: sender}))
	}
	r.notify(ctx, sender, domain.NewMatchCancelled(sender))
	return nil
}

// signal forwards negotiation payloads between members of one group only.
func (r *Router) signal(ctx context.Context, sender domain.UserID, envelope domain.Envelope) error {
	if envelope.From != sender {
		r.block(sender, envelope, "sender mismatch")
		return fmt.Errorf("%w: from %q on connection of %q", errors.ErrSenderMismatch, envelope.From, sender)
	}
	if !r.directory.SameGroup(sender, envelope.To) {
		r.block(sender, envelope, "not same group")
		return fmt.Errorf("%w: %s -> %s", errors.ErrNotSameGroup, sender, envelope.To)
	}
	if r.relay(ctx, envelope.To, envelope.Type, envelope.Raw) {
		r.emit(event.New(event.SignalRelayedType, event.SignalRelayed{Kind: envelope.Type, From: sender, To: envelope.To}))
	}
	return nil
}

func (r *Router) block(sender domain.UserID, envelope domain.Envelope, reason string) {
	r.log.Warn("Signal blocked", "type", envelope.Type, "from", sender, "to", envelope.To, "reason", reason)
	r.emit(event.New(event.SignalBlockedType, event.SignalBlocked{
		Kind:   envelope.Type,
		From:   sender,
		To:     envelope.To,
		Reason: reason,
	}))
}

func (r *Router) chat(ctx context.Context, sender domain.UserID, envelope domain.Envelope) error {
	group, ok := r.directory.Lookup(sender)
	if !ok {
		r.log.Debug("Dropping chat from user outside any group", "user_id", sender)
		return fmt.Errorf("%w: %s", errors.ErrNotInGroup, sender)
	}
	delivered := 0
	for _, member := range group.Others(sender) {
		if r.relay(ctx, member, domain.Chat, envelope.Raw) {
			delivered++
		}
	}
	r.emit(event.New(event.ChatRelayedType, event.ChatRelayed{From: sender, Recipients: delivered}))
	return nil
}

func (r *Router) endChat(ctx context.Context, sender domain.UserID) error {
	if _, ok := r.lifecycle.Leave(ctx, sender); !ok {
		r.log.Debug("Ignoring end-chat from user outside any group", "user_id", sender)
		return fmt.Errorf("%w: %s", errors.ErrNotInGroup, sender)
	}
	return nil
}
