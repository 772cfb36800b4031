package runtime

import (
	"allchat/contract"
	"allchat/domain"
	"allchat/domain/event"
	"context"
	"log/slog"
)

// notifier delivers payloads through the registry.
// Unreachable recipients are logged and reported to telemetry, never returned.
type notifier struct {
	log           *slog.Logger
	registry      contract.IRegistry
	telemetryChan chan<- event.Event
}

func (n notifier) notify(ctx context.Context, to domain.UserID, envelope domain.Envelope) bool {
	payload, err := envelope.Encode()
	if err != nil {
		n.log.Error("Unable to encode notification", "type", envelope.Type, "error", err)
		return false
	}
	return n.relay(ctx, to, envelope.Type, payload)
}

func (n notifier) relay(ctx context.Context, to domain.UserID, kind domain.MessageType, payload []byte) bool {
	if err := n.registry.Send(ctx, to, payload); err != nil {
		n.log.Debug("Dropping message for unreachable recipient", "to", to, "type", kind, "error", err)
		n.emit(event.New(event.MessageDroppedType, event.MessageDropped{Kind: kind, To: to}))
		return false
	}
	return true
}

func (n notifier) emit(e event.Event) {
	if !event.Emit(n.telemetryChan, e) {
		n.log.Debug("Observability telemetry event lost", "type", e.Type)
	}
}
