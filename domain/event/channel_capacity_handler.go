package event

import (
	"allchat/errors"
	"log/slog"
)

// ChannelCapacityHandler warns when an internal buffer is close to saturation.
// A saturated telemetry channel means events are silently dropped by producers.
type ChannelCapacityHandler struct {
	log                  *slog.Logger
	lowCapacityThreshold int
}

func NewChannelCapacityHandler(log *slog.Logger, lowCapacityThreshold int) *ChannelCapacityHandler {
	return &ChannelCapacityHandler{log: log, lowCapacityThreshold: lowCapacityThreshold}
}

func (h ChannelCapacityHandler) Handle(event Event) {
	if event.Type != ChannelCapacityType {
		return
	}
	payload, ok := event.Payload.(ChannelCapacity)
	if !ok {
		h.log.Error(errors.ErrInvalidPayload.Error())
		return
	}
	// Unbuffered
	if payload.Capacity <= 0 {
		return
	}
	left := payload.Capacity - payload.Length
	h.log.Debug("Channel usage", "channel", payload.ChannelName, "length", payload.Length, "capacity", payload.Capacity)
	if left <= h.lowCapacityThreshold {
		h.log.Warn("Channel close to saturation", "channel", payload.ChannelName, "capacity_left", left)
	}
}
