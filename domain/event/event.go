package event

import "time"

type Type string

// Event is a telemetry record produced by the engine and its workers.
// It never carries chat or signaling payloads.
type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

func New(t Type, payload any) Event {
	return Event{Type: t, CreatedAt: time.Now().UTC(), Payload: payload}
}

// Emit performs a non-blocking send. It reports false when the event was lost.
func Emit(telemetryChan chan<- Event, e Event) bool {
	if telemetryChan == nil {
		return false
	}
	select {
	case telemetryChan <- e:
		return true
	default:
		return false
	}
}
