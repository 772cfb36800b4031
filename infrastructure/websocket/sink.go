package websocket

import (
	"allchat/contract"
	"allchat/errors"
	"context"
	"sync"
	"time"
)

var _ contract.Outbound = (*Sink)(nil)

// Sink is the outbound buffer of one connection.
// Any goroutine may Deliver, a single writer drains Outgoing,
// so payloads from one producer reach the client in order.
type Sink struct {
	outgoing        chan []byte
	done            chan struct{}
	closeOnce       sync.Once
	deliveryTimeout time.Duration
}

func NewSink(bufferSize int, deliveryTimeout time.Duration) *Sink {
	return &Sink{
		outgoing:        make(chan []byte, bufferSize),
		done:            make(chan struct{}),
		deliveryTimeout: deliveryTimeout,
	}
}

// Deliver enqueues payload. It gives up when the sink is closed, the context is done
// or the buffer stayed full for longer than the delivery timeout.
func (s *Sink) Deliver(ctx context.Context, payload []byte) error {
	select {
	case <-s.done:
		return errors.ErrSinkClosed
	default:
	}
	timer := time.NewTimer(s.deliveryTimeout)
	defer timer.Stop()
	select {
	case s.outgoing <- payload:
		return nil
	case <-s.done:
		return errors.ErrSinkClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.ErrDeliveryTimeout
	}
}

// Close is idempotent. The writer notices it through Done and closes the connection.
func (s *Sink) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *Sink) Outgoing() <-chan []byte {
	return s.outgoing
}

func (s *Sink) Done() <-chan struct{} {
	return s.done
}
