package runtime

import (
	"allchat/contract"
	"allchat/domain"
	"allchat/domain/event"
	"allchat/errors"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// recorder is an Outbound keeping every delivered payload.
type recorder struct {
	mu       sync.Mutex
	payloads [][]byte
	closed   bool
}

func (r *recorder) Deliver(_ context.Context, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.ErrSinkClosed
	}
	r.payloads = append(r.payloads, append([]byte(nil), payload...))
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorder) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *recorder) raw() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.payloads...)
}

func (r *recorder) envelopes(t *testing.T) []domain.Envelope {
	var res []domain.Envelope
	for _, payload := range r.raw() {
		var envelope domain.Envelope
		require.NoError(t, json.Unmarshal(payload, &envelope))
		res = append(res, envelope)
	}
	return res
}

func (r *recorder) types(t *testing.T) []domain.MessageType {
	var res []domain.MessageType
	for _, envelope := range r.envelopes(t) {
		res = append(res, envelope.Type)
	}
	return res
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = nil
}

type testEngine struct {
	log           *slog.Logger
	registry      *Registry
	pool          *Pool
	directory     *Directory
	lifecycle     *Lifecycle
	router        *Router
	cascade       *Cascade
	telemetryChan chan event.Event
}

func newTestEngine(requeue domain.RequeuePolicy) *testEngine {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	telemetryChan := make(chan event.Event, 1024)
	directory := NewDirectory(4)
	registry := NewRegistry(4)
	pool := NewPool(directory, registry.Connected)
	lifecycle := NewLifecycle(log, registry, pool, directory, telemetryChan, requeue)
	return &testEngine{
		log:           log,
		registry:      registry,
		pool:          pool,
		directory:     directory,
		lifecycle:     lifecycle,
		router:        NewRouter(log, registry, pool, directory, lifecycle, telemetryChan),
		cascade:       NewCascade(log, registry, pool, lifecycle),
		telemetryChan: telemetryChan,
	}
}

func (e *testEngine) connect(userID domain.UserID) *recorder {
	out := &recorder{}
	e.registry.Register(userID, out)
	return out
}

func (e *testEngine) send(userID domain.UserID, raw string) error {
	return e.router.Route(context.Background(), userID, []byte(raw))
}

// pair connects a and b and matches them, a being the oldest.
func (e *testEngine) pair(t *testing.T, a, b domain.UserID) (*recorder, *recorder) {
	outA, outB := e.connect(a), e.connect(b)
	require.NoError(t, e.send(a, `{"type":"looking-for-match"}`))
	require.NoError(t, e.send(b, `{"type":"looking-for-match"}`))
	require.True(t, e.directory.SameGroup(a, b))
	outA.reset()
	outB.reset()
	return outA, outB
}

func (e *testEngine) telemetryTypes() []event.Type {
	var res []event.Type
	for {
		select {
		case evt := <-e.telemetryChan:
			res = append(res, evt.Type)
		default:
			return res
		}
	}
}

// gatedRecorder holds its first delivery until release is closed.
type gatedRecorder struct {
	recorder
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedRecorder() *gatedRecorder {
	return &gatedRecorder{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedRecorder) Deliver(ctx context.Context, payload []byte) error {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.recorder.Deliver(ctx, payload)
}

// unregisterHook runs before each unregister of the wrapped registry.
type unregisterHook struct {
	*Registry
	before func()
}

func (h unregisterHook) Unregister(userID domain.UserID, out contract.Outbound) bool {
	h.before()
	return h.Registry.Unregister(userID, out)
}
