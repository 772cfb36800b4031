// Package runtime holds the in-memory matching and relay engine.
// It owns the connection registry, the matching pool and the group directory,
// and turns connection events into routing decisions.
package runtime

import (
	"allchat/contract"
	"allchat/domain"
	"allchat/domain/event"
	"allchat/errors"
	"allchat/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type ConnectionEventKind int

const (
	Connected ConnectionEventKind = iota
	Message
	Disconnected
)

func (k ConnectionEventKind) String() string {
	switch k {
	case Connected:
		return "connected"
	case Message:
		return "message"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ConnectionEvent is what a connection task reports about its connection.
// Outbound identifies the connection, Payload is only set for messages.
type ConnectionEvent struct {
	Kind     ConnectionEventKind
	UserID   domain.UserID
	Outbound contract.Outbound
	Payload  []byte
}

type Settings struct {
	ShardCount      int
	MetricInterval  time.Duration
	MatchTimeout    time.Duration
	JanitorInterval time.Duration
	RequeuePolicy   domain.RequeuePolicy
	ReconnectPolicy domain.ReconnectPolicy
}

type Orchestrator struct {
	mu            sync.Mutex
	log           *slog.Logger
	settings      Settings
	supervisor    contract.ISupervisor
	registry      *Registry
	pool          *Pool
	directory     *Directory
	lifecycle     *Lifecycle
	router        *Router
	cascade       *Cascade
	telemetryChan chan event.Event
	handlers      []event.Handler
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	telemetryChan chan event.Event, settings Settings) *Orchestrator {
	directory := NewDirectory(settings.ShardCount)
	registry := NewRegistry(settings.ShardCount)
	pool := NewPool(directory, registry.Connected)
	lifecycle := NewLifecycle(log, registry, pool, directory, telemetryChan, settings.RequeuePolicy)
	return &Orchestrator{
		log:           log,
		settings:      settings,
		supervisor:    supervisor,
		registry:      registry,
		pool:          pool,
		directory:     directory,
		lifecycle:     lifecycle,
		router:        NewRouter(log, registry, pool, directory, lifecycle, telemetryChan),
		cascade:       NewCascade(log, registry, pool, lifecycle),
		telemetryChan: telemetryChan,
	}
}

// RegisterHandlers appends telemetry handlers. Must be called before Start.
func (o *Orchestrator) RegisterHandlers(handlers ...event.Handler) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handlers = append(o.handlers, handlers...)
}

// HandleEvent applies one connection event. Events of one connection must be
// handled in the order they were produced.
func (o *Orchestrator) HandleEvent(ctx context.Context, e ConnectionEvent) {
	switch e.Kind {
	case Connected:
		o.connect(e.UserID, e.Outbound)
	case Message:
		if err := o.route(ctx, e.UserID, e.Payload); err != nil {
			o.log.Debug("Message not routed", "user_id", e.UserID, "error", err)
		}
	case Disconnected:
		o.cascade.Disconnect(ctx, e.UserID, e.Outbound)
	default:
		o.log.Warn("Unknown connection event", "kind", e.Kind)
	}
}

func (o *Orchestrator) connect(userID domain.UserID, out contract.Outbound) {
	previous, replaced := o.registry.Register(userID, out)
	o.log.Info("User connected", "user_id", userID)
	if !replaced || previous == out {
		return
	}
	evict := o.settings.ReconnectPolicy == domain.ReconnectEvict
	o.log.Warn("Session replaced by a new connection", "user_id", userID, "policy", o.settings.ReconnectPolicy)
	if !event.Emit(o.telemetryChan, event.New(event.SessionReplaced, event.SessionReplacedPayload{UserID: userID, Evicted: evict})) {
		o.log.Debug("Observability telemetry event lost")
	}
	if evict {
		if err := previous.Close(); err != nil {
			o.log.Debug("Unable to close replaced session", "user_id", userID, "error", err)
		}
	}
}

// route isolates a panic to the message that caused it.
func (o *Orchestrator) route(ctx context.Context, userID domain.UserID, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("Recovered panic while routing message", "user_id", userID, "panic", r)
			event.Emit(o.telemetryChan, event.New(event.MessagePanicType, event.MessagePanic{UserID: userID, Reason: fmt.Sprint(r)}))
			err = fmt.Errorf("%w: %v", errors.ErrMessagePanic, r)
		}
	}()
	return o.router.Route(ctx, userID, payload)
}

// Start registers the background workers and blocks until the supervisor stops.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	handlers := append([]event.Handler(nil), o.handlers...)
	o.supervisor.Add(
		workers.NewTelemetryWorker(o.log, o.telemetryChan, handlers),
		workers.NewChannelCapacityWorker(o.log, []workers.NamedChannel{
			{Name: "telemetry", Channel: o.telemetryChan},
		}, o.telemetryChan, o.settings.MetricInterval),
		workers.NewProcessStatsWorker(o.log, o.telemetryChan, o.settings.MetricInterval),
	)
	if o.settings.MatchTimeout > 0 {
		o.supervisor.Add(workers.NewPoolJanitorWorker(o.log, o.pool, o.registry, o.telemetryChan,
			o.settings.MatchTimeout, o.settings.JanitorInterval))
	}
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// Stop cancels the supervised workers.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}

// Gauges is an instant view of the engine's state.
type Gauges struct {
	Sessions int `json:"sessions"`
	Waiting  int `json:"waiting"`
	Groups   int `json:"groups"`
}

func (o *Orchestrator) Gauges() Gauges {
	return Gauges{
		Sessions: o.registry.Len(),
		Waiting:  o.pool.Len(),
		Groups:   o.directory.Len(),
	}
}

func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

func (o *Orchestrator) Pool() *Pool {
	return o.pool
}

func (o *Orchestrator) Directory() *Directory {
	return o.directory
}
