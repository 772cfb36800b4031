package runtime

import (
	"allchat/domain"
	"allchat/domain/event"
	"allchat/errors"
	"allchat/mocks"
	"allchat/runtime/workers"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestOrchestrator(policy domain.ReconnectPolicy) (*Orchestrator, chan event.Event) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	telemetryChan := make(chan event.Event, 128)
	supervisor := workers.NewSupervisor(log, telemetryChan, 10*time.Millisecond)
	return NewOrchestrator(log, supervisor, telemetryChan, Settings{
		ShardCount:      4,
		MetricInterval:  time.Second,
		RequeuePolicy:   domain.RequeueNone,
		ReconnectPolicy: policy,
	}), telemetryChan
}

func TestOrchestrator_Connection_Lifecycle(t *testing.T) {
	req := require.New(t)
	orchestrator, _ := newTestOrchestrator(domain.ReconnectEvict)
	ctx := context.Background()
	outA, outB := &recorder{}, &recorder{}

	// Given two connected users looking for a match
	orchestrator.HandleEvent(ctx, ConnectionEvent{Kind: Connected, UserID: "A", Outbound: outA})
	orchestrator.HandleEvent(ctx, ConnectionEvent{Kind: Connected, UserID: "B", Outbound: outB})
	orchestrator.HandleEvent(ctx, ConnectionEvent{Kind: Message, UserID: "A", Payload: []byte(`{"type":"looking-for-match"}`)})
	orchestrator.HandleEvent(ctx, ConnectionEvent{Kind: Message, UserID: "B", Payload: []byte(`{"type":"looking-for-match"}`)})
	req.Equal(Gauges{Sessions: 2, Waiting: 0, Groups: 1}, orchestrator.Gauges())

	// When A disconnects
	orchestrator.HandleEvent(ctx, ConnectionEvent{Kind: Disconnected, UserID: "A", Outbound: outA})

	// Then only B is left, idle
	req.Equal(Gauges{Sessions: 1, Waiting: 0, Groups: 0}, orchestrator.Gauges())
	req.Equal([]domain.MessageType{domain.MatchFound, domain.UserLeftMatch, domain.ChatEnded}, outB.types(t))
}

func TestOrchestrator_Reconnect_Evict_Closes_Prior(t *testing.T) {
	req := require.New(t)
	orchestrator, telemetryChan := newTestOrchestrator(domain.ReconnectEvict)
	ctx := context.Background()
	first, second := &recorder{}, &recorder{}

	orchestrator.HandleEvent(ctx, ConnectionEvent{Kind: Connected, UserID: "A", Outbound: first})

	// When A connects again
	orchestrator.HandleEvent(ctx, ConnectionEvent{Kind: Connected, UserID: "A", Outbound: second})

	// Then the prior connection is closed and the new one is current
	req.True(first.isClosed())
	req.False(second.isClosed())
	req.True(orchestrator.Registry().IsCurrent("A", second))
	evt := <-telemetryChan
	req.Equal(event.SessionReplaced, evt.Type)
	req.True(evt.Payload.(event.SessionReplacedPayload).Evicted)

	// And the prior connection closing does not unregister the new one
	orchestrator.HandleEvent(ctx, ConnectionEvent{Kind: Disconnected, UserID: "A", Outbound: first})
	req.True(orchestrator.Registry().IsCurrent("A", second))
}

func TestOrchestrator_Reconnect_Replace_Leaves_Prior_Open(t *testing.T) {
	req := require.New(t)
	orchestrator, _ := newTestOrchestrator(domain.ReconnectReplace)
	ctx := context.Background()
	first, second := &recorder{}, &recorder{}

	orchestrator.HandleEvent(ctx, ConnectionEvent{Kind: Connected, UserID: "A", Outbound: first})
	orchestrator.HandleEvent(ctx, ConnectionEvent{Kind: Connected, UserID: "A", Outbound: second})

	// Then the prior connection stays open but unreachable
	req.False(first.isClosed())
	orchestrator.HandleEvent(ctx, ConnectionEvent{Kind: Message, UserID: "A", Payload: []byte(`{"type":"cancel-match"}`)})
	req.Empty(first.raw())
	req.Len(second.raw(), 1)
}

func TestOrchestrator_Panic_Is_Isolated_To_One_Message(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	orchestrator, telemetryChan := newTestOrchestrator(domain.ReconnectEvict)
	ctx := context.Background()

	// Given a session whose delivery panics
	faulty := mocks.NewMockOutbound(ctrl)
	faulty.EXPECT().Deliver(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, []byte) error {
		panic("broken pipe")
	})
	orchestrator.HandleEvent(ctx, ConnectionEvent{Kind: Connected, UserID: "A", Outbound: faulty})

	// When a message triggers a delivery to it
	err := orchestrator.route(ctx, "A", []byte(`{"type":"cancel-match"}`))

	// Then the panic is turned into an error and reported
	req.ErrorIs(err, errors.ErrMessagePanic)
	evt := <-telemetryChan
	req.Equal(event.MessagePanicType, evt.Type)

	// And the engine keeps serving other users
	outB := &recorder{}
	orchestrator.HandleEvent(ctx, ConnectionEvent{Kind: Connected, UserID: "B", Outbound: outB})
	orchestrator.HandleEvent(ctx, ConnectionEvent{Kind: Message, UserID: "B", Payload: []byte(`{"type":"cancel-match"}`)})
	req.Len(outB.raw(), 1)
}

func TestOrchestrator_Start_Runs_Workers_Until_Stop(t *testing.T) {
	req := require.New(t)
	orchestrator, telemetryChan := newTestOrchestrator(domain.ReconnectEvict)
	counter := event.NewCounter()
	orchestrator.RegisterHandlers(event.NewCounterHandler(counter))

	done := make(chan struct{})
	go func() {
		_ = orchestrator.Start(context.Background())
		close(done)
	}()

	// When an event is emitted
	telemetryChan <- event.New(event.ChatRelayedType, event.ChatRelayed{})
	req.Eventually(func() bool { return counter.Get(event.ChatRelayedType) == 1 }, time.Second, 10*time.Millisecond)

	// Then Stop ends Start
	orchestrator.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		req.Fail("orchestrator should stop")
	}
}
