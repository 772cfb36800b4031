package workers

import (
	"allchat/domain"
	"allchat/domain/event"
	"allchat/mocks"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestPoolJanitor_Sweep_Notifies_Expired_Users(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	pool := mocks.NewMockIPool(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)
	telemetryChan := make(chan event.Event, 10)
	now := time.Now()
	userID := domain.UserID(uuid.NewString())

	janitor := NewPoolJanitorWorker(slog.Default(), pool, registry, telemetryChan, time.Minute, time.Second)
	janitor.now = func() time.Time { return now }

	// Given one user waiting for more than a minute
	pool.EXPECT().Expire(now.Add(-time.Minute)).Return([]domain.UserID{userID})

	// Then the user gets a match-cancelled notification
	registry.EXPECT().
		Send(gomock.Any(), userID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.UserID, payload []byte) error {
			var envelope domain.Envelope
			req.NoError(json.Unmarshal(payload, &envelope))
			req.Equal(domain.MatchCancelled, envelope.Type)
			req.Equal(userID, envelope.UserID)
			return nil
		})

	// When the janitor sweeps
	req.Equal(1, janitor.Sweep(context.Background()))

	// And the expiry is reported
	evt := <-telemetryChan
	req.Equal(event.MatchExpiredType, evt.Type)
}

func TestPoolJanitor_Sweep_Nothing_To_Expire(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	pool := mocks.NewMockIPool(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)

	pool.EXPECT().Expire(gomock.Any()).Return(nil)
	registry.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	janitor := NewPoolJanitorWorker(slog.Default(), pool, registry, nil, time.Minute, time.Second)
	req.Zero(janitor.Sweep(context.Background()))
}
