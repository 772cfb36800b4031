package runtime

import (
	"allchat/contract"
	"allchat/domain"
	"allchat/domain/event"
	"context"
	"log/slog"
	"time"
)

// announceWait bounds how long a teardown waits for match-found to go out.
const announceWait = 5 * time.Second

// Lifecycle drives a group from formation to disbandment and notifies its members.
type Lifecycle struct {
	notifier
	pool      contract.IPool
	directory contract.IDirectory
	requeue   domain.RequeuePolicy
}

func NewLifecycle(log *slog.Logger, registry contract.IRegistry, pool contract.IPool,
	directory contract.IDirectory, telemetryChan chan<- event.Event, requeue domain.RequeuePolicy) *Lifecycle {
	return &Lifecycle{
		notifier:  notifier{log: log, registry: registry, telemetryChan: telemetryChan},
		pool:      pool,
		directory: directory,
		requeue:   requeue,
	}
}

// Matchmake puts userID in the pool and announces the match if a partner was waiting.
func (l *Lifecycle) Matchmake(ctx context.Context, userID domain.UserID) error {
	group, matched, err := l.pool.Match(userID)
	if err != nil {
		return err
	}
	if !matched {
		l.log.Debug("User waiting for a partner", "user_id", userID)
		return nil
	}
	defer group.Announcement.Close()
	l.log.Info("Match formed", "session_id", group.ID, "users", group.Members)
	l.emit(event.New(event.MatchFormedType, event.MatchFormed{Group: group}))
	found := domain.NewMatchFound(group)
	for _, member := range group.Members {
		l.notify(ctx, member, found)
	}
	return nil
}

// Leave removes userID from its group and tells the others.
// A group left with a single member is disbanded: that member gets chat-ended
// and is re-admitted to the pool according to the requeue policy.
// Members always get match-found before any notification of the teardown.
func (l *Lifecycle) Leave(ctx context.Context, userID domain.UserID) (domain.Departure, bool) {
	departure, ok := l.directory.Leave(userID)
	if !ok {
		return departure, false
	}
	l.awaitAnnouncement(ctx, departure)
	l.log.Info("User left match", "user_id", userID, "session_id", departure.Group, "remaining", len(departure.Remaining))

	left := domain.NewUserLeftMatch(userID)
	for _, member := range departure.Remaining {
		l.notify(ctx, member, left)
	}
	if !departure.Disbanded {
		return departure, true
	}

	l.emit(event.New(event.GroupDisbandedType, event.GroupDisbanded{
		Group:     departure.Group,
		Initiator: userID,
		Remaining: departure.Remaining,
	}))
	ended := domain.NewChatEnded(userID)
	for _, member := range departure.Remaining {
		l.notify(ctx, member, ended)
	}
	if l.requeue == domain.RequeueAll {
		for _, member := range departure.Remaining {
			if !l.registry.Connected(member) {
				continue
			}
			if err := l.Matchmake(ctx, member); err != nil {
				l.log.Warn("Unable to requeue user", "user_id", member, "error", err)
			}
		}
	}
	return departure, true
}

func (l *Lifecycle) awaitAnnouncement(ctx context.Context, departure domain.Departure) {
	timer := time.NewTimer(announceWait)
	defer timer.Stop()
	select {
	case <-departure.Announcement.Done():
	case <-ctx.Done():
		l.log.Debug("Stopped waiting for match announcement", "session_id", departure.Group, "error", ctx.Err())
	case <-timer.C:
		l.log.Warn("Match announcement still pending, tearing down anyway", "session_id", departure.Group)
	}
}
