package sink

import (
	"allchat/domain"
	"allchat/domain/event"
	"allchat/errors"
	"allchat/infrastructure/storage"
	"log/slog"

	"github.com/google/uuid"
)

// JournalSink records match lifecycle telemetry into the journal.
type JournalSink struct {
	repository storage.IJournalRepository
	log        *slog.Logger
}

func NewJournalSink(repository storage.IJournalRepository, log *slog.Logger) JournalSink {
	return JournalSink{repository: repository, log: log}
}

func (j JournalSink) Handle(e event.Event) {
	record, ok, err := toMatchRecord(e)
	if err != nil {
		j.log.Error(err.Error(), "type", e.Type)
		return
	}
	if !ok {
		return
	}
	if err := j.repository.Store(record); err != nil {
		j.log.Error("Unable to store match record", "kind", record.Kind, "error", err)
	}
}

func toMatchRecord(e event.Event) (storage.MatchRecord, bool, error) {
	record := storage.MatchRecord{ID: uuid.New(), At: e.CreatedAt}
	switch e.Type {
	case event.MatchFormedType:
		payload, ok := e.Payload.(event.MatchFormed)
		if !ok {
			return storage.MatchRecord{}, false, errors.ErrInvalidPayload
		}
		record.Kind = storage.RecordFormed
		record.GroupID = payload.Group.ID
		record.Users = payload.Group.Members
	case event.GroupDisbandedType:
		payload, ok := e.Payload.(event.GroupDisbanded)
		if !ok {
			return storage.MatchRecord{}, false, errors.ErrInvalidPayload
		}
		record.Kind = storage.RecordEnded
		record.GroupID = payload.Group
		record.Initiator = payload.Initiator
		record.Users = append([]domain.UserID{payload.Initiator}, payload.Remaining...)
	case event.MatchExpiredType:
		payload, ok := e.Payload.(event.MatchExpired)
		if !ok {
			return storage.MatchRecord{}, false, errors.ErrInvalidPayload
		}
		record.Kind = storage.RecordExpired
		record.Users = []domain.UserID{payload.UserID}
	default:
		return storage.MatchRecord{}, false, nil
	}
	return record, true, nil
}
