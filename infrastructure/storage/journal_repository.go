//go:generate go run go.uber.org/mock/mockgen -source=journal_repository.go -destination=../../mocks/mock_journal_repository.go -package=mocks
package storage

import (
	"allchat/domain"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const journalPrefix = "match:"

type RecordKind string

const (
	RecordFormed  RecordKind = "formed"
	RecordEnded   RecordKind = "ended"
	RecordExpired RecordKind = "expired"
)

type IJournalRepository interface {
	Store(record MatchRecord) error
	List(cursor *string) ([]MatchRecord, *string, error)
}

// MatchRecord is one lifecycle entry of a match. It holds identifiers only.
type MatchRecord struct {
	ID        uuid.UUID       `json:"id"`
	Kind      RecordKind      `json:"kind"`
	GroupID   domain.GroupID  `json:"group_id,omitempty"`
	Users     []domain.UserID `json:"users"`
	Initiator domain.UserID   `json:"initiator,omitempty"`
	At        time.Time       `json:"at"`
}

type JournalRepository struct {
	db    *badger.DB
	log   *slog.Logger
	limit int
}

func NewJournalRepository(db *badger.DB, log *slog.Logger, limit int) JournalRepository {
	return JournalRepository{db: db, log: log, limit: limit}
}

// Key formats "match:{timestamp_padded}:{uuid}".
// The 19 digit padding keeps lexicographic order chronological.
func Key(record MatchRecord) string {
	return fmt.Sprintf("%s%019d:%s", journalPrefix, record.At.UnixNano(), record.ID)
}

func (r JournalRepository) Store(record MatchRecord) error {
	bytes, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(Key(record)), bytes)
	})
}

// List returns records newest first, starting after cursor when set.
// The returned cursor is the suffix of the last key read.
func (r JournalRepository) List(cursor *string) ([]MatchRecord, *string, error) {
	var records []MatchRecord
	var lastKey string
	prefix := []byte(journalPrefix)

	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append([]byte(journalPrefix), []byte("9999999999999999999")...)
		if cursor != nil {
			seekKey = append([]byte(journalPrefix), []byte(*cursor)...)
		}
		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()) == string(seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if r.limit > 0 && len(records) == r.limit {
				r.log.Debug(fmt.Sprintf("Maximum of %d records reached", r.limit))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])
			err := item.Value(func(value []byte) error {
				var record MatchRecord
				if err := json.Unmarshal(value, &record); err != nil {
					return err
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if lastKey == "" {
		return records, nil, nil
	}
	return records, &lastKey, nil
}
