package internal

import (
	"allchat/domain"
	"allchat/infrastructure/storage"
	"strings"
	"time"

	"github.com/samber/lo"
)

// JournalRows adapts the match journal to the debug server.
func JournalRows(repository storage.IJournalRepository) RowSource {
	return func(cursor *string) ([]InspectRow, *string, error) {
		records, next, err := repository.List(cursor)
		if err != nil {
			return nil, nil, err
		}
		return lo.Map(records, func(record storage.MatchRecord, _ int) InspectRow {
			return ToInspectRow(record)
		}), next, nil
	}
}

func ToInspectRow(record storage.MatchRecord) InspectRow {
	row := InspectRow{
		Key:       storage.Key(record),
		Kind:      string(record.Kind),
		Timestamp: record.At.Format(time.RFC3339),
		SessionID: string(record.GroupID),
		Users: strings.Join(lo.Map(record.Users, func(u domain.UserID, _ int) string {
			return string(u)
		}), ","),
	}
	if record.Initiator != "" {
		row.Detail = "left by " + string(record.Initiator)
	}
	return row
}
