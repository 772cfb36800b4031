package main

import (
	"allchat/infrastructure/storage"
	"allchat/internal"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/journal", "Path to badger DB")
	limit := flag.Int("limit", 100, "Maximum number of records, 0 for all")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Timestamp", "Kind", "Session", "Users", "Detail", "Key"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	records, _, err := storage.NewJournalRepository(db, slog.Default(), *limit).List(nil)
	if err != nil {
		log.Fatal("Error while reading journal: ", err)
	}
	for _, record := range records {
		row := internal.ToInspectRow(record)
		table.Append([]string{row.Timestamp, row.Kind, row.SessionID, row.Users, row.Detail, row.Key})
	}
	table.Render()
	fmt.Printf("%d record(s)\n", len(records))
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.ERROR)
	return badger.Open(opts)
}
