// Command viewer dumps a room's message log straight from BadgerDB,
// bypassing the gateway. BypassLockGuard lets it open the database
// read-only while the gateway holds the lock.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

type storedMessage struct {
	ID       uint64    `json:"id"`
	Room     string    `json:"room"`
	Username string    `json:"username"`
	Content  string    `json:"content"`
	Lang     string    `json:"lang"`
	At       time.Time `json:"at"`
}

func main() {
	dbPath := flag.String("db", os.Getenv("BADGER_FILEPATH"), "Path to badger DB")
	room := flag.String("room", "general", "Room to dump")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("A database path is required: pass -db or set BADGER_FILEPATH")
	}

	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Timestamp", "Username", "Lang", "Content"})
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

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", *room))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var m storedMessage
				if err := json.Unmarshal(v, &m); err != nil {
					return err
				}
				table.Append([]string{
					fmt.Sprintf("%d", m.ID),
					m.At.Format(time.RFC3339),
					m.Username,
					m.Lang,
					m.Content,
				})
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Error while reading messages: ", err)
	}

	table.Render()
	fmt.Printf("\n%d messages in %q\n", count, *room)
}
