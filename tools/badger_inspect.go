package main

import (
	"flag"
	"fmt"
	"group-chat/domain/chat"
	"group-chat/infrastructure/storage"
	"log"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

// Dumps the decoded records of one key space, e.g. -prefix "msg:<group id>:".
func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	prefix := flag.String("prefix", storage.MessagePrefix, "Prefix to scan")
	limit := flag.Int("limit", 200, "Maximum number of rows")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Timestamp", "Owner", "Detail"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	rows := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes) && rows < *limit; it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			record, err := storage.DecodeAny(key, value)
			if err != nil {
				fmt.Printf("Error decoding key %s: %v\n", key, err)
				continue
			}
			table.Append(toRow(string(key), record))
			rows++
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}
	table.Render()
}

func toRow(key string, record any) []string {
	switch r := record.(type) {
	case chat.Group:
		return []string{key, "GROUP", r.CreatedAt.Format("2006-01-02 15:04:05"), r.OwnerID.String(), r.Name}
	case chat.Membership:
		return []string{key, "MEMBERSHIP", r.CreatedAt.Format("2006-01-02 15:04:05"), r.UserID.String(), string(r.Role)}
	case chat.Message:
		sender := chat.UnknownSender
		if r.SenderID != nil {
			sender = r.SenderID.String()
		}
		return []string{key, "MESSAGE", r.CreatedAt.Format("15:04:05.000"), sender, r.Content}
	case chat.Profile:
		return []string{key, "PROFILE", r.UpdatedAt.Format("2006-01-02 15:04:05"), r.UserID.String(), r.DisplayName}
	}
	return []string{key, "INDEX", "", "", fmt.Sprint(record)}
}
