// Command inspect dumps the relay's badger store as a table.
// It opens the database read-only and can run next to a live server.
package main

import (
	"chat-relay/repositories"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

type row struct {
	Key    string
	Type   string
	ID     string
	Detail string
}

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	// Index keys are skipped unless -prefix targets them explicitly
	prefix := flag.String("prefix", "", "Prefix to scan (msg:id:, chat:id:, user:id:, ...)")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer func() { _ = db.Close() }()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "ID", "Detail"})
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

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if *prefix == "" && !isRecord(key) {
				continue
			}
			err := item.Value(func(v []byte) error {
				r := toRow(key, v)
				table.Append([]string{r.Key, r.Type, r.ID, r.Detail})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func isRecord(key string) bool {
	for _, p := range []string{"msg:id:", "chat:id:", "user:id:"} {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func toRow(key string, val []byte) row {
	r := row{Key: key, Type: "INDEX", Detail: fmt.Sprintf("%d bytes", len(val))}
	switch {
	case strings.HasPrefix(key, "msg:id:"):
		var m repositories.DiskMessage
		if err := json.Unmarshal(val, &m); err != nil {
			r.Detail = "Error: unmarshal failed"
			return r
		}
		r.Type = "MESSAGE"
		r.ID = fmt.Sprint(m.ID)
		r.Detail = fmt.Sprintf("chat=%d sender=%d read=%t at=%s %q", m.ChatID, m.SenderID, m.IsRead,
			time.Unix(m.Timestamp, 0).UTC().Format(time.TimeOnly), truncate(m.Text, 40))
	case strings.HasPrefix(key, "chat:id:"):
		var c repositories.DiskChat
		if err := json.Unmarshal(val, &c); err != nil {
			r.Detail = "Error: unmarshal failed"
			return r
		}
		r.Type = "DIRECT"
		if c.IsGroup {
			r.Type = "GROUP"
		}
		r.ID = fmt.Sprint(c.ID)
		r.Detail = c.Name
	case strings.HasPrefix(key, "user:id:"):
		var u repositories.DiskUser
		if err := json.Unmarshal(val, &u); err != nil {
			r.Detail = "Error: unmarshal failed"
			return r
		}
		r.Type = "USER"
		r.ID = fmt.Sprint(u.ID)
		r.Detail = fmt.Sprintf("%s <%s>", u.Name, u.Email)
	}
	return r
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
