package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"party-lab/domain"
)

// Dumps the cached ladder straight from badger, without touching the
// gateway. Handy to check what the next Publish would post.
func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	queue := flag.String("queue", string(domain.QueueSolo), "Queue to dump (solo|flex)")
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
	table.SetHeader([]string{"#", "Member", "Game Name", "Tier", "LP", "W/L", "WR"})
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

	q := domain.QueueType(*queue)
	position := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(fmt.Sprintf("rank:%s:", q))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				var p domain.PlayerRank
				if err := json.Unmarshal(v, &p); err != nil {
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}
				position++
				entry := p.Ranks[q]
				table.Append([]string{
					fmt.Sprintf("%d", position),
					domain.ShortName(p.DisplayName),
					fmt.Sprintf("%s#%s", p.GameName, p.GameTag),
					fmt.Sprintf("%s %s", entry.Tier, entry.Division),
					fmt.Sprintf("%d", entry.LeaguePoints),
					fmt.Sprintf("%d/%d", entry.Wins, entry.Losses),
					fmt.Sprintf("%.0f%%", entry.WinRate()),
				})
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

	color.Cyan.Printf("Cached %s ladder (%d players)\n\n", q, position)
	table.Render()
}
