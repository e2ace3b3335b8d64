package ranking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/dgraph-io/badger/v4"

	"party-lab/domain"
)

// Repository persists rank snapshots in BadgerDB between collection and
// publication, so a scoreboard can be rebuilt after a restart without
// hammering the upstream API.
// The key is formatted as "rank:{queue}:{inverted_score_padded}:{member}" to:
//  1. Ensure best-first iteration using 19-digit zero padding of
//     MaxInt64-score (lexicographical order).
//  2. Prevent data loss by keeping the member ID as a collision
//     disconnector when two players share a score.
type Repository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewRepository(db *badger.DB, log *slog.Logger) Repository {
	return Repository{db: db, log: log}
}

func rankKey(queue domain.QueueType, p domain.PlayerRank) []byte {
	score := p.Ranks[queue].Score()
	return []byte(fmt.Sprintf("rank:%s:%019d:%s", queue, math.MaxInt64-int64(score), p.Member))
}

func queuePrefix(queue domain.QueueType) []byte {
	return []byte(fmt.Sprintf("rank:%s:", queue))
}

// Replace atomically swaps the stored snapshot for a queue: the old
// prefix is wiped and the new players written in one transaction.
func (r Repository) Replace(queue domain.QueueType, players []domain.PlayerRank) error {
	return r.db.Update(func(txn *badger.Txn) error {
		prefix := queuePrefix(queue)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		var stale [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		for _, p := range players {
			bytes, err := json.Marshal(p)
			if err != nil {
				return err
			}
			if err := txn.Set(rankKey(queue, p), bytes); err != nil {
				return err
			}
		}
		return nil
	})
}

// Top retrieves up to n players for a queue using a prefix scan. Thanks
// to the inverted padded score in the key, players come out best first.
func (r Repository) Top(queue domain.QueueType, n int) ([]domain.PlayerRank, error) {
	var players []domain.PlayerRank
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := queuePrefix(queue)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if len(players) == n {
				r.log.Debug(fmt.Sprintf("Maximum of %d players reached", n))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var p domain.PlayerRank
				if err := json.Unmarshal(value, &p); err != nil {
					return err
				}
				players = append(players, p)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return players, nil
}
