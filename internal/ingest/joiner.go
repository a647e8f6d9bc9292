// internal/ingest/joiner.go
package ingest

import (
	"strings"

	"github.com/rovshanmuradov/evm-copybot/internal/provider"
)

// EnrichedSwap pairs one raw log with the transaction it came from.
// Transaction is nil when the batch did not include a matching record;
// downstream stages treat that as "origin unknown", never as an error.
type EnrichedSwap struct {
	Log         provider.RawLog
	Transaction *provider.RawTransaction
	BlockNumber uint64
	Timestamp   uint64
}

// Join reconciles the independently returned log and transaction sets of one
// batch. Every log yields exactly one EnrichedSwap; hashes are
// case-normalized before matching since providers disagree on hex casing.
func Join(logs []provider.RawLog, txs []provider.RawTransaction, blocks []provider.RawBlock) []EnrichedSwap {
	byHash := make(map[string]*provider.RawTransaction, len(txs))
	for i := range txs {
		byHash[strings.ToLower(txs[i].Hash)] = &txs[i]
	}

	tsByBlock := make(map[uint64]uint64, len(blocks))
	for _, b := range blocks {
		tsByBlock[b.Number] = b.Timestamp
	}

	enriched := make([]EnrichedSwap, 0, len(logs))
	for _, l := range logs {
		enriched = append(enriched, EnrichedSwap{
			Log:         l,
			Transaction: byHash[strings.ToLower(l.TransactionHash)],
			BlockNumber: l.BlockNumber,
			Timestamp:   tsByBlock[l.BlockNumber],
		})
	}
	return enriched
}
