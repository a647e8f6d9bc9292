package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/evm-copybot/internal/provider"
)

func TestJoin_MatchesTransactionsAndTimestamps(t *testing.T) {
	logs := []provider.RawLog{
		{TransactionHash: "0xAAA1", BlockNumber: 100},
		{TransactionHash: "0xaaa2", BlockNumber: 100},
		{TransactionHash: "0xaaa3", BlockNumber: 101},
	}
	txs := []provider.RawTransaction{
		{Hash: "0xaaa1", From: "0xwallet1"},
		{Hash: "0xAAA3", From: "0xwallet3"},
	}
	blocks := []provider.RawBlock{
		{Number: 100, Timestamp: 1_700_000_000},
		{Number: 101, Timestamp: 1_700_000_012},
	}

	enriched := Join(logs, txs, blocks)
	require.Len(t, enriched, 3, "every log must yield a record")

	// Hash matching ignores hex casing on both sides.
	require.NotNil(t, enriched[0].Transaction)
	assert.Equal(t, "0xwallet1", enriched[0].Transaction.From)
	require.NotNil(t, enriched[2].Transaction)
	assert.Equal(t, "0xwallet3", enriched[2].Transaction.From)

	// A log without a transaction in the batch survives with a nil pairing.
	assert.Nil(t, enriched[1].Transaction)

	assert.Equal(t, uint64(1_700_000_000), enriched[0].Timestamp)
	assert.Equal(t, uint64(1_700_000_000), enriched[1].Timestamp)
	assert.Equal(t, uint64(1_700_000_012), enriched[2].Timestamp)
	assert.Equal(t, uint64(101), enriched[2].BlockNumber)
}

func TestJoin_EmptyBatch(t *testing.T) {
	assert.Empty(t, Join(nil, nil, nil))
}

func TestJoin_MissingBlockMetadata(t *testing.T) {
	logs := []provider.RawLog{{TransactionHash: "0x1", BlockNumber: 55}}

	enriched := Join(logs, nil, nil)
	require.Len(t, enriched, 1)
	assert.Zero(t, enriched[0].Timestamp)
	assert.Equal(t, uint64(55), enriched[0].BlockNumber)
}
