// internal/provider/types.go
package provider

// LogFilter selects which logs a query returns. Address is optional (empty
// means every contract), Topics is positional: Topics[0] matches the event
// signature hash.
type LogFilter struct {
	Address []string   `json:"address,omitempty"`
	Topics  [][]string `json:"topics"`
}

// FieldSelection names the fields the provider should populate per record
// kind. Anything not listed arrives zero-valued, so the request must cover
// the minimum set the pipeline decodes.
type FieldSelection struct {
	Block       []string `json:"block"`
	Log         []string `json:"log"`
	Transaction []string `json:"transaction"`
}

// QueryRequest asks for all matching records in [FromBlock, tip].
type QueryRequest struct {
	FromBlock      uint64         `json:"from_block"`
	Logs           []LogFilter    `json:"logs"`
	FieldSelection FieldSelection `json:"field_selection"`
}

// RawLog is one emitted event record as returned by the provider.
type RawLog struct {
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	TransactionHash string   `json:"transaction_hash"`
	BlockNumber     uint64   `json:"block_number"`
}

// RawTransaction carries only what origin matching needs.
type RawTransaction struct {
	Hash string `json:"hash"`
	From string `json:"from"`
}

// RawBlock carries block metadata for timestamp resolution.
type RawBlock struct {
	Number    uint64 `json:"number"`
	Timestamp uint64 `json:"timestamp"`
}

// QueryData groups the three record sets of one batch. Logs and
// Transactions are returned independently; pairing them is the joiner's
// job, not the provider's.
type QueryData struct {
	Logs         []RawLog         `json:"logs"`
	Transactions []RawTransaction `json:"transactions"`
	Blocks       []RawBlock       `json:"blocks"`
}

// QueryResponse is one batch plus the cursor for the next query. NextBlock
// is nil when the provider reports no progress for the range.
type QueryResponse struct {
	Data      QueryData `json:"data"`
	NextBlock *uint64   `json:"next_block,omitempty"`
}

// HeightResponse reports current chain height.
type HeightResponse struct {
	Height uint64 `json:"height"`
}

// SwapFieldSelection is the minimum field set the swap pipeline decodes:
// block timestamps for expiry math, the full topic list and data payload
// for classification, and transaction senders for wallet matching.
func SwapFieldSelection() FieldSelection {
	return FieldSelection{
		Block:       []string{"number", "timestamp"},
		Log:         []string{"address", "data", "topic0", "topic1", "topic2", "topic3", "transaction_hash", "block_number"},
		Transaction: []string{"from", "hash"},
	}
}
