// internal/uniswap/classifier.go
package uniswap

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/evm-copybot/internal/config"
	"github.com/rovshanmuradov/evm-copybot/internal/ingest"
)

// SwapEventSignature is keccak256("Swap(address,address,int256,int256,uint160,uint128,int24)"),
// topic0 of every V3-style pool swap.
var SwapEventSignature = crypto.Keccak256Hash([]byte("Swap(address,address,int256,int256,uint160,uint128,int24)"))

// ErrNotSwapEvent marks logs whose first topic is not the swap signature.
// They are filtered, not failed.
var ErrNotSwapEvent = errors.New("log is not a swap event")

// DecodeError is a recoverable per-record failure: the ingestion loop logs
// it and continues with the next record.
type DecodeError struct {
	TxHash string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode swap %s: %s: %v", e.TxHash, e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// Non-indexed body of the swap event, in ABI order.
var swapBodyArgs = abi.Arguments{
	{Name: "amount0", Type: mustType("int256")},
	{Name: "amount1", Type: mustType("int256")},
	{Name: "sqrtPriceX96", Type: mustType("uint160")},
	{Name: "liquidity", Type: mustType("uint128")},
	{Name: "tick", Type: mustType("int24")},
}

// Classifier turns enriched swap records into Trades.
//
// Direction convention: the base asset is token1 and the quote is token0,
// matching PriceFromSqrtX96 returning token0-per-token1. A negative amount1
// means the pool paid out base asset, which is a BUY from the trader's
// perspective.
type Classifier struct {
	decimals map[string]config.PoolDecimals
	fallback config.PoolDecimals
	logger   *zap.Logger
}

func NewClassifier(decimals map[string]config.PoolDecimals, fallback config.PoolDecimals, logger *zap.Logger) *Classifier {
	normalized := make(map[string]config.PoolDecimals, len(decimals))
	for addr, d := range decimals {
		normalized[strings.ToLower(addr)] = d
	}
	return &Classifier{
		decimals: normalized,
		fallback: fallback,
		logger:   logger.Named("classifier"),
	}
}

// Classify decodes one enriched swap into a Trade. It returns
// ErrNotSwapEvent for foreign logs and *DecodeError for malformed payloads;
// neither is fatal to the caller.
func (c *Classifier) Classify(swap *ingest.EnrichedSwap) (*Trade, error) {
	if len(swap.Log.Topics) == 0 || common.HexToHash(swap.Log.Topics[0]) != SwapEventSignature {
		return nil, ErrNotSwapEvent
	}

	payload, err := hexutil.Decode(swap.Log.Data)
	if err != nil {
		return nil, &DecodeError{TxHash: swap.Log.TransactionHash, Reason: "malformed data payload", Err: err}
	}

	vals, err := swapBodyArgs.Unpack(payload)
	if err != nil {
		return nil, &DecodeError{TxHash: swap.Log.TransactionHash, Reason: "abi unpack", Err: err}
	}

	amount0, ok0 := vals[0].(*big.Int)
	amount1, ok1 := vals[1].(*big.Int)
	sqrtPriceX96, ok2 := vals[2].(*big.Int)
	if !ok0 || !ok1 || !ok2 {
		return nil, &DecodeError{TxHash: swap.Log.TransactionHash, Reason: "unexpected decoded types", Err: nil}
	}

	pool := strings.ToLower(swap.Log.Address)
	dec, known := c.decimals[pool]
	if !known {
		dec = c.fallback
		c.logger.Debug("Unknown pool, using fallback decimals", zap.String("pool", pool))
	}

	side := SideSell
	if amount1.Sign() < 0 {
		side = SideBuy
	}

	origin := ""
	if swap.Transaction != nil {
		origin = strings.ToLower(swap.Transaction.From)
	}

	return &Trade{
		Side:          side,
		BaseQuantity:  ScaleInteger(amount1, dec.Base),
		QuoteQuantity: ScaleInteger(amount0, dec.Quote),
		Price:         PriceFromSqrtX96(sqrtPriceX96, dec.Quote, dec.Base),
		OriginAddress: origin,
		PoolAddress:   pool,
		TxHash:        strings.ToLower(swap.Log.TransactionHash),
		BlockNumber:   swap.BlockNumber,
		Timestamp:     swap.Timestamp,
	}, nil
}
