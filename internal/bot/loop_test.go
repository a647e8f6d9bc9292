package bot

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/evm-copybot/internal/config"
	"github.com/rovshanmuradov/evm-copybot/internal/paper"
	"github.com/rovshanmuradov/evm-copybot/internal/provider"
	"github.com/rovshanmuradov/evm-copybot/internal/uniswap"
	"github.com/rovshanmuradov/evm-copybot/internal/wallet"
)

const (
	loopPool   = "0x8ad599c3a0ff1de082011efddc58f1908eb6e6d8"
	loopWallet = "0xab5801a7d398351b8be11c439e05c5b3259aec9b"
)

// sqrt encodings of 3000 and 3100 USDC per WETH for a 6/18 pool
var (
	sqrt3000, _ = new(big.Int).SetString("1446501726624926496477173928747177", 10)
	sqrt3100, _ = new(big.Int).SetString("1422979805740085184635336701140122", 10)
)

// fakeClock advances instantly instead of sleeping, so pacing and
// hold-duration expiry are driven by the test script.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.now = c.now.Add(d)
	return nil
}

// scriptedProvider replays a fixed sequence of query responses, then
// cancels the loop.
type scriptedProvider struct {
	height    uint64
	responses []*provider.QueryResponse
	calls     int
	requests  []*provider.QueryRequest
	stop      context.CancelFunc
	onQuery   func(call int) // optional, runs before each scripted response
}

func (p *scriptedProvider) GetHeight(ctx context.Context) (uint64, error) {
	return p.height, nil
}

func (p *scriptedProvider) Query(ctx context.Context, req *provider.QueryRequest) (*provider.QueryResponse, error) {
	if p.calls >= len(p.responses) {
		p.stop()
		return nil, context.Canceled
	}
	if p.onQuery != nil {
		p.onQuery(p.calls)
	}
	p.requests = append(p.requests, req)
	resp := p.responses[p.calls]
	p.calls++
	return resp, nil
}

func packTestWord(v *big.Int) []byte {
	word := new(big.Int).Set(v)
	if word.Sign() < 0 {
		word.Add(word, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return common.LeftPadBytes(word.Bytes(), 32)
}

func swapPayload(amount0, amount1, sqrtPriceX96 *big.Int) string {
	var buf []byte
	for _, v := range []*big.Int{amount0, amount1, sqrtPriceX96, big.NewInt(1), big.NewInt(0)} {
		buf = append(buf, packTestWord(v)...)
	}
	return hexutil.Encode(buf)
}

// buyBatch builds one batch containing a single 0.5 WETH buy by trader.
func buyBatch(trader, txHash string, block uint64, sqrtPrice *big.Int, nextBlock uint64) *provider.QueryResponse {
	amount0 := big.NewInt(1_500_000_000)
	amount1, _ := new(big.Int).SetString("-500000000000000000", 10)

	next := nextBlock
	return &provider.QueryResponse{
		Data: provider.QueryData{
			Logs: []provider.RawLog{{
				Address:         loopPool,
				Topics:          []string{uniswap.SwapEventSignature.Hex()},
				Data:            swapPayload(amount0, amount1, sqrtPrice),
				TransactionHash: txHash,
				BlockNumber:     block,
			}},
			Transactions: []provider.RawTransaction{{Hash: txHash, From: trader}},
			Blocks:       []provider.RawBlock{{Number: block, Timestamp: 1_700_000_000}},
		},
		NextBlock: &next,
	}
}

func newTestLoop(t *testing.T, prov ProviderAPI, clock Clock, engine *paper.Engine, mode *wallet.ModeSwitch) *Loop {
	logger := zaptest.NewLogger(t)

	classifier := uniswap.NewClassifier(
		map[string]config.PoolDecimals{loopPool: {Base: 18, Quote: 6}},
		config.PoolDecimals{Base: 18, Quote: 6},
		logger,
	)
	filter := wallet.NewFilter(
		[]string{loopWallet},
		decimal.NewFromFloat(0.1),
		decimal.NewFromFloat(0.1),
		decimal.NewFromFloat(1.0),
	)

	return NewLoop(LoopConfig{
		Provider:        prov,
		Classifier:      classifier,
		Filter:          filter,
		Mode:            mode,
		Engine:          engine,
		Logger:          logger,
		Clock:           clock,
		Pools:           []string{loopPool},
		StartBlocksBack: 10,
		HoldDuration:    time.Minute,
		IdleInterval:    time.Second,
		ReplayInterval:  2 * time.Minute, // one replay pause crosses the hold boundary
		LiveInterval:    2 * time.Minute,
		ErrorBackoff:    time.Second,
		LiveTolerance:   2,
	})
}

func TestLoop_OpensAndExpiresPosition(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	block995 := uint64(995)
	block998 := uint64(998)
	prov := &scriptedProvider{
		height: 1000,
		responses: []*provider.QueryResponse{
			// Watched wallet buys at 3000: the loop should follow.
			buyBatch(loopWallet, "0xtx1", 992, sqrt3000, block995),
			// The same wallet buys again at 3100 while the position is
			// held: dropped. The batch still moves the observed price,
			// and the hold duration has elapsed by now.
			buyBatch(loopWallet, "0xtx2", 996, sqrt3100, block998),
		},
		stop: cancel,
	}
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	engine := paper.NewEngine(decimal.NewFromInt(10000), nil, zaptest.NewLogger(t))

	loop := newTestLoop(t, prov, clock, engine, wallet.NewModeSwitch(wallet.ModeSmartWallet))
	err := loop.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// Cursor anchored behind the tip, then advanced by each batch.
	require.Len(t, prov.requests, 2)
	assert.Equal(t, uint64(990), prov.requests[0].FromBlock)
	assert.Equal(t, uint64(995), prov.requests[1].FromBlock)

	// Requests carry the swap topic filter and the pool address.
	require.Len(t, prov.requests[0].Logs, 1)
	assert.Equal(t, []string{loopPool}, prov.requests[0].Logs[0].Address)
	assert.Equal(t, uniswap.SwapEventSignature.Hex(), prov.requests[0].Logs[0].Topics[0][0])

	// Exactly one round trip: opened at 3000, expired at 3100.
	stats := engine.Stats(10)
	require.Equal(t, 1, stats.TotalTrades)
	assert.Nil(t, engine.OpenPosition())

	closed := stats.RecentTrades[0]
	assert.Equal(t, uniswap.SideBuy, closed.Side)
	entry, _ := closed.EntryPrice.Float64()
	exit, _ := closed.ExitPrice.Float64()
	assert.InEpsilon(t, 3000.0, entry, 1e-9)
	assert.InEpsilon(t, 3100.0, exit, 1e-9)

	// PnL = 1500 * (3100-3000)/3000 = +50 on the simulated balance.
	balance, _ := stats.Balance.Float64()
	assert.InEpsilon(t, 10050.0, balance, 1e-9)
}

func TestLoop_ModeToggleLeavesOpenPositionUntouched(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	block995 := uint64(995)
	block998 := uint64(998)
	mode := wallet.NewModeSwitch(wallet.ModeSmartWallet)
	prov := &scriptedProvider{
		height: 1000,
		responses: []*provider.QueryResponse{
			// Opens the position under SMART_WALLET at 3000.
			buyBatch(loopWallet, "0xtx1", 992, sqrt3000, block995),
			// Expiry batch at 3100, served after the mid-hold toggle.
			buyBatch(loopWallet, "0xtx2", 996, sqrt3100, block998),
		},
		stop: cancel,
	}
	// Flip to DEMO while the position is held. The close must still be
	// computed from the entry recorded at open time.
	prov.onQuery = func(call int) {
		if call == 1 {
			mode.Toggle()
		}
	}
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	engine := paper.NewEngine(decimal.NewFromInt(10000), nil, zaptest.NewLogger(t))

	loop := newTestLoop(t, prov, clock, engine, mode)
	err := loop.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, wallet.ModeDemo, mode.Current())

	stats := engine.Stats(10)
	require.Equal(t, 1, stats.TotalTrades)
	assert.Nil(t, engine.OpenPosition())

	closed := stats.RecentTrades[0]
	assert.Equal(t, uniswap.SideBuy, closed.Side)
	entry, _ := closed.EntryPrice.Float64()
	exit, _ := closed.ExitPrice.Float64()
	assert.InEpsilon(t, 3000.0, entry, 1e-9)
	assert.InEpsilon(t, 3100.0, exit, 1e-9)

	balance, _ := stats.Balance.Float64()
	assert.InEpsilon(t, 10050.0, balance, 1e-9)
}

func TestLoop_IgnoresAnonymousTradesInSmartWalletMode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	next := uint64(995)
	prov := &scriptedProvider{
		height: 1000,
		responses: []*provider.QueryResponse{
			buyBatch("0x2222222222222222222222222222222222222222", "0xtx1", 992, sqrt3000, next),
		},
		stop: cancel,
	}
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	engine := paper.NewEngine(decimal.NewFromInt(10000), nil, zaptest.NewLogger(t))

	loop := newTestLoop(t, prov, clock, engine, wallet.NewModeSwitch(wallet.ModeSmartWallet))
	err := loop.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Nil(t, engine.OpenPosition(), "unwatched trade must not open a position")
	assert.Zero(t, engine.Stats(0).TotalTrades)
}

func TestLoop_EmptyRangeIdles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prov := &scriptedProvider{
		height: 1000,
		responses: []*provider.QueryResponse{
			{Data: provider.QueryData{}}, // no progress, no records
		},
		stop: cancel,
	}
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	engine := paper.NewEngine(decimal.NewFromInt(10000), nil, zaptest.NewLogger(t))

	loop := newTestLoop(t, prov, clock, engine, wallet.NewModeSwitch(wallet.ModeSmartWallet))
	err := loop.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// The loop slept the idle interval instead of spinning on the range.
	assert.Equal(t, start.Add(time.Second), clock.now)
}
