// internal/bot/loop.go
package bot

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/evm-copybot/internal/events"
	"github.com/rovshanmuradov/evm-copybot/internal/ingest"
	"github.com/rovshanmuradov/evm-copybot/internal/paper"
	"github.com/rovshanmuradov/evm-copybot/internal/provider"
	"github.com/rovshanmuradov/evm-copybot/internal/uniswap"
	"github.com/rovshanmuradov/evm-copybot/internal/wallet"
)

// ProviderAPI is the slice of the provider client the loop consumes.
type ProviderAPI interface {
	Query(ctx context.Context, req *provider.QueryRequest) (*provider.QueryResponse, error)
	GetHeight(ctx context.Context) (uint64, error)
}

// LoopConfig wires the ingestion loop's collaborators and pacing knobs.
type LoopConfig struct {
	Provider   ProviderAPI
	Classifier *uniswap.Classifier
	Filter     *wallet.Filter
	Mode       *wallet.ModeSwitch
	Engine     *paper.Engine
	Bus        *events.Bus
	Logger     *zap.Logger
	Clock      Clock

	Pools           []string
	StartBlocksBack uint64
	HoldDuration    time.Duration
	IdleInterval    time.Duration
	ReplayInterval  time.Duration
	LiveInterval    time.Duration
	ErrorBackoff    time.Duration
	LiveTolerance   uint64
}

// Loop drives the whole pipeline from one goroutine: query a block range,
// join, classify, filter, route signals into the position engine, check
// expiry, advance the cursor, pace. All cross-batch mutable state (cursor,
// last observed price) lives here and is touched by no one else.
type Loop struct {
	cfg    LoopConfig
	logger *zap.Logger
	clock  Clock
	pacer  *Pacer

	fromBlock uint64
	lastPrice decimal.Decimal
}

func NewLoop(cfg LoopConfig) *Loop {
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &Loop{
		cfg:    cfg,
		logger: cfg.Logger.Named("ingest"),
		clock:  clock,
		pacer:  NewPacer(cfg.LiveTolerance, cfg.ReplayInterval, cfg.LiveInterval),
	}
}

// Run blocks until the context is cancelled. Provider errors are recovered
// per-iteration with a backoff sleep; nothing except cancellation stops
// the loop.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.initCursor(ctx); err != nil {
		return err
	}

	l.logger.Info("Ingestion loop started",
		zap.Uint64("from_block", l.fromBlock),
		zap.Duration("hold_duration", l.cfg.HoldDuration))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := l.iterate(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Warn("Iteration failed, backing off", zap.Error(err))
			l.publish(events.ProviderErrorEvent{
				BaseEvent: l.base(events.ProviderError),
				Err:       err,
			})
			if err := l.clock.Sleep(ctx, l.cfg.ErrorBackoff); err != nil {
				return err
			}
		}
	}
}

// initCursor anchors the cursor startBlocksBack behind the current tip,
// retrying until the first height query succeeds.
func (l *Loop) initCursor(ctx context.Context) error {
	for {
		height, err := l.cfg.Provider.GetHeight(ctx)
		if err == nil {
			l.fromBlock = 0
			if height > l.cfg.StartBlocksBack {
				l.fromBlock = height - l.cfg.StartBlocksBack
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.Warn("Height unavailable at startup, retrying", zap.Error(err))
		if err := l.clock.Sleep(ctx, l.cfg.ErrorBackoff); err != nil {
			return err
		}
	}
}

func (l *Loop) iterate(ctx context.Context) error {
	height, err := l.cfg.Provider.GetHeight(ctx)
	if err != nil {
		return err
	}

	req := &provider.QueryRequest{
		FromBlock: l.fromBlock,
		Logs: []provider.LogFilter{{
			Address: l.cfg.Pools,
			Topics:  [][]string{{uniswap.SwapEventSignature.Hex()}},
		}},
		FieldSelection: provider.SwapFieldSelection(),
	}

	resp, err := l.cfg.Provider.Query(ctx, req)
	if err != nil {
		return err
	}

	if resp.NextBlock == nil && len(resp.Data.Logs) == 0 {
		l.logger.Debug("No data for range, idling", zap.Uint64("from_block", l.fromBlock))
		return l.clock.Sleep(ctx, l.cfg.IdleInterval)
	}

	l.processBatch(resp.Data)
	l.checkExpiry()

	next := l.fromBlock
	if resp.NextBlock != nil {
		next = *resp.NextBlock
	}
	phase, pause := l.pacer.Assess(next, height)

	l.publish(events.CursorAdvancedEvent{
		BaseEvent: l.base(events.CursorAdvanced),
		FromBlock: l.fromBlock,
		NextBlock: next,
		Height:    height,
		Phase:     phase.String(),
		BatchLogs: len(resp.Data.Logs),
	})

	l.fromBlock = next
	return l.clock.Sleep(ctx, pause)
}

// processBatch runs one batch through join, classify, filter and routes
// signals into the engine. Decode failures and foreign logs are skipped;
// they never stop the batch.
func (l *Loop) processBatch(data provider.QueryData) {
	swaps := ingest.Join(data.Logs, data.Transactions, data.Blocks)

	for i := range swaps {
		mode := l.cfg.Mode.Current()
		trade, err := l.cfg.Classifier.Classify(&swaps[i])
		if err != nil {
			var decodeErr *uniswap.DecodeError
			if errors.As(err, &decodeErr) {
				l.logger.Debug("Skipping undecodable swap", zap.Error(decodeErr))
			}
			continue
		}

		if trade.Price.Sign() > 0 {
			l.lastPrice = trade.Price
		}

		verdict := l.cfg.Filter.Evaluate(trade, mode)
		if verdict.IsVisible {
			l.publish(events.SwapObservedEvent{
				BaseEvent: l.base(events.SwapObserved),
				Trade:     *trade,
				Watched:   l.cfg.Filter.Watches(trade.OriginAddress),
			})
		}
		if verdict.IsSignal {
			l.handleSignal(trade, mode)
		}
	}
}

func (l *Loop) handleSignal(trade *uniswap.Trade, mode wallet.TradingMode) {
	pos, err := l.cfg.Engine.Open(trade.Side, trade.BaseQuantity, trade.QuoteQuantity, trade.Price, l.clock.Now())
	dropped := errors.Is(err, paper.ErrPositionOpen)

	l.publish(events.SignalDetectedEvent{
		BaseEvent: l.base(events.SignalDetected),
		Trade:     *trade,
		Mode:      mode.String(),
		Dropped:   dropped,
	})

	if err != nil {
		l.logger.Debug("Signal not actionable", zap.Error(err), zap.String("tx", trade.TxHash))
		return
	}

	l.publish(events.PositionOpenedEvent{
		BaseEvent: l.base(events.PositionOpened),
		Position:  *pos,
		TxHash:    trade.TxHash,
	})
}

// checkExpiry closes the open position at the most recently observed price
// once the hold duration has elapsed.
func (l *Loop) checkExpiry() {
	if l.lastPrice.Sign() <= 0 {
		return
	}

	closed, err := l.cfg.Engine.CheckExpiry(l.clock.Now(), l.cfg.HoldDuration, l.lastPrice)
	if err != nil {
		l.logger.Error("Expiry close failed", zap.Error(err))
		return
	}
	if closed == nil {
		return
	}

	l.publish(events.PositionClosedEvent{
		BaseEvent: l.base(events.PositionClosed),
		Trade:     *closed,
		Balance:   l.cfg.Engine.Stats(0).Balance,
		Reason:    "expiry",
	})
}

func (l *Loop) base(t events.EventType) events.BaseEvent {
	return events.BaseEvent{EventType: t, EventTime: l.clock.Now()}
}

func (l *Loop) publish(e events.Event) {
	if l.cfg.Bus == nil {
		return
	}
	_ = l.cfg.Bus.Publish(e)
}
