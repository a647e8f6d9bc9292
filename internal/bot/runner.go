// internal/bot/runner.go
package bot

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/evm-copybot/internal/config"
	"github.com/rovshanmuradov/evm-copybot/internal/events"
	"github.com/rovshanmuradov/evm-copybot/internal/export"
	"github.com/rovshanmuradov/evm-copybot/internal/paper"
	"github.com/rovshanmuradov/evm-copybot/internal/provider"
	"github.com/rovshanmuradov/evm-copybot/internal/uniswap"
	"github.com/rovshanmuradov/evm-copybot/internal/wallet"
)

const busBufferSize = 256

// Runner owns the wired application: provider client, pipeline stages,
// position engine, event bus, and the ingestion loop. It is also the
// control surface the UI talks to.
type Runner struct {
	logger *zap.Logger
	cfg    *config.Config

	client *provider.Client
	engine *paper.Engine
	mode   *wallet.ModeSwitch
	bus    *events.Bus
	loop   *Loop

	shutdownCh chan os.Signal
	stopCh     chan struct{}
	stopOnce   sync.Once
}

func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	bus := events.NewBus(logger, busBufferSize)

	store := paper.NewFileStore(cfg.StatePath)
	engine := paper.NewEngine(decimal.NewFromFloat(cfg.InitialBalance), store, logger)

	initialMode := wallet.ModeSmartWallet
	if cfg.DemoMode {
		initialMode = wallet.ModeDemo
	}
	mode := wallet.NewModeSwitch(initialMode)

	filter := wallet.NewFilter(
		cfg.WatchSet,
		decimal.NewFromFloat(cfg.MinTradeSize),
		decimal.NewFromFloat(cfg.DemoShowThreshold),
		decimal.NewFromFloat(cfg.DemoFollowThreshold),
	)

	classifier := uniswap.NewClassifier(cfg.PoolDecimals, cfg.FallbackDecimals, logger)
	client := provider.NewClient(cfg.ProviderURL, cfg.AuthToken, logger)

	loop := NewLoop(LoopConfig{
		Provider:        client,
		Classifier:      classifier,
		Filter:          filter,
		Mode:            mode,
		Engine:          engine,
		Bus:             bus,
		Logger:          logger,
		Pools:           cfg.Pools,
		StartBlocksBack: cfg.StartBlocksBack,
		HoldDuration:    cfg.HoldDuration,
		IdleInterval:    cfg.IdleInterval,
		ReplayInterval:  cfg.ReplayInterval,
		LiveInterval:    cfg.LiveInterval,
		ErrorBackoff:    cfg.ErrorBackoff,
		LiveTolerance:   cfg.LiveTolerance,
	})

	return &Runner{
		logger:     logger,
		cfg:        cfg,
		client:     client,
		engine:     engine,
		mode:       mode,
		bus:        bus,
		loop:       loop,
		shutdownCh: make(chan os.Signal, 1),
		stopCh:     make(chan struct{}),
	}
}

// Run drives the ingestion loop until cancellation or an OS signal, then
// drains the event bus and writes the account state one last time.
// Cancellation is observed at iteration boundaries,
// so in-flight persistence always completes.
func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	shutdownCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case sig := <-r.shutdownCh:
			r.logger.Info("📡 Signal received: " + sig.String())
			cancel()
		case <-r.stopCh:
			cancel()
		case <-shutdownCtx.Done():
		}
	}()

	r.logger.Info("🚀 Starting copy-trading loop",
		zap.String("mode", r.mode.Current().String()),
		zap.Int("watched_wallets", len(r.cfg.WatchSet)),
		zap.Int("pools", len(r.cfg.Pools)))

	err := r.loop.Run(shutdownCtx)

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer drainCancel()
	if busErr := r.bus.Shutdown(drainCtx); busErr != nil {
		r.logger.Warn("Event bus drain timed out", zap.Error(busErr))
	}
	r.engine.Save()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	r.logger.Info("✅ Loop stopped cleanly")
	return nil
}

// RequestShutdown stops the loop from another goroutine (the UI's quit
// binding). Safe to call any number of times, before or after Run.
func (r *Runner) RequestShutdown() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// ToggleMode flips the trading mode. The loop picks the new mode up on the
// next processed trade; an open position is never affected.
func (r *Runner) ToggleMode() wallet.TradingMode {
	m := r.mode.Toggle()
	_ = r.bus.Publish(events.ModeChangedEvent{
		BaseEvent: events.BaseEvent{EventType: events.ModeChanged, EventTime: time.Now()},
		Mode:      m.String(),
	})
	r.logger.Info("Trading mode toggled", zap.String("mode", m.String()))
	return m
}

// Mode returns the currently active trading mode.
func (r *Runner) Mode() wallet.TradingMode {
	return r.mode.Current()
}

// AccountStats summarizes the simulated account for display.
func (r *Runner) AccountStats() paper.AccountStats {
	return r.engine.Stats(10)
}

// OpenPosition returns a copy of the open position, or nil when flat.
func (r *Runner) OpenPosition() *paper.Position {
	return r.engine.OpenPosition()
}

// Bus exposes the display event feed.
func (r *Runner) Bus() *events.Bus {
	return r.bus
}

// ExportTrades writes the full closed-trade history as CSV next to the
// state file and returns the output path.
func (r *Runner) ExportTrades() (string, error) {
	exporter := export.NewTradeExporter(r.logger)
	return exporter.Export(r.engine.ClosedTrades(), export.Options{
		Format:    export.FormatCSV,
		OutputDir: filepath.Dir(r.cfg.StatePath),
	})
}
