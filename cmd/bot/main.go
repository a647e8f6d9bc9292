// cmd/bot/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/evm-copybot/internal/bot"
	"github.com/rovshanmuradov/evm-copybot/internal/config"
	"github.com/rovshanmuradov/evm-copybot/internal/logger"
	"github.com/rovshanmuradov/evm-copybot/internal/ui"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	headless := flag.Bool("headless", false, "run without the dashboard")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if *headless {
		cfg.Headless = true
	}

	var log *zap.Logger
	if cfg.Headless {
		log, err = logger.Init(cfg.DebugLogging, cfg.LogFile)
	} else {
		// The dashboard owns the terminal; console logging would tear it.
		log, err = logger.InitFileOnly(cfg.DebugLogging, cfg.LogFile)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	runner := bot.NewRunner(cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(gctx)
	})

	if !cfg.Headless {
		dashboard := ui.New(runner, runner.Bus(), log)
		program := tea.NewProgram(dashboard, tea.WithAltScreen())
		g.Go(func() error {
			go func() {
				<-gctx.Done()
				program.Quit()
			}()
			_, runErr := program.Run()
			dashboard.Close()
			runner.RequestShutdown()
			return runErr
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("Bot exited with error", zap.Error(err))
		os.Exit(1)
	}
}
