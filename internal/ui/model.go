// internal/ui/model.go
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/evm-copybot/internal/events"
	"github.com/rovshanmuradov/evm-copybot/internal/paper"
	"github.com/rovshanmuradov/evm-copybot/internal/wallet"
)

const maxFeedLines = 200

// Controller is what the dashboard needs from the running bot. Mode
// toggles and shutdown go through it so the loop only ever sees
// thread-safe handoffs.
type Controller interface {
	ToggleMode() wallet.TradingMode
	Mode() wallet.TradingMode
	AccountStats() paper.AccountStats
	OpenPosition() *paper.Position
	ExportTrades() (string, error)
	RequestShutdown()
}

type feedMsg string

type tickMsg time.Time

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	profitStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	lossStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	feedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	borderStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	watchedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// Model is the single-screen dashboard: account header, live activity
// feed, key help.
type Model struct {
	ctrl   Controller
	keys   KeyMap
	logger *zap.Logger

	feed  chan string
	lines []string
	width int
	subs  []events.Subscription
}

// New builds the dashboard and subscribes it to the display feed.
func New(ctrl Controller, bus *events.Bus, logger *zap.Logger) *Model {
	m := &Model{
		ctrl:   ctrl,
		keys:   DefaultKeyMap(),
		logger: logger.Named("ui"),
		feed:   make(chan string, 64),
	}

	push := func(e events.Event) {
		line, ok := e.(fmt.Stringer)
		if !ok {
			return
		}
		stamped := e.Timestamp().Format("15:04:05") + "  " + line.String()
		select {
		case m.feed <- stamped:
		default:
			// Feed channel full: the dashboard is cosmetic, dropping is fine.
		}
	}

	for _, t := range []events.EventType{
		events.SwapObserved,
		events.SignalDetected,
		events.PositionOpened,
		events.PositionClosed,
		events.ModeChanged,
		events.ProviderError,
	} {
		sub := bus.SubscribeFunc(t, func(_ context.Context, e events.Event) error {
			push(e)
			return nil
		})
		m.subs = append(m.subs, sub)
	}

	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitFeed(), m.tick())
}

func (m *Model) waitFeed() tea.Cmd {
	return func() tea.Msg {
		return feedMsg(<-m.feed)
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.ctrl.RequestShutdown()
			return m, tea.Quit
		case key.Matches(msg, m.keys.ToggleMode):
			m.ctrl.ToggleMode()
			return m, nil
		case key.Matches(msg, m.keys.ClearFeed):
			m.lines = nil
			return m, nil
		case key.Matches(msg, m.keys.Export):
			path, err := m.ctrl.ExportTrades()
			note := "exported " + path
			if err != nil {
				note = "export failed: " + err.Error()
			}
			m.lines = append(m.lines, time.Now().Format("15:04:05")+"  "+note)
			return m, nil
		}
		return m, nil

	case feedMsg:
		m.lines = append(m.lines, string(msg))
		if len(m.lines) > maxFeedLines {
			m.lines = m.lines[len(m.lines)-maxFeedLines:]
		}
		return m, m.waitFeed()

	case tickMsg:
		return m, m.tick()
	}

	return m, nil
}

func (m *Model) View() string {
	var b strings.Builder

	stats := m.ctrl.AccountStats()
	pnlStyle := profitStyle
	if stats.TotalPnLQuote.Sign() < 0 {
		pnlStyle = lossStyle
	}

	header := fmt.Sprintf("%s  %s  %s  %s",
		headerStyle.Render("evm-copybot"),
		labelStyle.Render("mode:")+watchedStyle.Render(m.ctrl.Mode().String()),
		labelStyle.Render("balance:")+stats.Balance.StringFixed(2),
		labelStyle.Render("pnl:")+pnlStyle.Render(fmt.Sprintf("%s (%.2f%%)", stats.TotalPnLQuote.StringFixed(2), stats.TotalPnLPercent)),
	)
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(fmt.Sprintf("trades: %d  win rate: %.1f%%", stats.TotalTrades, stats.WinRate)))
	b.WriteString("\n")

	if pos := m.ctrl.OpenPosition(); pos != nil {
		b.WriteString(watchedStyle.Render(fmt.Sprintf("open: %s %s @ %s since %s",
			pos.Side, pos.BaseQuantity.StringFixed(4), pos.EntryPrice.StringFixed(2),
			pos.OpenedAt.Format("15:04:05"))))
	} else {
		b.WriteString(labelStyle.Render("open: none"))
	}
	b.WriteString("\n\n")

	visible := m.lines
	if len(visible) > 20 {
		visible = visible[len(visible)-20:]
	}
	b.WriteString(borderStyle.Render(feedStyle.Render(strings.Join(visible, "\n"))))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("m toggle mode · c clear feed · e export trades · q quit"))

	return b.String()
}

// Close detaches the dashboard from the event feed.
func (m *Model) Close() {
	for _, s := range m.subs {
		s.Unsubscribe()
	}
}
