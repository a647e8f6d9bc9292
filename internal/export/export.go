package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/evm-copybot/internal/paper"
	"github.com/rovshanmuradov/evm-copybot/internal/uniswap"
)

// Format represents the export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Options configures the export behavior
type Options struct {
	Format     Format
	StartTime  time.Time
	EndTime    time.Time
	SideFilter string // "BUY", "SELL" or empty for both
	OnlyWins   bool   // Only export profitable round trips
	OutputDir  string
}

// TradeExporter writes the account's closed trades to disk
type TradeExporter struct {
	logger *zap.Logger
}

func NewTradeExporter(logger *zap.Logger) *TradeExporter {
	return &TradeExporter{
		logger: logger.Named("export"),
	}
}

// Export writes the matching trades and returns the output path.
func (te *TradeExporter) Export(trades []paper.ClosedTrade, options Options) (string, error) {
	filtered := te.filterTrades(trades, options)

	if len(filtered) == 0 {
		return "", fmt.Errorf("no trades match the export criteria")
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].ClosedAt.Before(filtered[j].ClosedAt)
	})

	filename := te.generateFilename(options)
	outputPath := filepath.Join(options.OutputDir, filename)

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = te.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = te.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}

	if err != nil {
		return "", err
	}

	te.logger.Info("Trades exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func (te *TradeExporter) filterTrades(trades []paper.ClosedTrade, options Options) []paper.ClosedTrade {
	var filtered []paper.ClosedTrade

	for _, trade := range trades {
		if !options.StartTime.IsZero() && trade.ClosedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && trade.ClosedAt.After(options.EndTime) {
			continue
		}
		if options.SideFilter != "" && trade.Side.String() != options.SideFilter {
			continue
		}
		if options.OnlyWins && trade.RealizedPnL.Sign() <= 0 {
			continue
		}

		filtered = append(filtered, trade)
	}

	return filtered
}

func (te *TradeExporter) generateFilename(options Options) string {
	timestamp := time.Now().Format("20060102_150405")

	prefix := "trades_all"
	if options.SideFilter != "" {
		prefix = fmt.Sprintf("trades_%s", options.SideFilter)
	}
	if options.OnlyWins {
		prefix += "_wins"
	}

	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

func csvHeaders() []string {
	return []string{
		"sequence_id", "side", "base_quantity", "quote_value",
		"entry_price", "exit_price", "opened_at", "closed_at",
		"realized_pnl_quote", "realized_pnl_fraction", "duration_seconds",
	}
}

func csvRow(t paper.ClosedTrade) []string {
	return []string{
		strconv.Itoa(t.SequenceID),
		t.Side.String(),
		t.BaseQuantity.String(),
		t.QuoteValue.String(),
		t.EntryPrice.String(),
		t.ExitPrice.String(),
		t.OpenedAt.Format(time.RFC3339),
		t.ClosedAt.Format(time.RFC3339),
		t.RealizedPnL.String(),
		t.RealizedPnLFrac.String(),
		strconv.FormatFloat(t.DurationSeconds, 'f', 0, 64),
	}
}

func (te *TradeExporter) exportToCSV(trades []paper.ClosedTrade, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(csvHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, trade := range trades {
		if err := writer.Write(csvRow(trade)); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}

	return nil
}

func (te *TradeExporter) exportToJSON(trades []paper.ClosedTrade, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime time.Time           `json:"export_time"`
		TradeCount int                 `json:"trade_count"`
		Trades     []paper.ClosedTrade `json:"trades"`
		Summary    Summary             `json:"summary"`
	}{
		ExportTime: time.Now(),
		TradeCount: len(trades),
		Trades:     trades,
		Summary:    te.calculateSummary(trades),
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// Summary aggregates the exported round trips
type Summary struct {
	TotalTrades int             `json:"total_trades"`
	Buys        int             `json:"buys"`
	Sells       int             `json:"sells"`
	Wins        int             `json:"wins"`
	TotalPnL    decimal.Decimal `json:"total_pnl_quote"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
}

func (te *TradeExporter) calculateSummary(trades []paper.ClosedTrade) Summary {
	summary := Summary{
		TotalTrades: len(trades),
		TotalPnL:    decimal.Zero,
	}

	if len(trades) == 0 {
		return summary
	}

	summary.StartDate = trades[0].ClosedAt
	summary.EndDate = trades[len(trades)-1].ClosedAt

	for _, trade := range trades {
		if trade.Side == uniswap.SideBuy {
			summary.Buys++
		} else {
			summary.Sells++
		}
		if trade.RealizedPnL.Sign() > 0 {
			summary.Wins++
		}
		summary.TotalPnL = summary.TotalPnL.Add(trade.RealizedPnL)
	}

	return summary
}
